package sync

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Point is a configuration-level coordinate in millimeters.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Config controls the behavior of the synchronization engine.
type Config struct {
	// Grid is the document's base grid unit in mm (KiCad's default 50 mil).
	Grid float64 `yaml:"grid"`

	// PositionTolerance is the maximum distance, per axis, at which two
	// positions count as the same place for the fingerprint matcher.
	// Zero means Grid/10.
	PositionTolerance float64 `yaml:"position_tolerance"`

	// Clearance is the minimum gap kept between a newly placed element's
	// bounding box and every existing one.
	Clearance float64 `yaml:"clearance"`

	// PlacementOrigin is where the allocator starts its sweep. Must not
	// be the document origin, which KiCad reserves.
	PlacementOrigin Point `yaml:"placement_origin"`

	// MaxPlacementRing bounds the allocator's sweep; past it new parts
	// go into an overflow column beyond the current sheet extent.
	MaxPlacementRing int `yaml:"max_placement_ring"`

	// PowerNets is the vocabulary of net names treated as power rails.
	// Matching is case-sensitive and exact.
	PowerNets []string `yaml:"power_nets"`

	// PowerSymbolPrefix is the library prefix for generated power
	// markers; a net named GND becomes an instance of "power:GND"
	// unless the net carries its own symbol override.
	PowerSymbolPrefix string `yaml:"power_symbol_prefix"`

	// Tokens produces identity tokens for newly created elements.
	// Defaults to random UUIDs; tests inject deterministic sources.
	Tokens TokenSource `yaml:"-"`

	powerSet map[string]bool
}

// DefaultConfig returns a Config with sensible defaults for KiCad
// documents.
func DefaultConfig() *Config {
	return &Config{
		Grid:             1.27,
		Clearance:        2.54,
		PlacementOrigin:  Point{X: 25.4, Y: 25.4},
		MaxPlacementRing: 40,
		PowerNets: []string{
			"GND", "GNDA", "GNDD",
			"VCC", "VDD", "VSS", "VEE",
			"+3V3", "+5V", "+12V", "-12V",
		},
		PowerSymbolPrefix: "power:",
	}
}

// Validate checks the configuration, fills derived defaults, and compiles
// the power-net lookup set.
func (c *Config) Validate() error {
	if c.Grid <= 0 {
		return fmt.Errorf("sync: grid must be positive, got %v", c.Grid)
	}
	if c.PositionTolerance == 0 {
		c.PositionTolerance = c.Grid / 10
	}
	if c.PositionTolerance < 0 {
		return fmt.Errorf("sync: position tolerance must not be negative")
	}
	if c.Clearance < 0 {
		return fmt.Errorf("sync: clearance must not be negative")
	}
	if c.PlacementOrigin.X == 0 && c.PlacementOrigin.Y == 0 {
		return fmt.Errorf("sync: placement origin must not be the document origin")
	}
	if c.MaxPlacementRing < 1 {
		c.MaxPlacementRing = 40
	}
	if c.Tokens == nil {
		c.Tokens = UUIDTokens
	}

	c.powerSet = make(map[string]bool, len(c.PowerNets))
	for _, name := range c.PowerNets {
		c.powerSet[name] = true
	}
	return nil
}

// IsPowerNet reports whether a net name belongs to the power vocabulary.
// Only valid after Validate.
func (c *Config) IsPowerNet(name string) bool {
	return c.powerSet[name]
}

// LoadConfig reads an ots.yaml project file, layering it over the
// defaults. Absent fields keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sync: failed to read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("sync: invalid config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
