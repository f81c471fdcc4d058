package circuit

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Load reads a circuit from disk, dispatching on the file extension:
// .json for the netlist interchange format, .otc for the description
// language.
func Load(path string) (*Circuit, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(path)
	case ".otc":
		return LoadOTC(path)
	}
	return nil, fmt.Errorf("circuit: unsupported circuit format %q (want .json or .otc)", filepath.Ext(path))
}
