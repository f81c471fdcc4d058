// sexp-check cross-validates the format-preserving codec against an
// independent s-expression parser: both must agree on the leaf count,
// and the codec's untouched render must be byte-identical to the input.
// Exits nonzero on any disagreement.
package main

import (
	"bytes"
	"fmt"
	"os"

	chewxy "github.com/chewxy/sexp"

	"github.com/OpenTraceLab/OpenTraceSync/pkg/kicad/sexp"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: sexp-check <kicad_file>")
		os.Exit(1)
	}
	filename := os.Args[1]

	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", filename, err)
		os.Exit(1)
	}

	doc, err := sexp.Parse(data)
	if err != nil {
		fmt.Printf("Codec parse error: %v\n", err)
		os.Exit(1)
	}

	ok := true

	if !bytes.Equal(doc.Bytes(), data) {
		fmt.Println("FAIL: untouched render is not byte-identical to the input")
		ok = false
	} else {
		fmt.Printf("Round trip: byte-identical (%d bytes)\n", len(data))
	}

	ours := countLeaves(doc.Root())
	fmt.Printf("Codec: %d atoms\n", ours)

	sexps, err := chewxy.Parse(bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Reference parse error: %v\n", err)
		os.Exit(1)
	}
	theirs := 0
	for _, s := range sexps {
		if s.IsLeaf() {
			theirs++
		} else {
			theirs += s.LeafCount()
		}
	}
	fmt.Printf("Reference: %d atoms\n", theirs)

	if ours != theirs {
		fmt.Printf("FAIL: atom counts disagree (%d vs %d)\n", ours, theirs)
		ok = false
	}

	if !ok {
		os.Exit(1)
	}
	fmt.Println("OK")
}

func countLeaves(l *sexp.List) int {
	n := 0
	for _, child := range l.Children() {
		if sub, isList := child.(*sexp.List); isList {
			n += countLeaves(sub)
		} else {
			n++
		}
	}
	return n
}
