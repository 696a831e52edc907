// Command validate-selectors checks host selector files: each must be valid
// YAML and, once overlaid on the built-in defaults, name every contract point.
package main

import (
	"fmt"
	"os"

	"github.com/blockedby/chat-observer/internal/dom"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("No files to check.")
		os.Exit(0)
	}

	failed := false
	for _, path := range os.Args[1:] {
		sel, err := dom.LoadSelectors(path)
		if err != nil {
			fmt.Printf("❌ %s: %v\n", path, err)
			failed = true
			continue
		}
		fmt.Printf("✅ %s is valid (latest group: %s)\n", path, sel.LatestGroup())
	}

	if failed {
		os.Exit(1)
	}
}
