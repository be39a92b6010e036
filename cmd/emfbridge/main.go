// Package main provides the emfbridge binary entry point.
// Emfbridge bridges EMF/ECore XMI models and Sphinx-Needs RST documents
// in both directions, driven by a declarative class mapping.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/useblocks/emfbridge/commands"
)

const Version = "0.1.0"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := commands.NewRoot(Version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
