//go:build mage

// Package main contains Mage build targets for bibport developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "bibport"
	cmdPkg  = "./cmd/bibport"
)

// Default target when mage runs without arguments.
var Default = Build

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Install installs bibport into GOBIN.
func Install() error {
	return sh.RunV("go", "install", cmdPkg)
}

// Test runs the unit tests; CLI tests that build the binary are skipped.
func Test() error {
	return sh.RunV("go", "test", "-short", "./...")
}

// TestAll runs every test, including the CLI tests.
func TestAll() error {
	mg.Deps(Vet)
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}
