//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Run mg.Namespace

const configFile = "config/ember.toml"

// Builds and runs the engine, with config/ember.toml when present.
func (Run) Engine() error {
	mg.Deps(Build.Engine)

	fmt.Println("Run engine...")
	var args []string
	if _, err := os.Stat(configFile); err == nil {
		args = append(args, "-config", configFile)
	}
	return sh.RunV("./"+binary, args...)
}
