//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const binary = "bin/ember"

// Tidies the module and builds the engine binary into bin/.
func (Build) Engine() error {
	if err := goModTidy(); err != nil {
		return err
	}
	return goV("build", "-o", binary, ".")
}
