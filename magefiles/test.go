//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Packages that run without a GPU or a display.
var unitPackages = []string{
	"./engine",
	"./engine/containers",
	"./engine/core/...",
	"./engine/platform",
	"./engine/renderer",
	"./engine/renderer/rendertest",
	"./testbed",
}

// Runs the unit tests with the race detector.
func (Test) Unit() error {
	return goV(append([]string{"test", "-race", "-count=1"}, unitPackages...)...)
}

// Runs the Vulkan backend tests. Needs cgo and the Vulkan headers.
func (Test) Vulkan() error {
	return goV("test", "-count=1", "./engine/renderer/vulkan")
}
