// The main package for the boxarchiver executable.
package main

import (
	"github.com/JakeFAU/boxarchiver/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
