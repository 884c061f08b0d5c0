// ./main.go
package main

import (
	"github.com/xaelith/ghostpilot/cmd"
)

// main is the entry point for the ghostpilot binary. All command-line
// parsing, configuration and execution lives in the cmd package.
func main() {
	cmd.Execute()
}
