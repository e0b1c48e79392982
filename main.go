// The main package for the siteatlas executable.
package main

import (
	"github.com/siteatlas/siteatlas/cmd"
)

func main() {
	cmd.Execute()
}
