// The main package for the botc-data-sync executable.
package main

import (
	"github.com/phauks/botc-data-sync/cmd"
)

func main() {
	cmd.Execute()
}
