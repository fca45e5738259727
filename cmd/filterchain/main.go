// filterchain compiles and runs nested-subquery filter chains.
package main

import (
	"os"

	"github.com/roach88/filterchain/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
