// Command tbench runs clocked testbenches against behavioral DUT models.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tbench/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
