// Command scribe runs the blogging API and its maintenance commands.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/scribe/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
