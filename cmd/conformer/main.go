// Command conformer runs Gherkin conformance tests against an HTTP service.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/conformer/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
