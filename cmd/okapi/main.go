// Command okapi manages API documents and generates artifacts from them.
package main

import (
	"fmt"
	"os"

	"github.com/okapi-tools/okapi/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.ExitCode(err))
	}
}
