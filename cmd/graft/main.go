package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mlahaye/graft/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands print their own error output; only surface errors that
		// escaped the formatter (flag parsing, unknown commands).
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
