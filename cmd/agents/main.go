package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/agentsfolder/agents-cli/pkg/cli"
)

// Build-time variable set by the release pipeline.
var version = "dev"

func main() {
	root := cli.NewRootCommand(version)

	if err := root.Execute(); err != nil {
		var appErr *cli.AppError
		if errors.As(err, &appErr) {
			fmt.Fprint(os.Stderr, appErr.Error())
			os.Exit(appErr.Category.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}
