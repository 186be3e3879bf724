package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/vodchella/ppass/internal/cli"
	"github.com/vodchella/ppass/internal/version"
)

func main() {
	cmd := cli.NewRootCommand(os.Stdout, os.Stderr, os.Stdin, cli.BuildInfo{
		Version:   version.Version,
		Commit:    version.Commit,
		BuildTime: version.BuildTime,
	})
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		if os.Getenv("PPASS_DEBUG") != "" {
			for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
				fmt.Fprintf(os.Stderr, "  caused by: %s\n", cause)
			}
		}
		var withExitCode interface{ ExitCode() int }
		if errors.As(err, &withExitCode) {
			os.Exit(withExitCode.ExitCode())
		}
		os.Exit(1)
	}
}
