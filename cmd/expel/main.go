package main

import (
	"os"

	"github.com/jakenelson/expel/internal/cli"
	"github.com/jakenelson/expel/internal/errors"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
