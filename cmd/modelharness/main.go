package main

import (
	"fmt"

	"github.com/pkeller/modelharness/internal/command"
	_ "github.com/pkeller/modelharness/internal/command/coverage"
	_ "github.com/pkeller/modelharness/internal/command/env"
	_ "github.com/pkeller/modelharness/internal/command/generate"
	_ "github.com/pkeller/modelharness/internal/command/run"
	_ "github.com/pkeller/modelharness/internal/command/tui"
	_ "github.com/pkeller/modelharness/internal/command/validate"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	command.RootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	command.RootCmd.SetVersionTemplate("modelharness {{.Version}}\n")
}

func main() {
	command.Execute()
}
