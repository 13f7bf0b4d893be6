package main

import (
	"github.com/robotalks/evlink/pkg/cli/sh"
	"github.com/robotalks/evlink/pkg/config"

	_ "github.com/robotalks/evlink/pkg/cli/cmds/diag"
)

//go-build: CGO_ENABLED=0

func init() {
	config.SetupFlags()
}

func main() {
	sh.Main()
}
