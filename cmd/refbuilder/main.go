package main

import (
	"os"

	"git.home.luguber.info/inful/refbuilder/cmd/refbuilder/commands"
)

func main() {
	os.Exit(commands.Main(os.Args[1:], os.Stdout, os.Stderr))
}
