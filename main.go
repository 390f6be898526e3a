package main

import (
	"os"

	"github.com/smallnest/agentbridge/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
