package main

import (
	"os"

	"github.com/adstash/adstash/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}
