package main

import (
	"flag"
	"os"

	"github.com/dethstrobe/applywize2/internal/platform/config"
	"github.com/dethstrobe/applywize2/internal/tools/ceremonykey"
)

func main() {
	cfg, err := ceremonykey.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := ceremonykey.Run(cfg, os.Stdout, nil); err != nil {
		config.Exitf("generate secret: %v", err)
	}
}
