package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vodchella/ppass/internal/cli"
	"github.com/vodchella/ppass/internal/version"
)

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "dist/man", "output directory for generated man pages")
	flag.Parse()
	if flag.NArg() > 0 {
		outDir = flag.Arg(0)
	}

	err := cli.GenerateManPages(outDir, cli.BuildInfo{
		Version:   version.Version,
		Commit:    version.Commit,
		BuildTime: version.BuildTime,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ppass-man: %v\n", err)
		os.Exit(1)
	}
}
