package main

import (
	"fmt"
	"os"

	"github.com/coldchain-ml/coldchain/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "coldchain: %v\n", err)
		os.Exit(1)
	}
}
