package main

import (
	"fmt"
	"os"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
