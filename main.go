package main

import (
	"fmt"
	"os"

	"github.com/alexflint/go-arg"

	"github.com/yiblet/halen/internal/cli"
)

func main() {
	var args cli.Args
	parser := arg.MustParse(&args)

	// Without a subcommand halen runs the daemon.
	if !args.HasCommand() {
		args.Run = &cli.RunCmd{}
	}

	cliHandler, err := cli.New(&args)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	err = cliHandler.Execute()
	cliHandler.Close()
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		// Argument validation errors get the usage text as well.
		if args.Validate() != nil {
			fmt.Println()
			parser.WriteUsage(os.Stderr)
		}
		os.Exit(1)
	}
}
