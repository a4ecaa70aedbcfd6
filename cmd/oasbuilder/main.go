package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/oasbuilder/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		switch {
		case errors.Is(err, cli.ErrUsage):
			os.Exit(2)
		default:
			os.Exit(1)
		}
	}
}
