package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/clubhub/internal/app"
)

func main() {
	if err := app.Run(os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
