package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/usermanager/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "usermanager: %v\n", err)
		os.Exit(1)
	}
}
