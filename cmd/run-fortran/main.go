// Command run-fortran prints a compilation order for a tree of Fortran
// sources.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/roach88/runfortran/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
