package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/mbox/mboxgo/cmd"
)

func main() {
	app := cli.NewApp()
	app.Name = "mbox"
	app.Usage = "RISC-V M-extension mul/div unit verification"
	app.Description = "Constrained-random verification of a RISC-V M-extension multiply/divide unit against a reference model"
	app.Commands = []*cli.Command{
		cmd.RunCommand,
		cmd.ReplayCommand,
		cmd.EvalCommand,
	}
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for {
			<-c
			cancel()
			fmt.Println("\r\nExiting...")
		}
	}()

	err := app.RunContext(ctx, os.Args)
	if err != nil {
		if errors.Is(err, ctx.Err()) {
			_, _ = fmt.Fprintf(os.Stderr, "command interrupted")
			os.Exit(130)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v", err)
			os.Exit(1)
		}
	}
}
