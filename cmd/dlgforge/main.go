package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dlgforge/dlgforge/internal/cli"
	apperrors "github.com/dlgforge/dlgforge/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		code := apperrors.Classify(err)
		if code != apperrors.ErrCodeCancelled {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(apperrors.ExitCode(code))
	}
}

func run(ctx context.Context) error {
	c := cli.New(os.Stderr, cli.LogInfo)
	return c.RootCommand().ExecuteContext(ctx)
}
