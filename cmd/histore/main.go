package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	_ "github.com/joho/godotenv/autoload"

	"github.com/roach88/histore/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		// Failures were already written to stdout in the chosen format.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Code != cli.ExitFailure {
			slog.Error("histore error", slog.String("error", err.Error()))
		}
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
