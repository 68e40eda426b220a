package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/valerio/gbcore/gbcore"
)

func main() {
	app := cli.NewApp()
	app.Name = "gbcore"
	app.Description = "A cycle stepped Game Boy emulator core"
	app.Usage = "gbcore <command> [options] <ROM file>..."
	app.Version = gbcore.Version
	app.Commands = []cli.Command{
		runCommand,
		infoCommand,
		configCommand,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
