package main

import (
	"os"

	"github.com/urfave/cli"

	"github.com/valerio/gbcore/gbcore/config"
)

var configCommand = cli.Command{
	Name:  "config",
	Usage: "Print the default TOML configuration, or write it to a file",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "write",
			Usage: "Write the default configuration to this path",
		},
		cli.BoolFlag{
			Name:  "write-default",
			Usage: "Write the default configuration to the user config directory",
		},
	},
	Action: writeConfig,
}

func writeConfig(c *cli.Context) error {
	path := c.String("write")
	if c.Bool("write-default") {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}

	if path == "" {
		return config.Write(os.Stdout, config.Default())
	}
	if err := config.Save(path, config.Default()); err != nil {
		return err
	}
	setupLogger(false).Info("Config written", "path", path)
	return nil
}
