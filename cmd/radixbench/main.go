package main

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var defaultLogLevel = logrus.InfoLevel

func setupLogLevelOptions(app *cli.App) {
	app.Flags = append(app.Flags,
		cli.BoolFlag{
			Name:   "debug",
			Usage:  "debug mode",
			EnvVar: "DEBUG",
		},
		cli.StringFlag{
			Name:   "log-level, l",
			Usage:  "Log level (options: debug, info, warn, error, fatal, panic)",
			EnvVar: "RADIXBENCH_LOG_LEVEL",
		},
	)

	app.Before = func(c *cli.Context) error {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(defaultLogLevel)

		if c.IsSet("log-level") || c.IsSet("l") {
			level, err := logrus.ParseLevel(c.String("log-level"))
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
		} else if c.Bool("debug") {
			logrus.SetLevel(logrus.DebugLevel)
		}
		return nil
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = filepath.Base(os.Args[0])
	app.Usage = "exercise and benchmark a string-keyed radix tree"
	app.Commands = []cli.Command{
		demoCommand(),
		benchCommand(),
	}
	app.CommandNotFound = func(c *cli.Context, command string) {
		logrus.Fatalln("Command", command, "not found.")
	}
	setupLogLevelOptions(app)
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
