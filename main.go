package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/dpp/homer/cmd"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:   "homer",
		Usage:  "control core for a networked status appliance",
		Action: cmd.HomerCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "ha-host",
				Usage:   "Home Assistant host:port",
				EnvVars: []string{"HOMER_HA_URL"},
			},
			&cli.StringFlag{
				Name:    "ha-token",
				Usage:   "long-lived access token",
				EnvVars: []string{"HOMER_HA_AUTH"},
			},
			&cli.BoolFlag{
				Name:    "ha-ssl",
				EnvVars: []string{"HOMER_HA_SSL"},
			},
			&cli.StringFlag{
				Name:    "mqtt-host",
				EnvVars: []string{"MQTT_HOST"},
			},
			&cli.StringFlag{
				Name:    "bindings-dir",
				EnvVars: []string{"HOMER_BINDINGS_DIR"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
