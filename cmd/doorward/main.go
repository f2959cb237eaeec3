package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/doorward/doorward/cmd/doorward/mirror"
	"github.com/doorward/doorward/cmd/doorward/serve"
	"github.com/doorward/doorward/cmd/doorward/users"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using ambient environment")
	}
	app := &cli.App{
		Name:  "doorward",
		Usage: "Authentication starter: local credential store or delegated identity",
		Commands: []*cli.Command{
			serve.Cmd(),
			users.Cmd(),
			mirror.Cmd(),
		},
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Application failed")
	}
}
