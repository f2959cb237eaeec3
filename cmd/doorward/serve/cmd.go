package serve

import (
	"net/http"

	"github.com/doorward/doorward/httpapi"
	"github.com/doorward/doorward/internal/cmdflags"
	"github.com/doorward/doorward/internal/config"
	"github.com/doorward/doorward/internal/httpserver"
	"github.com/doorward/doorward/password"
	"github.com/doorward/doorward/session"
	"github.com/doorward/doorward/userstore"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	bindAddr := "localhost:7001"
	storePath := "doorward.db"
	var secretEnvVar string
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the local-path auth server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "bind",
				Usage:       "Address to bind the auth server",
				Value:       bindAddr,
				Destination: &bindAddr,
			},
			cmdflags.UserStore(&storePath),
			cmdflags.SecretEnvVar(&secretEnvVar),
		},
		Action: func(ctx *cli.Context) error {
			secret, err := config.SecretFromEnv(secretEnvVar, nil, nil)
			if err != nil {
				return err
			}
			cfg := config.FromEnv()
			store, err := userstore.Open(ctx.Context, storePath)
			if err != nil {
				return err
			}
			defer store.Close()
			issuer := session.NewIssuer(secret)
			handler := httpapi.NewHandler(store, password.NewHasher(), issuer, cfg.Production())
			gate := httpapi.NewGate(issuer, cfg.Production())

			mux := http.NewServeMux()
			mux.Handle("/api/auth/", handler.AsHandler())
			mux.Handle("/", httpapi.Pages())
			return httpserver.Serve(ctx.Context, bindAddr, gate.Protect(mux))
		},
	}
}
