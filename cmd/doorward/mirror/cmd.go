package mirror

import (
	"errors"
	"fmt"

	"github.com/doorward/doorward/delegate"
	"github.com/doorward/doorward/internal/cmdflags"
	"github.com/doorward/doorward/internal/config"
	"github.com/doorward/doorward/internal/logutil"
	"github.com/doorward/doorward/userstore"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	storePath := "doorward.db"
	profilePath := "profiles.db"
	return &cli.Command{
		Name:  "mirror",
		Usage: "Move local users into the delegated identity service and keep the profile mirror consistent",
		Flags: []cli.Flag{
			cmdflags.UserStore(&storePath),
			cmdflags.ProfileStore(&profilePath),
		},
		Subcommands: []*cli.Command{
			runCmd(&storePath, &profilePath),
			reconcileCmd(&profilePath),
		},
	}
}

func runCmd(storePath, profilePath *string) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "One-off migration: import every local user into the delegate and mirror its profile",
		Action: func(ctx *cli.Context) error {
			log := logutil.GetOrDefault(ctx.Context)
			cfg := config.FromEnv()
			if cfg.DelegateURL == "" || cfg.DelegateKey == "" {
				return errors.New("DOORWARD_DELEGATE_URL and DOORWARD_DELEGATE_KEY must be set")
			}
			store, err := userstore.Open(ctx.Context, *storePath)
			if err != nil {
				return err
			}
			defer store.Close()
			profiles, err := delegate.OpenProfileStore(ctx.Context, *profilePath)
			if err != nil {
				return err
			}
			defer profiles.Close()
			client := delegate.NewClient(cfg.DelegateURL, cfg.DelegateKey)
			var moved int
			err = store.ForEach(ctx.Context, func(u userstore.User) error {
				ext, err := client.AdminCreateUser(ctx.Context, u.Email, u.Name, u.PasswordHash)
				if err != nil {
					return fmt.Errorf("unable to import user %v, cause %w", u.Email, err)
				}
				profile := delegate.Profile{ID: ext.ID, Email: ext.Email, Name: ext.Name}
				if err := profiles.Upsert(ctx.Context, profile); err != nil {
					// identity exists upstream already, keep a journal
					// entry instead of losing it
					if jerr := profiles.Journal(ctx.Context, profile); jerr != nil {
						return jerr
					}
					log.Warn().Str("profile.id", ext.ID).Msg("Mirror write failed, journaled for reconcile")
					return nil
				}
				moved++
				return nil
			})
			if err != nil {
				return err
			}
			log.Info().Int("users.moved", moved).Msg("Migration completed")
			return nil
		},
	}
}

func reconcileCmd(profilePath *string) *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Replay journaled mirror writes that failed during signup or migration",
		Action: func(ctx *cli.Context) error {
			profiles, err := delegate.OpenProfileStore(ctx.Context, *profilePath)
			if err != nil {
				return err
			}
			defer profiles.Close()
			replayed, err := profiles.ReplayJournal(ctx.Context)
			if err != nil {
				return err
			}
			logger := logutil.GetOrDefault(ctx.Context)
			logger.Info().Int("journal.replayed", replayed).Msg("Reconcile completed")
			return nil
		},
	}
}
