package users

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/doorward/doorward/internal/cmdflags"
	"github.com/doorward/doorward/password"
	"github.com/doorward/doorward/userstore"
	"github.com/urfave/cli/v2"
)

func Cmd() *cli.Command {
	storePath := "doorward.db"
	return &cli.Command{
		Name:  "users",
		Usage: "Operate on the local credential store without going through HTTP",
		Flags: []cli.Flag{
			cmdflags.UserStore(&storePath),
		},
		Subcommands: []*cli.Command{
			registerCmd(&storePath),
		},
	}
}

func registerCmd(storePath *string) *cli.Command {
	var email string
	var name string
	return &cli.Command{
		Name:  "register",
		Usage: "Register a new user (password is read from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "email",
				Aliases:     []string{"e"},
				Usage:       "Email of the user to register",
				Destination: &email,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "name",
				Aliases:     []string{"n"},
				Usage:       "Display name of the user to register",
				Destination: &name,
				Required:    true,
			},
		},
		Action: func(ctx *cli.Context) error {
			sc := bufio.NewScanner(os.Stdin)
			if !sc.Scan() {
				return sc.Err()
			}
			passwd := strings.TrimSpace(sc.Text())
			if len(passwd) < 6 {
				return errors.New("password must be at least 6 characters")
			}
			store, err := userstore.Open(ctx.Context, *storePath)
			if err != nil {
				return err
			}
			defer store.Close()
			hash, err := password.NewHasher().Hash(passwd)
			if err != nil {
				return err
			}
			user, err := store.Create(ctx.Context, email, hash, name)
			if err != nil {
				return err
			}
			fmt.Printf("registered user #%v (%v)\n", user.ID, user.Email)
			return nil
		},
	}
}
