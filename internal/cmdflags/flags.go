package cmdflags

import (
	"github.com/doorward/doorward/internal/config"
	"github.com/urfave/cli/v2"
)

func UserStore(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "store",
		Aliases:     []string{"s"},
		Usage:       "Path to the user database file",
		Destination: out,
		Value:       *out,
	}
}

func ProfileStore(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "profiles",
		Aliases:     []string{"p"},
		Usage:       "Path to the profile mirror database file",
		Destination: out,
		Value:       *out,
	}
}

func SecretEnvVar(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = config.TokenSecretEnvVar
	}
	return &cli.StringFlag{
		Name:        "secret-envvar-name",
		Usage:       "Name of the environment variable that holds the token signing secret. The secret itself should not be passed as an argument",
		Value:       *out,
		Destination: out,
	}
}
