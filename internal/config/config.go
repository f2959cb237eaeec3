// Package config gathers the handful of environment knobs the process
// consumes. Values are read once at startup and passed down explicitly.
package config

import (
	"fmt"
	"os"
)

const (
	TokenSecretEnvVar = "DOORWARD_TOKEN_SECRET"

	EnvProduction = "production"
)

type (
	Config struct {
		// Env flips production-only behavior, the Secure cookie flag
		// being the only consumer right now.
		Env string

		// DelegateURL/DelegateKey point at the external identity
		// service, only the delegate path reads them.
		DelegateURL string
		DelegateKey string
	}
)

func FromEnv() Config {
	env := os.Getenv("DOORWARD_ENV")
	if env == "" {
		env = "development"
	}
	return Config{
		Env:         env,
		DelegateURL: os.Getenv("DOORWARD_DELEGATE_URL"),
		DelegateKey: os.Getenv("DOORWARD_DELEGATE_KEY"),
	}
}

func (c Config) Production() bool {
	return c.Env == EnvProduction
}

// SecretFromEnv reads the token-signing secret from the named variable and
// scrubs it from the environment, so child processes and debug dumps do not
// see it. getfn/setfn exist for tests and default to the os functions.
func SecretFromEnv(varname string, getfn func(string) string, setfn func(string, string) error) ([]byte, error) {
	if getfn == nil {
		getfn = os.Getenv
	}
	if setfn == nil {
		setfn = os.Setenv
	}
	val := getfn(varname)
	setfn(varname, "")
	if len(val) < 32 {
		return nil, fmt.Errorf("config: secret in %v must be at least 32 bytes, got %v", varname, len(val))
	}
	return []byte(val), nil
}
