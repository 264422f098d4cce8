package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables that stand in for flags,
// e.g. SOLIS_VIEWER_CSV or SOLIS_VIEWER_NO_BROWSER.
const EnvPrefix = "SOLIS_VIEWER"

type settingsReader interface {
	GetString(key string) string
	GetBool(key string) bool
}

// loadSettings resolves every flag of cmd from, in order of precedence, the
// command line, the environment, and ~/.go-solis-viewer/config.{yaml,json,toml}.
func loadSettings(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	v.SetConfigName("config")
	v.AddConfigPath(expandPath(defaultHome))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		}
	}
	return v, nil
}
