package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyfold",
		Short: "Dual-mode credential and authentication service",
		Long: `Keyfold authenticates API callers under two credential schemes: short-lived
signed tokens issued after password verification, and long-lived opaque API
keys stored only in hashed form. Raw secrets are shown once at issuance and
are never recoverable from storage.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./keyfold.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for SQLite storage (default: ~/.keyfold)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newKeyCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("keyfold")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.keyfold")
	}

	viper.SetDefault("db.driver", "sqlite")
	viper.SetDefault("auth.jwt_ttl_ms", 3600000)

	viper.SetEnvPrefix("KEYFOLD")
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
