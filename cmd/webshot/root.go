package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"webshot/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "webshot",
	Short:         "Batch website screenshots with a resumable session",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch {
		case viper.GetBool("debug"):
			logger.SetGlobalLevel(zerolog.DebugLevel)
		case viper.GetBool("verbose"):
			logger.SetGlobalLevel(zerolog.InfoLevel)
		default:
			logger.SetGlobalLevel(zerolog.WarnLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("session", "s", "", "session file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "enable debug output")
	_ = rootCmd.MarkPersistentFlagRequired("session")

	_ = viper.BindPFlag("session", rootCmd.PersistentFlags().Lookup("session"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	viper.SetEnvPrefix("WEBSHOT")
	viper.AutomaticEnv()
}
