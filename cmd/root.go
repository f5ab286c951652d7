package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "episodarr",
	Short: "episodarr cli",
	Long:  `episodarr cli`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file")
}

func initConfig() {
	viper.SetConfigFile(cfgFile)

	viper.SetEnvPrefix("EPISODARR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", ""))
	viper.AutomaticEnv()

	viper.SetDefault("tvmaze.scheme", "https")
	viper.SetDefault("tvmaze.host", "api.tvmaze.com")
	viper.SetDefault("tvmaze.backoff", time.Second)
	viper.SetDefault("tvmaze.maxRetries", 3)

	viper.SetDefault("server.port", 8080)

	viper.SetDefault("storage.filePath", "episodarr.sqlite")

	viper.SetDefault("refresh.window", time.Hour*24)
	viper.SetDefault("refresh.batchSize", 4)
	viper.SetDefault("refresh.batchDelay", time.Second)
	viper.SetDefault("refresh.interval", time.Hour)
}
