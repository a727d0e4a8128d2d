/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/medalfm/medalfm/internal/cache"
)

var cfgFile string
var lastFmApiKey string
var lastFmSecret string
var cacheBackend string
var cachePath string
var redisAddr string
var redisPassword string
var redisDb int

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "medalfm",
	Short: "Builds 12-month medal tables from last.fm listening data",
	Long: `For each of the trailing 12 calendar months, finds a user's top-5
artists, albums, or tracks, then tallies how often each item placed 1st
through 5th across those months.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default is $HOME/.medalfm.yaml)")

	rootCmd.PersistentFlags().StringVarP(
		&lastFmApiKey, "api_key", "", "", "last.fm API key")
	rootCmd.MarkPersistentFlagRequired("api_key")
	viper.BindPFlag("api_key", rootCmd.PersistentFlags().Lookup("api_key"))

	rootCmd.PersistentFlags().StringVarP(
		&lastFmSecret, "secret", "", "", "last.fm secret")
	rootCmd.MarkPersistentFlagRequired("secret")
	viper.BindPFlag("secret", rootCmd.PersistentFlags().Lookup("secret"))

	rootCmd.PersistentFlags().StringVar(
		&cacheBackend, "cache", "sqlite", "Result cache backend: sqlite or redis")
	viper.BindPFlag("cache", rootCmd.PersistentFlags().Lookup("cache"))

	rootCmd.PersistentFlags().StringVarP(
		&cachePath, "database", "d", "./medalfm.db", "Path to the SQLite cache database")
	viper.BindPFlag("database", rootCmd.PersistentFlags().Lookup("database"))

	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis_addr", "localhost:6379", "Redis address, host:port")
	viper.BindPFlag("redis_addr", rootCmd.PersistentFlags().Lookup("redis_addr"))

	rootCmd.PersistentFlags().StringVar(&redisPassword, "redis_password", "", "Redis password")
	viper.BindPFlag("redis_password", rootCmd.PersistentFlags().Lookup("redis_password"))

	rootCmd.PersistentFlags().IntVar(&redisDb, "redis_db", 0, "Redis database number")
	viper.BindPFlag("redis_db", rootCmd.PersistentFlags().Lookup("redis_db"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".medalfm" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".medalfm")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// See https://github.com/spf13/viper/pull/852
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		if viper.IsSet(f.Name) && viper.GetString(f.Name) != "" {
			rootCmd.Flags().Set(f.Name, viper.GetString(f.Name))
		}
	})
}

// openCache builds the configured result-cache backend.
func openCache() (cache.Store, error) {
	switch backend := viper.GetString("cache"); backend {
	case "redis":
		return cache.NewRedis(
			viper.GetString("redis_addr"),
			viper.GetString("redis_password"),
			viper.GetInt("redis_db"))
	case "sqlite":
		return cache.NewSQLite(viper.GetString("database"))
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
