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
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/medalfm/medalfm/internal/history"
	"github.com/medalfm/medalfm/internal/ranking"
	"github.com/medalfm/medalfm/internal/server"
)

const shutdownTimeout = 10 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves medal tables over HTTP",
	Long:  `Starts the JSON API consumed by the web frontend.`,
	Run: func(cmd *cobra.Command, args []string) {
		err := runServer()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	var port int
	serveCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))

	var requestTimeout string
	serveCmd.Flags().StringVar(&requestTimeout, "request-timeout", "2m", "Deadline for one ranking computation (e.g. 90s)")
	viper.BindPFlag("request-timeout", serveCmd.Flags().Lookup("request-timeout"))
}

func runServer() error {
	timeout, err := time.ParseDuration(viper.GetString("request-timeout"))
	if err != nil {
		return fmt.Errorf("--request-timeout: %w", err)
	}

	store, err := openCache()
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer store.Close()

	log := slog.Default()
	provider := history.New(lastFmApiKey, lastFmSecret)
	svc := ranking.NewService(provider, store, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", viper.GetInt("port")),
		Handler:      server.New(svc, log, timeout),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: timeout + 10*time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		fmt.Printf("Listening on %s\n", srv.Addr)
		errs <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errs:
		return err
	case sig := <-stop:
		fmt.Printf("Received %s, shutting down\n", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
