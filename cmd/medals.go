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
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/medalfm/medalfm/internal/history"
	"github.com/medalfm/medalfm/internal/ranking"
)

// medalsCmd represents the medals command
var medalsCmd = &cobra.Command{
	Use:   "medals [user]",
	Short: "Prints a user's 12-month medal table",
	Long: `Ranks the top-5 artists, albums, or tracks for each of the trailing
12 calendar months and tallies how often each item took each position.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := printMedals(os.Stdout, args[0], viper.GetString("type"))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(medalsCmd)

	var rankingType string
	medalsCmd.Flags().StringVarP(&rankingType, "type", "t", "artists", "Ranking dimension: artists, albums, or tracks")
	viper.BindPFlag("type", medalsCmd.Flags().Lookup("type"))
}

func printMedals(out io.Writer, user, typeString string) error {
	typ, err := ranking.ParseRankingType(typeString)
	if err != nil {
		return err
	}

	store, err := openCache()
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer store.Close()

	provider := history.New(lastFmApiKey, lastFmSecret)
	svc := ranking.NewService(provider, store, slog.Default())

	payload, err := svc.MedalTable(context.Background(), user, typ)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(out)
	if typ == ranking.TypeArtists {
		table.Header("Artist", "1st", "2nd", "3rd", "4th", "5th")
	} else {
		table.Header("Name", "Artist", "1st", "2nd", "3rd", "4th", "5th")
	}
	for _, entry := range payload.Ranking {
		row := []string{entry.Name}
		if typ != ranking.TypeArtists {
			row = append(row, entry.Artist)
		}
		for _, count := range entry.Pos {
			row = append(row, strconv.Itoa(count))
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("rendering table: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	fmt.Fprintf(out, "Medal table for %s (%s), trailing 12 months\n", payload.User, payload.Type)
	return nil
}
