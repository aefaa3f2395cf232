package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/logger"
	"github.com/spigell/hh-interviewer/internal/storage"
)

const defaultListLimit = 20

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect stored interview sessions",
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored session as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		inspectStore(func(ctx context.Context, store storage.Store) error {
			rec, err := store.GetSession(ctx, args[0])
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("session %s not found", args[0])
			}
			if err != nil {
				return fmt.Errorf("reading session: %w", err)
			}
			printJSON(rec)
			return nil
		})
	},
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recently updated sessions",
	Run: func(cmd *cobra.Command, _ []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		inspectStore(func(ctx context.Context, store storage.Store) error {
			records, err := store.ListSessions(ctx, limit)
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}

			for _, rec := range records {
				score := "-"
				if rec.State != nil && rec.State.Summary != nil {
					score = fmt.Sprintf("%.1f", rec.State.Summary.OverallScore)
				}
				fmt.Printf("%s\t%s\t%s\t%s\t%d\t%s\n",
					rec.ID, rec.Candidate.Name, rec.Candidate.JobTitle, rec.Status, rec.TotalQuestions, score)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsShowCmd, sessionsListCmd)

	sessionsListCmd.Flags().IntP("limit", "n", defaultListLimit, "maximum number of sessions to print")
}

func inspectStore(fn func(ctx context.Context, store storage.Store) error) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	err = withStore(ctx, config.Storage, func(store storage.Store) error {
		return fn(ctx, store)
	})
	if err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}
}

func printJSON(v any) {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("encoding json: %s", err)
	}
	fmt.Println(string(pretty))
}
