package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/evaluation"
	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/logger"
	"github.com/spigell/hh-interviewer/internal/metrics"
	"github.com/spigell/hh-interviewer/internal/orchestrator"
	"github.com/spigell/hh-interviewer/internal/quality"
	"github.com/spigell/hh-interviewer/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interview in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("catalog-file", "c", "", "YAML question catalog overriding the built-in one")
	runCmd.Flags().String("metrics-addr", "", "listen address for the Prometheus /metrics endpoint. Default is unset.")

	viper.BindPFlag("catalog-file", runCmd.Flags().Lookup("catalog-file"))
	viper.BindPFlag("metrics-addr", runCmd.Flags().Lookup("metrics-addr"))
}

// run is the main command for the cli.
func run(_ *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the hh-interviewer", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	m := metrics.MustNewMetrics(prometheus.DefaultRegisterer)
	if addr := strings.TrimSpace(config.MetricsAddr); addr != "" {
		serveMetrics(ctx, addr, logger)
	}

	questions, err := loadCatalog(config.CatalogFile)
	if err != nil {
		logger.Fatal("loading question catalog", zap.Error(err))
	}

	sampler, err := newSampler(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("oracle is not available, answers will be graded by the local heuristic", zap.Error(err))
		sampler = nil
	}

	evaluator := evaluation.NewEvaluator(sampler, quality.New(logger), evaluation.Config{
		CallTimeout:        config.Evaluation.CallTimeout,
		MaxConcurrentCalls: config.Evaluation.MaxConcurrentCalls,
	}, m, logger)

	err = withStore(ctx, config.Storage, func(store storage.Store) error {
		interviewer, err := orchestrator.New(orchestrator.Deps{
			Catalog:  questions,
			Grader:   evaluator,
			Store:    store,
			Observer: m,
			Logger:   logger,
		})
		if err != nil {
			return fmt.Errorf("building the interviewer: %w", err)
		}

		candidate, err := promptCandidate()
		if err != nil {
			return err
		}

		started, err := interviewer.Start(ctx, candidate)
		if err != nil {
			return fmt.Errorf("starting the interview: %w", err)
		}

		summary, err := converse(ctx, interviewer, started, logger)
		if err != nil {
			return err
		}

		printJSON(summary)

		logger.Info("interview finished",
			zap.String("session_id", started.Session.ID),
			zap.String("recommendation", summary.Recommendation),
		)
		return nil
	})
	if err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}
}

// converse asks questions until the session completes and returns its summary.
func converse(ctx context.Context, interviewer *orchestrator.Orchestrator, started *orchestrator.StartResult, logger *zap.Logger) (*interview.Summary, error) {
	session := started.Session
	question := started.Question

	for {
		answer, elapsed, err := ask(question)
		if err != nil {
			return nil, err
		}

		result, err := interviewer.Reply(ctx, session, answer, elapsed.Seconds())
		if err != nil {
			if errors.Is(err, interview.ErrInvalidInput) {
				logger.Warn("answer rejected, please try again", zap.Error(err))
				continue
			}
			return nil, err
		}

		if last := lastVerdict(result.Session); last != nil {
			logger.Info("answer graded",
				zap.Int("correctness", last.Correctness),
				zap.String("confidence", string(last.Confidence)),
				zap.Strings("flags", flagNames(last.QualityFlags)),
			)
		}

		if result.Completed {
			return result.Summary, nil
		}
		question = *result.NextQuestion
	}
}

func ask(q interview.Question) (string, time.Duration, error) {
	fmt.Printf("\n[%s] %s\n(time limit: %.0fs)\n", q.Stage, q.Text, q.TimeLimitSec)

	prompt := promptui.Prompt{
		Label:    "Answer",
		Validate: required("answer"),
	}

	asked := time.Now()
	answer, err := prompt.Run()
	if err != nil {
		return "", 0, err
	}

	return answer, time.Since(asked), nil
}

func promptCandidate() (interview.Candidate, error) {
	var candidate interview.Candidate

	fields := []struct {
		label    string
		validate promptui.ValidateFunc
		target   *string
	}{
		{label: "Name", validate: required("name"), target: &candidate.Name},
		{label: "Email", target: &candidate.Email},
		{label: "Job title", validate: required("job title"), target: &candidate.JobTitle},
	}

	for _, f := range fields {
		value, err := (&promptui.Prompt{Label: f.label, Validate: f.validate}).Run()
		if err != nil {
			return candidate, err
		}
		*f.target = strings.TrimSpace(value)
	}

	experience := promptui.Prompt{
		Label:   "Years of experience",
		Default: "0",
		Validate: func(s string) error {
			years, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil || years < 0 {
				return errors.New("enter a non-negative number")
			}
			return nil
		},
	}

	value, err := experience.Run()
	if err != nil {
		return candidate, err
	}
	candidate.ExperienceYears, _ = strconv.ParseFloat(strings.TrimSpace(value), 64)

	return candidate, nil
}

func required(name string) promptui.ValidateFunc {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func lastVerdict(s *interview.Session) *interview.Verdict {
	answers := s.GradedAnswers()
	if len(answers) == 0 {
		return nil
	}
	return answers[len(answers)-1].Verdict
}

func flagNames(flags []interview.Flag) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = string(f)
	}
	return out
}
