package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/tansaku/internal/cli"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/rag"
)

var (
	serverURL  string
	topK       int
	jsonOutput bool

	profile models.DemographicProfile
)

var contextCmd = &cobra.Command{
	Use:   "context [topic]",
	Short: "Assemble graph and document evidence for a demographic profile",
	Long: `Resolves graph evidence for the profile and runs hybrid search over the
profile terms plus the optional topic. Each document is enriched with the
graph nodes it relates to.`,
	Example: `  tansaku context --age 25-34 --location Lisbon --education "Bachelor's" housing costs
  tansaku context --gender female --json`,
	RunE: runContext,
}

var askCmd = &cobra.Command{
	Use:     "ask <question>",
	Short:   "Answer a question from the property graph and indexed documents",
	Example: `  tansaku ask "How do rising rents affect renters under 35 in Lisbon?"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runAsk,
}

func init() {
	for _, c := range []*cobra.Command{contextCmd, askCmd} {
		c.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "server URL (empty = run the pipeline in-process)")
		c.Flags().IntVarP(&topK, "limit", "n", 0, "number of documents (0 = config default)")
		c.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	}
	contextCmd.Flags().StringVar(&profile.AgeGroup, "age", "", "age group, e.g. 25-34")
	contextCmd.Flags().StringVar(&profile.Location, "location", "", "location")
	contextCmd.Flags().StringVar(&profile.Education, "education", "", "education level; several may be separated by /")
	contextCmd.Flags().StringVar(&profile.Gender, "gender", "", "gender")
	rootCmd.AddCommand(contextCmd, askCmd)
}

// engine is the subset of the pipeline the query commands use, served either
// in-process or by a running server.
type engine interface {
	DemographicContext(ctx context.Context, req rag.ContextRequest) (*rag.ContextResult, error)
	Ask(ctx context.Context, question string, topK int) (*rag.Answer, error)
}

type remoteEngine struct {
	client *cli.Client
}

func (r remoteEngine) DemographicContext(ctx context.Context, req rag.ContextRequest) (*rag.ContextResult, error) {
	return r.client.Context(ctx, req)
}

func (r remoteEngine) Ask(ctx context.Context, question string, topK int) (*rag.Answer, error) {
	return r.client.Ask(ctx, question, topK)
}

// openEngine uses the server when one is configured (avoids Bleve/SQLite lock
// conflicts) and otherwise builds the pipeline in-process.
func openEngine() (engine, func(), error) {
	if serverURL != "" {
		return remoteEngine{client: cli.NewClient(serverURL)}, func() {}, nil
	}
	cfg, _, logger, err := setup()
	if err != nil {
		return nil, nil, err
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return components.Pipeline, func() {
		components.Close()
		_ = logger.Sync()
	}, nil
}

func runContext(cmd *cobra.Command, args []string) error {
	req := rag.ContextRequest{Profile: profile, Topic: joinArgs(args), TopK: topK}
	if req.Profile.IsEmpty() && req.Topic == "" {
		return errors.New("a profile flag or a topic is required")
	}
	eng, done, err := openEngine()
	if err != nil {
		return err
	}
	defer done()

	result, err := eng.DemographicContext(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("context failed: %w", err)
	}
	return cli.WriteContext(cmd.OutOrStdout(), result, cli.FormatFor(jsonOutput))
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := joinArgs(args)
	if question == "" {
		return models.ErrEmptyQuery
	}
	eng, done, err := openEngine()
	if err != nil {
		return err
	}
	defer done()

	answer, err := eng.Ask(cmd.Context(), question, topK)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	return cli.WriteAnswer(cmd.OutOrStdout(), answer, cli.FormatFor(jsonOutput))
}
