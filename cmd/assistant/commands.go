package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/campus-assistant/internal/domain"
)

var (
	askHistory  []string
	askPanos    []string
	askProjects []string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Run one question through the full pipeline and print the JSON response",
	Example: `  assistant ask "hostel fees"
  assistant ask "what food" --history "is there a canteen"
  assistant ask "go to libary" --pano Library --pano "Main Gate"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var refreshVocabCmd = &cobra.Command{
	Use:   "refresh-vocab",
	Short: "Rebuild the spelling vocabulary from the corpus and report its size",
	Args:  cobra.NoArgs,
	RunE:  runRefreshVocab,
}

var ensureIndexCmd = &cobra.Command{
	Use:   "ensure-index",
	Short: "Create the question vector index if it does not exist",
	Args:  cobra.NoArgs,
	RunE:  runEnsureIndex,
}

func init() {
	askCmd.Flags().StringArrayVar(&askHistory, "history", nil, "Earlier user message, oldest first (repeatable)")
	askCmd.Flags().StringArrayVar(&askPanos, "pano", nil, "Panorama name available for navigation (repeatable)")
	askCmd.Flags().StringArrayVar(&askProjects, "project", nil, "Project name available for navigation (repeatable)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, envName)
	if err != nil {
		return err
	}
	defer a.close()

	history := make([]domain.Turn, len(askHistory))
	for i, h := range askHistory {
		history[i] = domain.Turn{User: h}
	}

	ctx, usage := domain.NewContextWithUsage(ctx)
	resp, err := a.chat.Ask(ctx, domain.Request{
		Question:     strings.Join(args, " "),
		History:      history,
		PanoNames:    askPanos,
		ProjectNames: askProjects,
	})
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}
	a.logger.Debug("Text Service usage",
		zap.Int("calls", usage.Calls()),
		zap.Int("tokens", usage.TotalTokens()),
	)

	return printJSON(cmd, resp)
}

func runRefreshVocab(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), envName)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.vocab.Refresh(cmd.Context())
	if err != nil {
		return fmt.Errorf("refresh vocabulary: %w", err)
	}
	return printJSON(cmd, map[string]any{
		"success":   true,
		"count":     res.Count,
		"loaded_at": res.LoadedAt,
	})
}

func runEnsureIndex(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), envName)
	if err != nil {
		return err
	}
	defer a.close()

	created, err := a.search.EnsureIndex(cmd.Context(), a.cfg.TextService.Dimensions)
	if err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	return printJSON(cmd, map[string]any{
		"index":   a.search.IndexName(),
		"created": created,
	})
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
