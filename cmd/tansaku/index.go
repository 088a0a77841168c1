package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var indexCmd = &cobra.Command{
	Use:   "index <file-or-directory>...",
	Short: "Index report files as sources",
	Long: `Extracts, chunks, embeds and indexes each report (text, Markdown, CSV, PDF,
DOCX, PPTX, XLSX, ODP, ODS). Directories are walked recursively. The source
ID is derived from the absolute path, so indexing a file again replaces its
passages. Stop the server first; the keyword index and database are opened
directly.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <source-id>",
	Short: "Delete a source and its passages",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(indexCmd, deleteCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, _, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer components.Close()
	defer components.SaveVectorIndex()

	var failed int
	for _, path := range args {
		if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
			n, err := components.Indexer.IndexDirectory(cmd.Context(), path)
			if err != nil {
				failed++
				cmd.PrintErrf("Indexing %s failed: %v\n", path, err)
				continue
			}
			cmd.Printf("Indexed %d report(s) from %s\n", n, path)
			continue
		}
		src, n, err := components.Indexer.IndexFile(cmd.Context(), path)
		if err != nil {
			failed++
			logger.Warn("indexing failed", zap.String("path", path), zap.Error(err))
			cmd.PrintErrf("Indexing %s failed: %v\n", path, err)
			continue
		}
		cmd.Printf("Indexed %s: %s (%d passages)\n", path, src.ID, n)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d path(s) failed to index", failed, len(args))
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	cfg, _, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer components.Close()

	if err := components.Indexer.DeleteSource(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("deletion failed: %w", err)
	}
	components.SaveVectorIndex()
	cmd.Printf("Source deleted: %s\n", args[0])
	return nil
}
