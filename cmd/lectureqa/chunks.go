package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var chunksJSON bool

var chunksCmd = &cobra.Command{
	Use:   "chunks",
	Short: "List stored chunks",
	Args:  cobra.NoArgs,
	RunE:  runChunks,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ingestion statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	chunksCmd.Flags().BoolVar(&chunksJSON, "json", false, "output chunks as JSON")
	rootCmd.AddCommand(chunksCmd)
	rootCmd.AddCommand(statsCmd)
}

func runChunks(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	chunks, err := a.svc.Chunks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}

	out := cmd.OutOrStdout()
	if chunksJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(chunks)
	}
	if len(chunks) == 0 {
		_, _ = fmt.Fprintln(out, "No chunks stored.")
		return nil
	}
	for _, c := range chunks {
		_, _ = fmt.Fprintf(out, "[%s] %s %s\n", c.ID, c.Metadata.Timestamp, c.Metadata.SourcePath)
		_, _ = fmt.Fprintf(out, "    %s\n", preview(c.Text, 120))
	}
	_, _ = fmt.Fprintf(out, "\n%d chunk(s)\n", len(chunks))
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	stats, err := a.svc.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
