package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"lecture-qa/internal/indexer"
)

var ingestTranscripts bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [audio...]",
	Short: "Transcribe and store lecture recordings",
	Long: `Transcribes each recording, archives the transcript and stores its chunks.
With --transcripts, archived transcripts that have no stored chunks are
ingested instead.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestTranscripts, "transcripts", false, "re-ingest archived transcripts")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !ingestTranscripts {
		return errors.New("no audio files given")
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	out := cmd.OutOrStdout()
	if ingestTranscripts {
		n, err := a.svc.ReindexTranscripts(ctx)
		_, _ = fmt.Fprintf(out, "Ingested %d transcript(s)\n", n)
		if err != nil {
			return fmt.Errorf("reindex finished with errors: %w", err)
		}
	}

	var errs []error
	for _, path := range args {
		res, err := a.svc.IngestLecture(ctx, path)
		if err != nil {
			var partial *indexer.PartialIngestionError
			if errors.As(err, &partial) {
				_, _ = fmt.Fprintf(out, "%s: stored %d of %d chunks before failing\n", path, partial.Stored, partial.Total)
			}
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		_, _ = fmt.Fprintf(out, "%s: %d chunk(s) from %s\n", path, res.Stored(), res.TranscriptPath)
	}
	return errors.Join(errs...)
}
