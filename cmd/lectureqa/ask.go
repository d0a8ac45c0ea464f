package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lecture-qa/internal/service"
)

var (
	askSpeak bool
	askOut   string
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the stored lectures",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askSpeak, "speak", false, "speak the answer")
	askCmd.Flags().StringVarP(&askOut, "out", "o", "", "copy synthesized audio to this file")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	resp, err := a.svc.Ask(ctx, service.AskRequest{
		Question: strings.Join(args, " "),
		Speak:    askSpeak || askOut != "",
	})
	if err != nil {
		return err
	}

	if err := printAnswer(cmd.OutOrStdout(), resp); err != nil {
		return err
	}

	if askOut == "" {
		return nil
	}
	id, err := outAudioID(resp, askOut)
	if err != nil {
		return err
	}
	return copyAudio(a.svc, id, askOut)
}

// outAudioID returns the artifact to copy to out, or why there is none.
func outAudioID(resp service.AskResponse, out string) (string, error) {
	s := resp.Speech
	switch {
	case s == nil:
		return "", fmt.Errorf("no audio written to %s: the answer was not synthesized", out)
	case s.Error != "":
		return "", fmt.Errorf("no audio written to %s: %s", out, s.Error)
	case s.AudioID == "":
		return "", fmt.Errorf("no audio written to %s: the %s engine played the answer without producing a file", out, s.Engine)
	}
	return s.AudioID, nil
}

func printAnswer(out io.Writer, resp service.AskResponse) error {
	if askJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	_, _ = fmt.Fprintln(out, resp.Answer)
	if len(resp.References) > 0 {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, "Sources:")
		for _, ref := range resp.References {
			_, _ = fmt.Fprintf(out, "  %s (%s)\n", ref.SourcePath, ref.Timestamp)
		}
	}
	if s := resp.Speech; s != nil {
		_, _ = fmt.Fprintln(out)
		if s.Error != "" {
			_, _ = fmt.Fprintf(out, "Speech failed: %s\n", s.Error)
		} else {
			_, _ = fmt.Fprintf(out, "Spoken by %s engine in %s\n", s.Engine, s.Language)
		}
	}
	return nil
}

func copyAudio(svc service.QAService, id, dst string) error {
	artifact, ok := svc.Audio(id)
	if !ok {
		return fmt.Errorf("audio %s already released", id)
	}
	src, err := os.Open(artifact.Path)
	if err != nil {
		return fmt.Errorf("failed to open audio: %w", err)
	}
	defer func() {
		_ = src.Close()
	}()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return f.Close()
}
