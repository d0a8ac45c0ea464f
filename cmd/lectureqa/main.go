package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// Question answering over transcribed lectures, with spoken answers.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Lecture QA API
//   description: |
//     Ingests lecture recordings into a searchable transcript store and answers
//     typed or spoken questions from it. Answers can be synthesized to speech.
//   version: 1.0.0
// schemes:
//   - http
// consumes:
//   - application/json
//   - multipart/form-data
// produces:
//   - application/json

var rootCmd = &cobra.Command{
	Use:   "lectureqa",
	Short: "Ask questions about recorded lectures",
	Long: `lectureqa transcribes lecture recordings, stores the transcripts as
searchable chunks and answers questions about them, optionally out loud.

Configuration is read from the environment and from a .env file.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
