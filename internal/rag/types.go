package rag

import "lecture-qa/internal/content"

// Document is a retrieved chunk as seen by the answering layer.
type Document struct {
	Content  string           `json:"content"`
	Metadata content.Metadata `json:"metadata"`
}

// Reference points at a transcript that contributed context to an answer.
type Reference struct {
	// SourcePath is the transcript file the chunk was cut from.
	SourcePath string `json:"source"`
	// Timestamp is the transcript's creation stamp.
	Timestamp string `json:"timestamp"`
}

// AskResponse is an answer with the references used to produce it.
type AskResponse struct {
	Answer     string      `json:"answer"`
	References []Reference `json:"references"`
	// Fallback is set when Answer is FallbackAnswer because something failed.
	Fallback bool `json:"fallback,omitempty"`
}
