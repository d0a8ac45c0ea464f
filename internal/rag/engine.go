// Package rag answers questions from retrieved lecture chunks.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"lecture-qa/internal/contextutil"
	"lecture-qa/internal/llm"
)

// FallbackAnswer is returned whenever an answer could not be produced.
const FallbackAnswer = "Sorry, I am unable to answer this question."

const (
	systemPrompt = "You are a knowledgeable teaching assistant. Answer accurately based on the provided lecture content."

	promptTemplate = `Here is some content from the lecture:
%s

Question:
%s

Rules:
1. Answer in the same language as the question.
2. If the question is in Chinese, answer in Chinese. If it is in English, answer in English. If it is in Japanese, answer in Japanese. Follow the same rule for any other language.
3. If the content does not contain the answer, say so.
4. Explain with simple, concrete examples so the answer is easy to understand.`

	answerTemperature = 0.7
	answerMaxTokens   = 500
)

// ErrCompletion is logged when the completion collaborator failed or returned nothing.
var ErrCompletion = errors.New("completion failed")

// DocumentRetriever returns context documents for a question.
type DocumentRetriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Document, error)
}

// Completer is the chat completion collaborator.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Engine fills the fixed prompt with retrieved context and asks the model.
type Engine struct {
	retriever DocumentRetriever
	completer Completer
	tokens    *llm.TokenCounter
	logger    *slog.Logger
}

// NewEngine creates a new answer engine. tokens may be nil.
func NewEngine(retriever DocumentRetriever, completer Completer, tokens *llm.TokenCounter) *Engine {
	return &Engine{
		retriever: retriever,
		completer: completer,
		tokens:    tokens,
		logger:    slog.Default(),
	}
}

func (e *Engine) getLogger(ctx context.Context) *slog.Logger {
	if l := contextutil.LoggerFromContext(ctx); l != slog.Default() {
		return l
	}
	return e.logger
}

// Answer returns the model's answer to question, or FallbackAnswer.
func (e *Engine) Answer(ctx context.Context, question string) string {
	return e.Ask(ctx, question).Answer
}

// Ask answers question and reports the transcripts used as context.
// It never fails: every error is logged and replaced by FallbackAnswer.
func (e *Engine) Ask(ctx context.Context, question string) AskResponse {
	logger := e.getLogger(ctx)
	fallback := AskResponse{Answer: FallbackAnswer, References: []Reference{}, Fallback: true}

	docs, err := e.retriever.Retrieve(ctx, question, DefaultK)
	if err != nil {
		logger.ErrorContext(ctx, "failed to retrieve context", "error", err)
		return fallback
	}
	logger.InfoContext(ctx, "context retrieved", "documents", len(docs))

	contextBlock := BuildContext(docs)
	prompt := BuildPrompt(contextBlock, question)

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}
	logger.DebugContext(ctx, "sending prompt",
		"prompt_tokens", e.tokens.Count(systemPrompt)+e.tokens.Count(prompt),
		"context_length", len(contextBlock),
	)

	answer, err := e.completer.Complete(ctx, messages, llm.ChatParams{
		MaxTokens:   answerMaxTokens,
		Temperature: answerTemperature,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to get answer", "error", fmt.Errorf("%w: %w", ErrCompletion, err))
		return fallback
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		logger.ErrorContext(ctx, "failed to get answer", "error", fmt.Errorf("%w: empty response", ErrCompletion))
		return fallback
	}

	logger.InfoContext(ctx, "answer generated", "answer_length", len(answer))
	return AskResponse{Answer: answer, References: references(docs)}
}

// BuildContext joins document contents in retrieval order.
func BuildContext(docs []Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt fills the fixed prompt template.
func BuildPrompt(contextBlock, question string) string {
	return fmt.Sprintf(promptTemplate, contextBlock, question)
}

// references lists each contributing transcript once, in retrieval order.
func references(docs []Document) []Reference {
	seen := make(map[string]bool, len(docs))
	refs := make([]Reference, 0, len(docs))
	for _, d := range docs {
		if seen[d.Metadata.SourcePath] {
			continue
		}
		seen[d.Metadata.SourcePath] = true
		refs = append(refs, Reference{SourcePath: d.Metadata.SourcePath, Timestamp: d.Metadata.Timestamp})
	}
	return refs
}
