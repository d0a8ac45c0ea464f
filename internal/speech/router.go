// Package speech turns answers into audio. A Router walks an explicit state
// machine: detect the language, pick an engine, try the local engine, and
// fall back to the online engine once.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lecture-qa/internal/contextutil"
)

// DefaultLocalTimeout bounds one local synthesis.
const DefaultLocalTimeout = 30 * time.Second

// State is a router state.
type State string

const (
	StateStart                   State = "start"
	StateDetectLanguage          State = "detect_language"
	StateSelectEngine            State = "select_engine"
	StateLocalSynthesis          State = "local_synthesis"
	StateOnlineSynthesis         State = "online_synthesis"
	StateFallbackOnlineSynthesis State = "fallback_online_synthesis"
	StateDone                    State = "done"
)

// LocalSynthesizer renders speech itself, without leaving a file.
type LocalSynthesizer interface {
	Synthesize(ctx context.Context, text string, lang Language) error
}

// OnlineSynthesizer writes speech to a file artifact. langCode is the
// engine's code from OnlineLanguageCode.
type OnlineSynthesizer interface {
	Synthesize(ctx context.Context, text, langCode string) (*Artifact, error)
}

// Result is the outcome of Speak.
type Result struct {
	Language Language  `json:"language"`
	Artifact *Artifact `json:"-"`
	// Trace lists the states visited, Start through Done.
	Trace []State `json:"trace"`
	// LocalErr is why the local engine was abandoned, if it was.
	LocalErr error `json:"-"`
}

// Router decides which engine speaks an answer.
type Router struct {
	local        LocalSynthesizer
	online       OnlineSynthesizer
	localTimeout time.Duration
	logger       *slog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLocalTimeout overrides DefaultLocalTimeout.
func WithLocalTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		if d > 0 {
			r.localTimeout = d
		}
	}
}

// NewRouter creates a router. local may be nil, in which case every language
// goes to the online engine.
func NewRouter(local LocalSynthesizer, online OnlineSynthesizer, opts ...RouterOption) *Router {
	r := &Router{
		local:        local,
		online:       online,
		localTimeout: DefaultLocalTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) getLogger(ctx context.Context) *slog.Logger {
	if l := contextutil.LoggerFromContext(ctx); l != slog.Default() {
		return l
	}
	return r.logger
}

// Speak synthesizes text, which may be markdown. questionLang is the language
// of the question being answered, or LangUnknown.
// Online failures are terminal and wrap ErrSynthesisFailed.
func (r *Router) Speak(ctx context.Context, text string, questionLang Language) (*Result, error) {
	logger := r.getLogger(ctx)

	spoken := PlainText(text)
	if spoken == "" {
		return nil, ErrNothingToSpeak
	}

	res := &Result{}
	state := StateStart
	for {
		res.Trace = append(res.Trace, state)
		if state == StateDone {
			break
		}

		next, err := r.step(ctx, state, spoken, questionLang, res)
		if err != nil {
			logger.ErrorContext(ctx, "speech synthesis failed", "state", state, "language", res.Language, "error", err)
			return res, err
		}
		logger.DebugContext(ctx, "speech transition", "from", state, "to", next)
		state = next
	}

	logger.InfoContext(ctx, "speech synthesized",
		"language", res.Language,
		"engine", res.Artifact.Engine,
		"artifact", res.Artifact.Kind,
		"fallback", res.LocalErr != nil,
	)
	return res, nil
}

// step runs one state and returns the next.
func (r *Router) step(ctx context.Context, state State, text string, questionLang Language, res *Result) (State, error) {
	switch state {
	case StateStart:
		return StateDetectLanguage, nil

	case StateDetectLanguage:
		res.Language = ResolveLanguage(text, questionLang)
		return StateSelectEngine, nil

	case StateSelectEngine:
		if r.local == nil || !localCapable(res.Language) {
			return StateOnlineSynthesis, nil
		}
		return StateLocalSynthesis, nil

	case StateLocalSynthesis:
		err := r.runLocal(ctx, text, res.Language)
		if err == nil {
			res.Artifact = &Artifact{Kind: ArtifactNone, Engine: EngineLocal}
			return StateDone, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		r.getLogger(ctx).WarnContext(ctx, "local speech engine failed, falling back", "error", err)
		res.LocalErr = err
		return StateFallbackOnlineSynthesis, nil

	case StateOnlineSynthesis, StateFallbackOnlineSynthesis:
		artifact, err := r.online.Synthesize(ctx, text, OnlineLanguageCode(res.Language))
		if err != nil {
			if errors.Is(err, ErrSynthesisFailed) {
				return "", err
			}
			return "", fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
		}
		res.Artifact = artifact
		return StateDone, nil
	}

	return "", fmt.Errorf("unknown speech state %q", state)
}

// localCapable reports whether the local engine has voices for lang.
func localCapable(lang Language) bool {
	return lang != LangJapanese && lang != LangKorean
}

// runLocal runs the local engine in its own goroutine and stops waiting at
// the timeout even if the engine ignores cancellation.
func (r *Router) runLocal(ctx context.Context, text string, lang Language) error {
	localCtx, cancel := context.WithTimeout(ctx, r.localTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- r.local.Synthesize(localCtx, text, lang)
	}()

	select {
	case err := <-done:
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrSynthesisTimeout), errors.Is(err, ErrSynthesisFailed):
			return err
		case errors.Is(localCtx.Err(), context.DeadlineExceeded):
			return fmt.Errorf("%w after %s: %w", ErrSynthesisTimeout, r.localTimeout, err)
		}
		return fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	case <-localCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w after %s", ErrSynthesisTimeout, r.localTimeout)
	}
}
