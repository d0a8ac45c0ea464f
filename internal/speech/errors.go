package speech

import "errors"

var (
	// ErrSynthesisTimeout is returned when the local engine ran past its deadline.
	ErrSynthesisTimeout = errors.New("speech synthesis timed out")
	// ErrSynthesisFailed is returned when an engine could not produce speech.
	ErrSynthesisFailed = errors.New("speech synthesis failed")
	// ErrNothingToSpeak is returned for text with no speakable content.
	ErrNothingToSpeak = errors.New("nothing to speak")
)
