package llm

// DefaultTemperature applies when ChatParams.Temperature is zero.
const DefaultTemperature float32 = 0.7

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatParams tunes a single completion. Zero values fall back to the
// client's model and DefaultTemperature; MaxTokens 0 leaves the server default.
type ChatParams struct {
	Model       string
	MaxTokens   int
	Temperature float32
}
