package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/", "test-key", "test-model")
	if client.baseURL != "http://localhost:8080" {
		t.Errorf("baseURL = %v, want trailing slash trimmed", client.baseURL)
	}
	if client.model != "test-model" {
		t.Errorf("model = %v, want test-model", client.model)
	}
	if client.hc == nil {
		t.Error("http client should not be nil")
	}
}

func TestClient_Complete(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "You answer questions about lectures."},
		{Role: "user", Content: "What is entropy?"},
	}

	tests := []struct {
		name       string
		params     ChatParams
		serverResp func(t *testing.T, w http.ResponseWriter, r *http.Request)
		wantReply  string
		wantErr    bool
	}{
		{
			name:   "successful completion",
			params: ChatParams{MaxTokens: 500},
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/v1/chat/completions" {
					t.Errorf("expected /v1/chat/completions, got %s", r.URL.Path)
				}
				if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
					t.Error("missing Authorization header")
				}

				var req ChatRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Fatalf("decode request: %v", err)
				}
				if req.Model != "test-model" {
					t.Errorf("model = %q, want test-model", req.Model)
				}
				if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
					t.Errorf("messages = %+v", req.Messages)
				}
				if req.MaxTokens != 500 {
					t.Errorf("max_tokens = %d, want 500", req.MaxTokens)
				}
				if req.Temperature == nil || *req.Temperature != DefaultTemperature {
					t.Errorf("temperature = %v, want default", req.Temperature)
				}

				_ = json.NewEncoder(w).Encode(ChatResponse{
					Choices: []ChatChoice{{Message: Message{Role: "assistant", Content: "A measure of disorder."}}},
				})
			},
			wantReply: "A measure of disorder.",
		},
		{
			name:   "model override",
			params: ChatParams{Model: "other", Temperature: 0.2},
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				var req ChatRequest
				_ = json.NewDecoder(r.Body).Decode(&req)
				if req.Model != "other" {
					t.Errorf("model = %q, want other", req.Model)
				}
				if req.Temperature == nil || *req.Temperature != 0.2 {
					t.Errorf("temperature = %v, want 0.2", req.Temperature)
				}
				_ = json.NewEncoder(w).Encode(ChatResponse{
					Choices: []ChatChoice{{Message: Message{Content: "ok"}}},
				})
			},
			wantReply: "ok",
		},
		{
			name: "no choices",
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(ChatResponse{})
			},
			wantErr: true,
		},
		{
			name: "server error",
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("loading model"))
			},
			wantErr: true,
		},
		{
			name: "truncated reply still returned",
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(ChatResponse{
					Choices: []ChatChoice{{Message: Message{Content: "Entropy is"}, FinishReason: "length"}},
					Usage:   &Usage{PromptTokens: 900, CompletionTokens: 100},
				})
			},
			wantReply: "Entropy is",
		},
		{
			name: "malformed body",
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{not json"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.serverResp(t, w, r)
			}))
			defer server.Close()

			client := NewClient(server.URL, "test-key", "test-model")
			reply, err := client.Complete(context.Background(), messages, tt.params)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Complete() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Complete() unexpected error: %v", err)
			}
			if reply != tt.wantReply {
				t.Errorf("Complete() = %q, want %q", reply, tt.wantReply)
			}
		})
	}
}

func TestClient_Complete_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL, "k", "m")
	if _, err := client.Complete(ctx, []Message{{Role: "user", Content: "hi"}}, ChatParams{}); err == nil {
		t.Error("Complete() with canceled context should fail")
	}
}

func TestClient_Complete_NoMessages(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", "k", "m")
	if _, err := client.Complete(context.Background(), nil, ChatParams{}); err == nil {
		t.Error("Complete() with no messages should fail")
	}
}
