package testutils

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// GeminiReply builds a generateContent response body carrying text.
func GeminiReply(text string) string {
	payload := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
					"role":  "model",
				},
			},
		},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

// UpstreamCall is one request received by a FakeUpstream.
type UpstreamCall struct {
	Method string
	Path   string
	Key    string
	Body   []byte
}

// FakeUpstream is an httptest server standing in for the Gemini API.
type FakeUpstream struct {
	*httptest.Server

	mu     sync.Mutex
	calls  []UpstreamCall
	status int
	body   string
}

// NewFakeUpstream starts a fake upstream answering with status and body.
func NewFakeUpstream(status int, body string) *FakeUpstream {
	f := &FakeUpstream{status: status, body: body}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

func (f *FakeUpstream) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.calls = append(f.calls, UpstreamCall{
		Method: r.Method,
		Path:   r.URL.Path,
		Key:    r.URL.Query().Get("key"),
		Body:   body,
	})
	status, respBody := f.status, f.body
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(respBody))
}

// Respond changes the canned response.
func (f *FakeUpstream) Respond(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.body = body
}

// Calls returns the requests received so far.
func (f *FakeUpstream) Calls() []UpstreamCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]UpstreamCall, len(f.calls))
	copy(out, f.calls)
	return out
}
