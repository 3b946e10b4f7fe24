package orchestrator_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/papercomputeco/voxrelay/pkg/llm"
)

// stepClock advances by step on every reading.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock(step time.Duration) *stepClock {
	return &stepClock{now: time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC), step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

type fakeRecognizer struct {
	transcript string
	err        error
	block      bool
	missing    bool
}

func (f *fakeRecognizer) Recognize(ctx context.Context) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.transcript, f.err
}

func (f *fakeRecognizer) Available() bool { return !f.missing }

type fakeSynthesizer struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

func (f *fakeSynthesizer) Speak(_ context.Context, text string, onStart func()) error {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	onStart()
	return nil
}

func (f *fakeSynthesizer) Spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

type relayError struct {
	status int
	msg    string
}

func (e *relayError) Error() string        { return fmt.Sprintf("relay returned %d: %s", e.status, e.msg) }
func (e *relayError) StatusCode() int      { return e.status }
func (e *relayError) ErrorMessage() string { return e.msg }

type fakeRelay struct {
	mu       sync.Mutex
	messages []string
	reply    string
	err      error

	// release gates replies when set.
	release chan struct{}
}

func (f *fakeRelay) Chat(ctx context.Context, message string) (*llm.ChatResponse, error) {
	f.mu.Lock()
	f.messages = append(f.messages, message)
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			// Simulates a reply that arrives after cancellation.
			<-release
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return llm.NewChatResponse(f.reply, "gemini-1.5-flash", time.Now()), nil
}

func (f *fakeRelay) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}
