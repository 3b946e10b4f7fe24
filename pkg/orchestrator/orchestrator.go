// Package orchestrator sequences voice chat turns: capture an utterance, relay
// it, speak the reply, and time every stage.
//
// Speech engines, the relay, and user alerts are injected ports, so the same
// sequencing runs against a terminal, real engines, or test fakes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/voxrelay/pkg/llm"
	"github.com/papercomputeco/voxrelay/pkg/metrics"
)

const (
	DefaultAutoSubmitDelay = 500 * time.Millisecond
	DefaultTargetLatency   = 1200 * time.Millisecond
	DefaultDebugLogSize    = 5
)

// User-visible notices.
const (
	NoticeRecognitionUnsupported = "Speech recognition not supported on this system. Type your message instead."
	NoticeSendFailed             = "Failed to send message"
)

var (
	// ErrRecognitionUnavailable is returned by StartVoiceTurn when no
	// recognizer is available.
	ErrRecognitionUnavailable = errors.New("speech recognition not supported")

	// ErrEmptyMessage is returned when typed input is blank.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrStaleTurn is returned when a turn was superseded or stopped before
	// it finished. Its results were discarded.
	ErrStaleTurn = errors.New("turn is no longer active")
)

// Recognizer captures one utterance. It yields exactly one terminal result:
// a transcript or an error.
type Recognizer interface {
	Recognize(ctx context.Context) (string, error)
}

// Synthesizer speaks text and calls onStart once audio begins.
type Synthesizer interface {
	Speak(ctx context.Context, text string, onStart func()) error
}

// RelayClient sends one message to the relay endpoint.
type RelayClient interface {
	Chat(ctx context.Context, message string) (*llm.ChatResponse, error)
}

// Notifier shows a user-visible alert.
type Notifier interface {
	Notify(msg string)
}

// Display shows the reply before it is spoken.
type Display interface {
	ShowReply(reply string)
}

// StatusError is implemented by relay errors carrying the endpoint's error message.
type StatusError interface {
	error
	StatusCode() int
	ErrorMessage() string
}

// Status is the orchestrator's coarse state.
type Status int

const (
	StatusIdle Status = iota
	StatusListening
	StatusLoading
)

func (s Status) String() string {
	switch s {
	case StatusListening:
		return "listening"
	case StatusLoading:
		return "loading"
	default:
		return "idle"
	}
}

// Deps are the orchestrator's collaborators.
type Deps struct {
	Recognizer  Recognizer
	Synthesizer Synthesizer
	Relay       RelayClient
	Notifier    Notifier
	Display     Display
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

// Options tune timing behavior.
type Options struct {
	// AutoSubmitDelay is the pause between a transcript and sending it.
	// Zero selects DefaultAutoSubmitDelay; a negative value disables it.
	AutoSubmitDelay time.Duration

	// TargetLatency is the total-time goal. Display only.
	TargetLatency time.Duration

	// DebugLogSize is how many debug lines are kept.
	DebugLogSize int

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// Turn is one utterance-to-speech cycle.
type Turn struct {
	ID     uuid.UUID
	cancel context.CancelFunc
}

// Result is the outcome of a completed turn.
type Result struct {
	TurnID     uuid.UUID
	Transcript string
	Reply      string
	Model      string
	Metrics    Metrics
	Spoken     bool
}

// Orchestrator runs turns one at a time. Starting a turn cancels the previous one.
type Orchestrator struct {
	deps   Deps
	opts   Options
	caps   Capabilities
	logger *zap.Logger
	debug  *debugLog

	mu      sync.Mutex
	turn    *Turn
	status  Status
	metrics Metrics
	reply   string
}

// New builds an orchestrator and resolves capabilities once.
func New(deps Deps, opts Options) *Orchestrator {
	switch {
	case opts.AutoSubmitDelay == 0:
		opts.AutoSubmitDelay = DefaultAutoSubmitDelay
	case opts.AutoSubmitDelay < 0:
		opts.AutoSubmitDelay = 0
	}
	if opts.TargetLatency <= 0 {
		opts.TargetLatency = DefaultTargetLatency
	}
	if opts.DebugLogSize <= 0 {
		opts.DebugLogSize = DefaultDebugLogSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Orchestrator{
		deps:   deps,
		opts:   opts,
		caps:   ResolveCapabilities(deps.Recognizer, deps.Synthesizer),
		logger: deps.Logger,
		debug:  newDebugLog(opts.DebugLogSize),
	}
}

// Capabilities returns the capabilities resolved at construction.
func (o *Orchestrator) Capabilities() Capabilities {
	return o.caps
}

// Status returns the current status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Active reports whether a turn is in flight. The status reads idle during
// the auto-submit delay, so this is the check for "at the prompt".
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.turn != nil
}

// Metrics returns the current turn's metrics.
func (o *Orchestrator) Metrics() Metrics {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.metrics
}

// Reply returns the last reply shown.
func (o *Orchestrator) Reply() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reply
}

// WithinTarget reports whether the current turn met the target latency.
func (o *Orchestrator) WithinTarget() bool {
	return o.Metrics().WithinTarget(o.opts.TargetLatency)
}

// TargetLatency returns the configured target.
func (o *Orchestrator) TargetLatency() time.Duration {
	return o.opts.TargetLatency
}

// DebugLog returns the most recent debug lines, oldest first.
func (o *Orchestrator) DebugLog() []string {
	return o.debug.snapshot()
}

// Stop cancels the active turn. Its pending results are discarded.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	t := o.turn
	o.turn = nil
	o.status = StatusIdle
	o.mu.Unlock()

	if t != nil {
		t.cancel()
		o.log("Speech recognition stopped")
	}
}

// StartVoiceTurn listens for one utterance and, after the auto-submit delay,
// relays it and speaks the reply.
func (o *Orchestrator) StartVoiceTurn(ctx context.Context) (*Result, error) {
	if o.caps.Recognition == Unavailable {
		o.log("Speech recognition not supported")
		o.notify(NoticeRecognitionUnsupported)
		o.deps.Metrics.TurnAborted("unsupported")
		return nil, ErrRecognitionUnavailable
	}

	turn, ctx := o.begin(ctx)
	defer turn.cancel()

	start := o.opts.Now()
	o.update(turn, func() {
		o.metrics = Metrics{}
		o.status = StatusListening
	})
	o.log("Starting speech recognition...")

	transcript, err := o.deps.Recognizer.Recognize(ctx)
	sttEnd := o.opts.Now()
	if err != nil {
		if !o.finish(turn) {
			return nil, ErrStaleTurn
		}
		o.log("Speech recognition error: " + err.Error())
		o.notify("Speech recognition error: " + err.Error())
		o.deps.Metrics.TurnAborted("recognition_error")
		return nil, fmt.Errorf("recognizing speech: %w", err)
	}

	if !o.update(turn, func() { o.status = StatusIdle }) {
		return nil, ErrStaleTurn
	}
	o.log("Transcribed: " + transcript)

	if o.opts.AutoSubmitDelay > 0 {
		timer := time.NewTimer(o.opts.AutoSubmitDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ErrStaleTurn
		case <-timer.C:
		}
	}

	return o.continueTurn(ctx, turn, transcript, start, sttEnd)
}

// SubmitText relays typed text. Blank input is ignored. The speech-to-text
// stage is zero by construction.
func (o *Orchestrator) SubmitText(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	turn, ctx := o.begin(ctx)
	defer turn.cancel()

	start := o.opts.Now()
	o.update(turn, func() { o.metrics = Metrics{} })

	return o.continueTurn(ctx, turn, text, start, start)
}

// continueTurn is the shared relay-then-speak continuation.
func (o *Orchestrator) continueTurn(ctx context.Context, turn *Turn, text string, start, sttEnd time.Time) (*Result, error) {
	if !o.update(turn, func() { o.status = StatusLoading }) {
		return nil, ErrStaleTurn
	}
	o.log("Auto-sending to relay...")

	apiStart := o.opts.Now()
	resp, err := o.deps.Relay.Chat(ctx, strings.TrimSpace(text))
	apiEnd := o.opts.Now()

	if err != nil {
		if !o.finish(turn) {
			return nil, ErrStaleTurn
		}
		var se StatusError
		if errors.As(err, &se) {
			o.log("API error: " + se.ErrorMessage())
			o.notify("Error: " + se.ErrorMessage())
		} else {
			o.log("API call failed: " + err.Error())
			o.notify(NoticeSendFailed)
		}
		o.deps.Metrics.TurnAborted("relay_error")
		return nil, fmt.Errorf("relaying message: %w", err)
	}

	result := &Result{
		TurnID:     turn.ID,
		Transcript: text,
		Reply:      resp.Message,
		Model:      resp.Model,
	}

	ok := o.update(turn, func() {
		o.reply = resp.Message
		o.metrics.SpeechToText = sttEnd.Sub(start)
		o.metrics.APICall = apiEnd.Sub(apiStart)
	})
	if !ok {
		return nil, ErrStaleTurn
	}
	o.log("Relay response received")
	if o.deps.Display != nil {
		o.deps.Display.ShowReply(resp.Message)
	}

	if o.caps.Synthesis == Unavailable {
		o.log("Speech synthesis not available")
	} else if err := o.speak(ctx, turn, resp.Message, start); err != nil {
		if !o.finish(turn) {
			return nil, ErrStaleTurn
		}
		o.log("Speech synthesis error: " + err.Error())
		o.notify("Speech synthesis failed: " + err.Error())
		o.deps.Metrics.TurnAborted("synthesis_error")
		result.Metrics = o.Metrics()
		return result, fmt.Errorf("speaking reply: %w", err)
	} else {
		result.Spoken = true
	}

	if !o.finish(turn) {
		return nil, ErrStaleTurn
	}
	result.Metrics = o.Metrics()
	o.observe(result.Metrics)
	return result, nil
}

// speak requests synthesis and records TTS and total time at synthesis start.
func (o *Orchestrator) speak(ctx context.Context, turn *Turn, text string, start time.Time) error {
	ttsStart := o.opts.Now()
	var once sync.Once

	onStart := func() {
		once.Do(func() {
			now := o.opts.Now()
			var m Metrics
			ok := o.update(turn, func() {
				o.metrics.TextToSpeech = now.Sub(ttsStart)
				o.metrics.TotalTime = now.Sub(start)
				m = o.metrics
			})
			if ok {
				o.log(m.String())
			}
		})
	}

	o.log("Speaking AI response")
	return o.deps.Synthesizer.Speak(ctx, text, onStart)
}

// begin starts a new turn, cancelling any previous one.
func (o *Orchestrator) begin(parent context.Context) (*Turn, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	t := &Turn{ID: uuid.New(), cancel: cancel}

	o.mu.Lock()
	prev := o.turn
	o.turn = t
	o.mu.Unlock()

	if prev != nil {
		prev.cancel()
		o.logger.Debug("previous turn superseded", zap.String("turn_id", prev.ID.String()))
	}

	o.logger.Debug("turn started", zap.String("turn_id", t.ID.String()))
	return t, ctx
}

// update applies fn only while turn is current. It reports whether fn ran.
func (o *Orchestrator) update(turn *Turn, fn func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.turn != turn {
		return false
	}
	fn()
	return true
}

// finish returns a current turn to idle and clears it.
func (o *Orchestrator) finish(turn *Turn) bool {
	return o.update(turn, func() {
		o.status = StatusIdle
		o.turn = nil
	})
}

func (o *Orchestrator) observe(m Metrics) {
	if o.deps.Metrics == nil {
		return
	}
	o.deps.Metrics.TurnStage("stt", m.SpeechToText.Seconds())
	o.deps.Metrics.TurnStage("api", m.APICall.Seconds())
	if m.TotalTime > 0 {
		o.deps.Metrics.TurnStage("tts", m.TextToSpeech.Seconds())
		o.deps.Metrics.TurnStage("total", m.TotalTime.Seconds())
		if !m.WithinTarget(o.opts.TargetLatency) {
			o.deps.Metrics.TurnOverTarget()
		}
	}
}

func (o *Orchestrator) log(msg string) {
	o.debug.add(o.opts.Now(), msg)
	o.logger.Debug(msg)
}

func (o *Orchestrator) notify(msg string) {
	if o.deps.Notifier != nil {
		o.deps.Notifier.Notify(msg)
	}
}
