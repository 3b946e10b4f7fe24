package orchestrator

import (
	"fmt"
	"time"
)

// Metrics are the per-stage durations of one turn. Fields are filled in as
// stages complete and reset when a new turn starts.
type Metrics struct {
	// SpeechToText is turn start to transcript. Zero for typed turns.
	SpeechToText time.Duration `json:"speech_to_text"`

	// APICall is relay request to relay response.
	APICall time.Duration `json:"api_call"`

	// TextToSpeech is synthesis request to synthesis start.
	TextToSpeech time.Duration `json:"text_to_speech"`

	// TotalTime is turn start to synthesis start.
	TotalTime time.Duration `json:"total_time"`
}

// String formats the metrics as the performance log line.
func (m Metrics) String() string {
	return fmt.Sprintf("Performance: STT=%dms, API=%dms, TTS=%dms, Total=%dms",
		m.SpeechToText.Milliseconds(),
		m.APICall.Milliseconds(),
		m.TextToSpeech.Milliseconds(),
		m.TotalTime.Milliseconds(),
	)
}

// WithinTarget reports whether the total time met target. A turn that never
// reached synthesis has no total and is not judged.
func (m Metrics) WithinTarget(target time.Duration) bool {
	return m.TotalTime <= target
}
