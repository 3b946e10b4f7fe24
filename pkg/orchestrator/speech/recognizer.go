// Package speech provides terminal stand-ins and command-line engines for the
// orchestrator's recognizer and synthesizer ports.
package speech

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrNoSpeech is returned when the input ends without a transcript.
var ErrNoSpeech = errors.New("no-speech")

type lineResult struct {
	text string
	err  error
}

// LineRecognizer treats one line of input as the recognized utterance.
//
// A single goroutine owns the reader, so a recognition that is cancelled
// mid-read leaves the pending line for the next caller instead of racing it.
type LineRecognizer struct {
	reader *bufio.Reader
	once   sync.Once
	lines  chan lineResult
}

// NewLineRecognizer reads utterances from r.
func NewLineRecognizer(r io.Reader) *LineRecognizer {
	return &LineRecognizer{
		reader: bufio.NewReader(r),
		lines:  make(chan lineResult),
	}
}

func (l *LineRecognizer) pump() {
	defer close(l.lines)
	for {
		line, err := l.reader.ReadString('\n')
		if line != "" || err == nil {
			l.lines <- lineResult{text: line}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				l.lines <- lineResult{err: err}
			}
			return
		}
	}
}

// ReadLine returns the next raw line with its trailing newline removed.
// It returns io.EOF once the input is exhausted.
func (l *LineRecognizer) ReadLine(ctx context.Context) (string, error) {
	l.once.Do(func() { go l.pump() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-l.lines:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimRight(res.text, "\r\n"), nil
	}
}

// Recognize returns the next line as a transcript. A blank line or end of
// input is a no-speech error.
func (l *LineRecognizer) Recognize(ctx context.Context) (string, error) {
	line, err := l.ReadLine(ctx)
	switch {
	case errors.Is(err, io.EOF):
		return "", ErrNoSpeech
	case err != nil:
		return "", err
	}

	text := strings.TrimSpace(line)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}
