package orchestrator

import (
	"fmt"
	"sync"
	"time"
)

const debugTimeLayout = "15:04:05"

// debugLog keeps the most recent timestamped lines.
type debugLog struct {
	mu    sync.Mutex
	size  int
	lines []string
}

func newDebugLog(size int) *debugLog {
	return &debugLog{size: size}
}

func (d *debugLog) add(at time.Time, msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lines = append(d.lines, fmt.Sprintf("%s: %s", at.Format(debugTimeLayout), msg))
	if over := len(d.lines) - d.size; over > 0 {
		d.lines = append([]string(nil), d.lines[over:]...)
	}
}

func (d *debugLog) snapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.lines...)
}
