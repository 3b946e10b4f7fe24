package talkcmder

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/papercomputeco/voxrelay/pkg/cliui"
)

// terminalUI is the orchestrator's notifier and display for a terminal.
// Replies render as markdown when out is a terminal.
type terminalUI struct {
	mu       sync.Mutex
	out      io.Writer
	errOut   io.Writer
	markdown bool
}

func newTerminalUI(out, errOut io.Writer, markdown bool) *terminalUI {
	return &terminalUI{out: out, errOut: errOut, markdown: markdown}
}

func (t *terminalUI) Notify(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.errOut, "\n  %s %s\n\n", cliui.FailMark, cliui.WarnStyle.Render(msg))
}

func (t *terminalUI) ShowReply(reply string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "\n%s", assistantPrompt)
	if t.markdown {
		if rendered, err := cliui.RenderMarkdown(reply); err == nil {
			fmt.Fprintf(t.out, "\n%s\n", strings.TrimRight(rendered, "\n"))
			return
		}
	}
	fmt.Fprintf(t.out, "%s\n\n", reply)
}
