package talkcmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	talkcmder "github.com/papercomputeco/voxrelay/cmd/voxrelay/talk"
	"github.com/papercomputeco/voxrelay/pkg/llm"
)

func newTestTalkCmd(configDir, input string, args ...string) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := talkcmder.NewTalkCmd()
	cmd.Flags().String("config-dir", configDir, "")
	cmd.Flags().Bool("debug", false, "")

	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	return cmd, &out, &errOut
}

var _ = Describe("NewTalkCmd", func() {
	var (
		relay     *httptest.Server
		chatCalls atomic.Int32
		status    int
		configDir string
	)

	BeforeEach(func() {
		chatCalls.Store(0)
		status = http.StatusOK
		configDir = GinkgoT().TempDir()

		relay = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
				_, _ = w.Write([]byte("{}"))
				return
			}

			chatCalls.Add(1)
			var req llm.ChatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(llm.ErrorResponse{Error: "Message is required"})
				return
			}

			if status != http.StatusOK {
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(llm.ErrorResponse{Error: "Missing API key"})
				return
			}
			_ = json.NewEncoder(w).Encode(llm.NewChatResponse("echo: "+req.Message, "gemini-test", time.Now()))
		}))
	})

	AfterEach(func() {
		relay.Close()
	})

	It("registers flags with config defaults", func() {
		cmd := talkcmder.NewTalkCmd()
		Expect(cmd.Flags().Lookup("relay-target").DefValue).To(Equal("http://localhost:3000"))
		Expect(cmd.Flags().Lookup("auto-submit-ms").DefValue).To(Equal("500"))
		Expect(cmd.Flags().Lookup("target-latency-ms").DefValue).To(Equal("1200"))
		Expect(cmd.Flags().Lookup("synthesizer").DefValue).To(Equal("auto"))
		Expect(cmd.Flags().Lookup("no-cache")).NotTo(BeNil())
	})

	It("relays typed messages and prints the latency breakdown", func() {
		cmd, out, _ := newTestTalkCmd(configDir, "what time is it?\n/exit\n",
			"--no-cache", "--synthesizer", "text", "--relay-target", relay.URL)

		Expect(cmd.Execute()).To(Succeed())
		Expect(chatCalls.Load()).To(Equal(int32(1)))
		Expect(out.String()).To(ContainSubstring("echo: what time is it?"))
		Expect(out.String()).To(ContainSubstring("Performance: STT=0ms"))
	})

	It("takes the line after /voice as the utterance", func() {
		cmd, out, _ := newTestTalkCmd(configDir, "/voice\nhello there\n",
			"--no-cache", "--synthesizer", "text", "--auto-submit-ms", "-1", "--relay-target", relay.URL)

		Expect(cmd.Execute()).To(Succeed())
		Expect(chatCalls.Load()).To(Equal(int32(1)))
		Expect(out.String()).To(ContainSubstring("echo: hello there"))
	})

	It("notifies on a blank utterance without calling the relay", func() {
		cmd, _, errOut := newTestTalkCmd(configDir, "/voice\n\n/exit\n",
			"--no-cache", "--synthesizer", "text", "--relay-target", relay.URL)

		Expect(cmd.Execute()).To(Succeed())
		Expect(chatCalls.Load()).To(BeZero())
		Expect(errOut.String()).To(ContainSubstring("Speech recognition error: no-speech"))
	})

	It("shows the relay's error message", func() {
		status = http.StatusInternalServerError
		cmd, _, errOut := newTestTalkCmd(configDir, "hi\n",
			"--no-cache", "--synthesizer", "text", "--relay-target", relay.URL)

		Expect(cmd.Execute()).To(Succeed())
		Expect(errOut.String()).To(ContainSubstring("Error: Missing API key"))
	})

	It("reports a generic failure when the relay is unreachable", func() {
		unreachable := httptest.NewServer(http.NotFoundHandler())
		target := unreachable.URL
		unreachable.Close()

		cmd, _, errOut := newTestTalkCmd(configDir, "hi\n",
			"--no-cache", "--synthesizer", "text", "--relay-target", target)

		Expect(cmd.Execute()).To(Succeed())
		Expect(errOut.String()).To(ContainSubstring("Failed to send message"))
	})

	It("registers the asset cache in front of the relay", func() {
		dbPath := filepath.Join(configDir, "assets.db")
		cmd, out, _ := newTestTalkCmd(configDir, "hi\n/status\n/exit\n",
			"--synthesizer", "text", "--relay-target", relay.URL, "--sqlite", dbPath)

		Expect(cmd.Execute()).To(Succeed())
		Expect(chatCalls.Load()).To(Equal(int32(1)))
		Expect(out.String()).To(ContainSubstring("echo: hi"))
		Expect(out.String()).To(ContainSubstring("voice-agent-v1 (activated)"))
		Expect(dbPath).To(BeAnExistingFile())
	})

	It("shows debug messages and metrics on request", func() {
		cmd, out, _ := newTestTalkCmd(configDir, "/debug\nhi\n/metrics\n/debug\n",
			"--no-cache", "--synthesizer", "text", "--relay-target", relay.URL)

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("no debug messages"))
		Expect(out.String()).To(ContainSubstring("Relay response received"))
		// Once after the turn, once for /metrics, once in the debug log.
		Expect(strings.Count(out.String(), "Performance:")).To(Equal(3))
	})
})
