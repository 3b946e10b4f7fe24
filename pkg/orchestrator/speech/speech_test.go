package speech_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/voxrelay/pkg/orchestrator"
	"github.com/papercomputeco/voxrelay/pkg/orchestrator/speech"
)

var _ = Describe("LineRecognizer", func() {
	It("returns one trimmed line per call", func() {
		rec := speech.NewLineRecognizer(strings.NewReader("What time is it?\n  thanks \n"))

		text, err := rec.Recognize(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("What time is it?"))

		text, err = rec.Recognize(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("thanks"))
	})

	It("reports no speech for blank lines and end of input", func() {
		rec := speech.NewLineRecognizer(strings.NewReader("\n"))
		_, err := rec.Recognize(context.Background())
		Expect(err).To(MatchError(speech.ErrNoSpeech))

		_, err = rec.Recognize(context.Background())
		Expect(err).To(MatchError(speech.ErrNoSpeech))
	})

	It("returns a final line without a newline", func() {
		rec := speech.NewLineRecognizer(strings.NewReader("last words"))
		text, err := rec.Recognize(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("last words"))
	})

	It("shares one line stream between raw reads and recognition", func() {
		rec := speech.NewLineRecognizer(strings.NewReader("/voice\r\nhello there\n"))

		line, err := rec.ReadLine(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(Equal("/voice"))

		text, err := rec.Recognize(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("hello there"))

		_, err = rec.ReadLine(context.Background())
		Expect(err).To(MatchError(io.EOF))
	})

	It("keeps a line that arrives after a cancelled recognition", func() {
		pr, pw := io.Pipe()
		defer pw.Close()
		rec := speech.NewLineRecognizer(pr)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := rec.Recognize(ctx)
		Expect(err).To(MatchError(context.Canceled))

		go func() { _, _ = pw.Write([]byte("still here\n")) }()

		line, err := rec.ReadLine(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(line).To(Equal("still here"))
	})

	It("stops waiting when cancelled", func() {
		pr, pw := io.Pipe()
		defer pw.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := speech.NewLineRecognizer(pr).Recognize(ctx)
		Expect(err).To(MatchError(context.Canceled))
	})
})

// fakeTTS writes an executable named name that records its argv and stdin
// under dir.
func fakeTTS(dir, name string) string {
	path := filepath.Join(dir, name)
	script := fmt.Sprintf("#!/bin/sh\nprintf '%%s\\n' \"$@\" > %q\ncat > %q\n",
		filepath.Join(dir, "argv"), filepath.Join(dir, "stdin"))
	Expect(os.WriteFile(path, []byte(script), 0o755)).To(Succeed())
	return path
}

func readFile(path string) string {
	b, err := os.ReadFile(path)
	Expect(err).NotTo(HaveOccurred())
	return string(b)
}

var _ = Describe("Synthesizers", func() {
	It("writes the reply and signals start", func() {
		var buf bytes.Buffer
		started := false

		err := speech.NewWriterSynthesizer(&buf).Speak(context.Background(), "It's 3 PM", func() { started = true })
		Expect(err).NotTo(HaveOccurred())
		Expect(started).To(BeTrue())
		Expect(buf.String()).To(Equal("It's 3 PM\n"))
	})

	It("is unavailable when no binary is found", func() {
		syn := speech.NewCommandSynthesizer("voxrelay-definitely-missing-tts")
		Expect(syn.Available()).To(BeFalse())
		Expect(syn.Speak(context.Background(), "hi", nil)).To(HaveOccurred())

		caps := orchestrator.ResolveCapabilities(nil, syn)
		Expect(caps.Synthesis).To(Equal(orchestrator.Unavailable))
	})

	It("runs a binary found on PATH", func() {
		if runtime.GOOS == "windows" {
			Skip("relies on a POSIX echo binary")
		}
		syn := speech.NewCommandSynthesizer("echo")
		Expect(syn.Available()).To(BeTrue())

		started := 0
		Expect(syn.Speak(context.Background(), "hello", func() { started++ })).To(Succeed())
		Expect(started).To(Equal(1))
	})

	Describe("dash-prefixed replies", func() {
		const reply = "- Paris is the capital of France."

		BeforeEach(func() {
			if runtime.GOOS == "windows" {
				Skip("relies on a POSIX shell")
			}
		})

		It("sends the text to espeak on stdin", func() {
			dir := GinkgoT().TempDir()
			syn := speech.NewCommandSynthesizer(fakeTTS(dir, "espeak"))
			Expect(syn.Available()).To(BeTrue())

			Expect(syn.Speak(context.Background(), reply, nil)).To(Succeed())
			Expect(readFile(filepath.Join(dir, "argv"))).To(Equal("--stdin\n"))
			Expect(readFile(filepath.Join(dir, "stdin"))).To(Equal(reply))
		})

		It("sends the text to say as a file read from stdin", func() {
			dir := GinkgoT().TempDir()
			syn := speech.NewCommandSynthesizer(fakeTTS(dir, "say"))

			Expect(syn.Speak(context.Background(), reply, nil)).To(Succeed())
			Expect(readFile(filepath.Join(dir, "argv"))).To(Equal("-f\n-\n"))
			Expect(readFile(filepath.Join(dir, "stdin"))).To(Equal(reply))
		})

		It("ends option parsing before the text for other binaries", func() {
			dir := GinkgoT().TempDir()
			syn := speech.NewCommandSynthesizer(fakeTTS(dir, "custom-tts"))

			Expect(syn.Speak(context.Background(), reply, nil)).To(Succeed())
			Expect(readFile(filepath.Join(dir, "argv"))).To(Equal("--\n" + reply + "\n"))
		})
	})
})
