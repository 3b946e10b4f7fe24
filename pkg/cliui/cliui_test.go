package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/voxrelay/pkg/cliui"
)

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds below a second", func() {
		Expect(cliui.FormatDuration(1200 * time.Microsecond)).To(Equal("1ms"))
		Expect(cliui.FormatDuration(850 * time.Millisecond)).To(Equal("850ms"))
	})

	It("uses tenths of seconds above a second", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("Step", func() {
	It("prints a success mark when fn succeeds", func() {
		var buf bytes.Buffer
		Expect(cliui.Step(&buf, "installing assets", func() error { return nil })).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("installing assets"))
		Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark))
	})

	It("returns the error and prints a fail mark", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")
		Expect(cliui.Step(&buf, "installing assets", func() error { return boom })).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
	})

	It("writes only the final line to non-terminals", func() {
		var buf bytes.Buffer
		Expect(cliui.Step(&buf, "installing assets", func() error {
			time.Sleep(200 * time.Millisecond)
			return nil
		})).To(Succeed())
		Expect(buf.String()).To(HavePrefix("\r  " + cliui.SuccessMark))
		Expect(buf.String()).To(HaveSuffix("\n"))
		Expect(cliui.IsTerminal(&buf)).To(BeFalse())
	})
})

var _ = Describe("RenderMarkdown", func() {
	It("keeps the text of the reply", func() {
		out, err := cliui.RenderMarkdown("It's **3 PM**")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("3 PM"))
	})
})
