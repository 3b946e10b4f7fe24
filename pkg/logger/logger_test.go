package logger_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/voxrelay/pkg/logger"
)

var _ = Describe("Logger", func() {
	It("writes console output with fields", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf))
		l.Info("hello", zap.String("key", "value"))

		Expect(buf.String()).To(ContainSubstring("hello"))
		Expect(buf.String()).To(ContainSubstring("value"))
	})

	It("filters debug when not enabled", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithDebug(false))
		l.Debug("hidden")

		Expect(buf.String()).To(BeEmpty())
	})

	It("emits debug when enabled", func() {
		var buf bytes.Buffer
		l := logger.NewLoggerWithWriters(true, &buf)
		l.Debug("debug msg")

		Expect(buf.String()).To(ContainSubstring("debug msg"))
	})

	It("writes JSON lines when requested", func() {
		var buf bytes.Buffer
		l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
		l.Info("structured", zap.Int("count", 42))

		var parsed map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &parsed)).To(Succeed())
		Expect(parsed["msg"]).To(Equal("structured"))
		Expect(parsed["count"]).To(BeNumerically("==", 42))
	})

	It("fans out to every writer", func() {
		var a, b bytes.Buffer
		l := logger.NewLoggerWithWriters(false, &a, &b)
		l.Warn("both")

		Expect(a.String()).To(ContainSubstring("both"))
		Expect(b.String()).To(ContainSubstring("both"))
	})

	It("returns a usable nop logger", func() {
		Expect(func() { logger.Nop().Error("ignored") }).NotTo(Panic())
	})
})
