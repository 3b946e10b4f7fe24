package metrics_test

import (
	"io"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/papercomputeco/voxrelay/pkg/metrics"
)

var _ = Describe("Metrics", func() {
	It("keeps collectors per instance", func() {
		a := metrics.New()
		b := metrics.New()

		a.ObserveRelay(200, 0.1)
		Expect(testutil.ToFloat64(a.RelayRequests.WithLabelValues("200"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(b.RelayRequests.WithLabelValues("200"))).To(Equal(0.0))
	})

	It("labels relay requests by status", func() {
		m := metrics.New()
		m.ObserveRelay(400, 0.001)
		m.ObserveRelay(400, 0.001)
		m.ObserveRelay(503, 0.2)

		Expect(testutil.ToFloat64(m.RelayRequests.WithLabelValues("400"))).To(Equal(2.0))
		Expect(testutil.ToFloat64(m.RelayRequests.WithLabelValues("503"))).To(Equal(1.0))
	})

	It("records install results", func() {
		m := metrics.New()
		m.CacheInstall(true, 2048)
		m.CacheInstall(false, 0)

		Expect(testutil.ToFloat64(m.CacheInstalls.WithLabelValues("success"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(m.CacheInstalls.WithLabelValues("failure"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(m.CacheInstallSize)).To(Equal(2048.0))
	})

	It("tolerates a nil receiver", func() {
		var m *metrics.Metrics
		Expect(func() {
			m.ObserveRelay(200, 1)
			m.ObserveUpstream(1)
			m.EventDropped()
			m.CacheFetch("hit")
			m.CacheInstall(true, 1)
			m.TurnStage("api", 1)
			m.TurnOverTarget()
			m.TurnAborted("recognition")
		}).NotTo(Panic())
	})

	It("serves the exposition format", func() {
		m := metrics.New()
		m.CacheFetch("hit")

		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

		body, err := io.ReadAll(rec.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`voxrelay_cache_fetches_total{outcome="hit"} 1`))
	})
})
