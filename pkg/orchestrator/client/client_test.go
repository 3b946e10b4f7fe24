package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/voxrelay/pkg/assetcache"
	"github.com/papercomputeco/voxrelay/pkg/orchestrator"
	"github.com/papercomputeco/voxrelay/pkg/orchestrator/client"
	"github.com/papercomputeco/voxrelay/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/voxrelay/pkg/utils/test"
	"github.com/papercomputeco/voxrelay/relay"
)

var _ = Describe("HTTPRelay", func() {
	var (
		upstream *testutils.FakeUpstream
		r        *relay.Relay
		target   string
		key      string
	)

	BeforeEach(func() {
		key = "test-key"
		upstream = testutils.NewFakeUpstream(http.StatusOK, testutils.GeminiReply(" It's 3 PM "))

		var err error
		r, err = relay.New(relay.Config{
			UpstreamURL: upstream.URL,
			KeySource:   func() string { return key },
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		target = "http://" + listener.Addr().String()
		go func() { _ = r.RunWithListener(listener) }()
	})

	AfterEach(func() {
		Expect(r.Close()).To(Succeed())
		upstream.Close()
	})

	newClient := func() *client.HTTPRelay {
		f, err := assetcache.NewHTTPFetcher(target, &http.Client{Timeout: 5 * time.Second})
		Expect(err).NotTo(HaveOccurred())
		return client.NewHTTPRelay(target, f)
	}

	It("decodes a successful reply", func() {
		resp, err := newClient().Chat(context.Background(), "What time is it?")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Message).To(Equal("It's 3 PM"))
		Expect(resp.Model).To(Equal("gemini-1.5-flash"))

		var sent map[string]any
		Expect(json.Unmarshal(upstream.Calls()[0].Body, &sent)).To(Succeed())
		Expect(sent).To(HaveKey("contents"))
	})

	It("returns a RelayError for endpoint errors", func() {
		key = ""
		_, err := newClient().Chat(context.Background(), "hello")

		var relayErr *client.RelayError
		Expect(errors.As(err, &relayErr)).To(BeTrue())
		Expect(relayErr.Status).To(Equal(http.StatusInternalServerError))
		Expect(relayErr.Message).To(Equal("Gemini API key not configured"))

		var se orchestrator.StatusError
		Expect(errors.As(err, &se)).To(BeTrue())
	})

	It("forwards the upstream status", func() {
		upstream.Respond(http.StatusTooManyRequests, `{}`)
		_, err := newClient().Chat(context.Background(), "hello")

		var relayErr *client.RelayError
		Expect(errors.As(err, &relayErr)).To(BeTrue())
		Expect(relayErr.Status).To(Equal(http.StatusTooManyRequests))
		Expect(relayErr.Message).To(Equal("Gemini API error: 429"))
	})

	It("goes through a registered asset worker", func() {
		network, err := assetcache.NewHTTPFetcher(target, nil)
		Expect(err).NotTo(HaveOccurred())

		w, err := assetcache.New(assetcache.Config{
			Manifest: []string{"/ping"},
			Origin:   target,
			Driver:   inmemory.NewDriver(),
			Network:  network,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(assetcache.Register(context.Background(), w, zap.NewNop())).To(Succeed())

		resp, err := client.NewHTTPRelay(target, w).Chat(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Message).To(Equal("It's 3 PM"))
		Expect(w.Stats().Misses).To(Equal(int64(1)))
	})
})

var _ = Describe("HTTPRelay transport", func() {
	It("wraps network failures", func() {
		f := testutils.NewMockFetcher()
		f.SetOffline(true)

		_, err := client.NewHTTPRelay("http://relay.local", f).Chat(context.Background(), "hello")
		Expect(err).To(MatchError(testutils.ErrOffline))

		var relayErr *client.RelayError
		Expect(errors.As(err, &relayErr)).To(BeFalse())
	})

	It("rejects undecodable bodies", func() {
		f := testutils.NewMockFetcher().Serve("http://relay.local/api/chat", http.StatusOK, "<html>")
		_, err := client.NewHTTPRelay("http://relay.local", f).Chat(context.Background(), "hello")
		Expect(err).To(MatchError(ContainSubstring("decoding chat response")))
	})
})
