package assetcache_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/voxrelay/pkg/assetcache"
	"github.com/papercomputeco/voxrelay/pkg/logger"
	"github.com/papercomputeco/voxrelay/pkg/storage/inmemory"
)

var _ = Describe("HTTPFetcher", func() {
	var server *httptest.Server

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			switch r.URL.Path {
			case "/missing":
				w.WriteHeader(http.StatusNotFound)
			case "/echo":
				w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
				_, _ = w.Write(body)
			default:
				_, _ = w.Write([]byte(r.Method + " " + r.URL.Path))
			}
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("resolves relative urls against the origin", func() {
		f, err := assetcache.NewHTTPFetcher(server.URL+"/", nil)
		Expect(err).NotTo(HaveOccurred())

		resp, err := f.Fetch(context.Background(), &assetcache.Request{URL: "/whisper/whisper.js"})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.URL).To(Equal(server.URL + "/whisper/whisper.js"))
		Expect(string(resp.Body)).To(Equal("GET /whisper/whisper.js"))
	})

	It("returns non-2xx statuses as responses", func() {
		f, _ := assetcache.NewHTTPFetcher(server.URL, nil)
		resp, err := f.Fetch(context.Background(), &assetcache.Request{URL: "/missing"})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Status).To(Equal(http.StatusNotFound))
		Expect(resp.OK()).To(BeFalse())
	})

	It("forwards method, headers and body", func() {
		f, _ := assetcache.NewHTTPFetcher(server.URL, nil)
		resp, err := f.Fetch(context.Background(), &assetcache.Request{
			Method: http.MethodPost,
			URL:    "/echo",
			Header: http.Header{"Content-Type": []string{"application/json"}},
			Body:   []byte(`{"message":"hi"}`),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(resp.Body)).To(Equal(`{"message":"hi"}`))
		Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
	})

	It("rejects relative urls without an origin", func() {
		f, _ := assetcache.NewHTTPFetcher("", nil)
		_, err := f.Fetch(context.Background(), &assetcache.Request{URL: "/"})
		Expect(err).To(MatchError(ContainSubstring("without an origin")))
	})

	It("reports transport errors", func() {
		f, _ := assetcache.NewHTTPFetcher("http://127.0.0.1:1", nil)
		_, err := f.Fetch(context.Background(), &assetcache.Request{URL: "/"})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Gateway", func() {
	var (
		origin *httptest.Server
		worker *assetcache.Worker
		hits   atomic.Int32
	)

	BeforeEach(func() {
		hits.Store(0)
		origin = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			if r.Method == http.MethodPost {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"message":"relayed"}`))
				return
			}
			_, _ = w.Write([]byte("asset " + r.URL.Path))
		}))

		var err error
		worker, err = assetcache.New(assetcache.Config{
			Manifest: []string{"/", "/manifest.json"},
			Origin:   origin.URL,
			Driver:   inmemory.NewDriver(),
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(assetcache.Register(context.Background(), worker, logger.Nop())).To(Succeed())
	})

	AfterEach(func() {
		origin.Close()
	})

	It("serves cached assets with a HIT marker", func() {
		app := assetcache.NewGatewayApp(worker, logger.Nop())
		installHits := hits.Load()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/manifest.json", nil), -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get(assetcache.CacheStatusHeader)).To(Equal("HIT"))

		body, _ := io.ReadAll(resp.Body)
		Expect(string(body)).To(Equal("asset /manifest.json"))
		Expect(hits.Load()).To(Equal(installHits))
	})

	It("forwards posts to the origin with a MISS marker", func() {
		app := assetcache.NewGatewayApp(worker, logger.Nop())

		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Header.Get(assetcache.CacheStatusHeader)).To(Equal("MISS"))

		body, _ := io.ReadAll(resp.Body)
		Expect(string(body)).To(Equal(`{"message":"relayed"}`))
	})

	It("answers 502 when the origin is down on a miss", func() {
		app := assetcache.NewGatewayApp(worker, logger.Nop())
		origin.Close()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/not-cached", nil), -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
	})
})
