// Package storagetest holds the behavior every storage.Driver must satisfy.
// Driver test suites call DescribeDriver from a top-level var block.
package storagetest

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/voxrelay/pkg/storage"
)

// DescribeDriver registers the shared driver specs. newDriver is called before
// each spec and must return an empty store.
func DescribeDriver(name string, newDriver func() storage.Driver) bool {
	return Describe(name+" conformance", func() {
		var (
			driver storage.Driver
			ctx    context.Context
		)

		entry := func(url, body string) *storage.Entry {
			return &storage.Entry{
				URL:    url,
				Status: 200,
				Header: map[string]string{"Content-Type": "text/plain"},
				Body:   []byte(body),
			}
		}

		BeforeEach(func() {
			ctx = context.Background()
			driver = newDriver()
		})

		AfterEach(func() {
			if driver != nil {
				driver.Close()
			}
		})

		Describe("Open", func() {
			It("creates an empty cache", func() {
				Expect(driver.Open(ctx, "voice-agent-v1")).To(Succeed())

				names, err := driver.Caches(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(names).To(ConsistOf("voice-agent-v1"))

				keys, err := driver.Keys(ctx, "voice-agent-v1")
				Expect(err).NotTo(HaveOccurred())
				Expect(keys).To(BeEmpty())
			})

			It("is idempotent", func() {
				Expect(driver.Open(ctx, "c")).To(Succeed())
				Expect(driver.Open(ctx, "c")).To(Succeed())

				names, err := driver.Caches(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(names).To(HaveLen(1))
			})

			It("rejects an empty name", func() {
				Expect(driver.Open(ctx, "")).NotTo(Succeed())
			})
		})

		Describe("PutAll and Match", func() {
			BeforeEach(func() {
				Expect(driver.Open(ctx, "c")).To(Succeed())
				Expect(driver.PutAll(ctx, "c", []*storage.Entry{
					entry("http://origin/", "index"),
					entry("http://origin/manifest.json", "{}"),
				})).To(Succeed())
			})

			It("matches by exact URL", func() {
				e, err := driver.Match(ctx, "c", "http://origin/manifest.json")
				Expect(err).NotTo(HaveOccurred())
				Expect(e.Status).To(Equal(200))
				Expect(string(e.Body)).To(Equal("{}"))
				Expect(e.ContentType()).To(Equal("text/plain"))
				Expect(e.StoredAt.IsZero()).To(BeFalse())
			})

			It("does not match a different URL", func() {
				_, err := driver.Match(ctx, "c", "http://origin/manifest.json?v=2")
				var nf storage.NotFoundError
				Expect(errors.As(err, &nf)).To(BeTrue())
				Expect(nf.URL).To(Equal("http://origin/manifest.json?v=2"))
			})

			It("does not match across caches", func() {
				_, err := driver.Match(ctx, "other", "http://origin/")
				Expect(errors.As(err, &storage.NotFoundError{})).To(BeTrue())
			})

			It("replaces entries with the same URL", func() {
				Expect(driver.PutAll(ctx, "c", []*storage.Entry{entry("http://origin/", "v2")})).To(Succeed())

				e, err := driver.Match(ctx, "c", "http://origin/")
				Expect(err).NotTo(HaveOccurred())
				Expect(string(e.Body)).To(Equal("v2"))

				keys, err := driver.Keys(ctx, "c")
				Expect(err).NotTo(HaveOccurred())
				Expect(keys).To(Equal([]string{"http://origin/", "http://origin/manifest.json"}))
			})

			It("stores empty bodies", func() {
				Expect(driver.PutAll(ctx, "c", []*storage.Entry{{URL: "http://origin/empty", Status: 204}})).To(Succeed())

				e, err := driver.Match(ctx, "c", "http://origin/empty")
				Expect(err).NotTo(HaveOccurred())
				Expect(e.Body).To(BeEmpty())
			})

			It("writes nothing when any entry is invalid", func() {
				err := driver.PutAll(ctx, "c", []*storage.Entry{entry("http://origin/new", "x"), {URL: ""}})
				Expect(err).To(HaveOccurred())

				_, err = driver.Match(ctx, "c", "http://origin/new")
				Expect(errors.As(err, &storage.NotFoundError{})).To(BeTrue())
			})

			It("creates the cache implicitly", func() {
				Expect(driver.PutAll(ctx, "implicit", []*storage.Entry{entry("http://origin/", "x")})).To(Succeed())

				names, err := driver.Caches(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(names).To(ContainElement("implicit"))
			})
		})

		Describe("Keys", func() {
			It("reports unknown caches", func() {
				_, err := driver.Keys(ctx, "missing")
				var nf storage.NotFoundError
				Expect(errors.As(err, &nf)).To(BeTrue())
				Expect(nf.Cache).To(Equal("missing"))
			})
		})

		Describe("Delete", func() {
			It("removes the cache and its entries", func() {
				Expect(driver.PutAll(ctx, "old", []*storage.Entry{entry("http://origin/", "x")})).To(Succeed())

				deleted, err := driver.Delete(ctx, "old")
				Expect(err).NotTo(HaveOccurred())
				Expect(deleted).To(BeTrue())

				_, err = driver.Match(ctx, "old", "http://origin/")
				Expect(errors.As(err, &storage.NotFoundError{})).To(BeTrue())

				names, err := driver.Caches(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(names).NotTo(ContainElement("old"))
			})

			It("returns false for unknown caches", func() {
				deleted, err := driver.Delete(ctx, "never")
				Expect(err).NotTo(HaveOccurred())
				Expect(deleted).To(BeFalse())
			})
		})
	})
}
