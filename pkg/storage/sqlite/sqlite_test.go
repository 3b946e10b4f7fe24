package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/voxrelay/pkg/storage"
	"github.com/papercomputeco/voxrelay/pkg/storage/sqlite"
	"github.com/papercomputeco/voxrelay/pkg/storage/storagetest"
)

var _ = storagetest.DescribeDriver("sqlite.Driver", func() storage.Driver {
	d, err := sqlite.NewDriver(context.Background(), ":memory:")
	Expect(err).NotTo(HaveOccurred())
	return d
})

var _ = Describe("NewDriver", func() {
	It("creates a driver with file database", func() {
		ctx := context.Background()
		dbPath := filepath.Join(GinkgoT().TempDir(), "cache.db")

		d, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		_, err = os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	It("persists entries across reopen", func() {
		ctx := context.Background()
		dbPath := filepath.Join(GinkgoT().TempDir(), "cache.db")

		d, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.PutAll(ctx, "voice-agent-v1", []*storage.Entry{
			{URL: "http://origin/tts/model.onnx", Status: 200, Body: []byte{0x00, 0x01, 0xff}},
		})).To(Succeed())
		Expect(d.Close()).To(Succeed())

		reopened, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer reopened.Close()

		e, err := reopened.Match(ctx, "voice-agent-v1", "http://origin/tts/model.onnx")
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Body).To(Equal([]byte{0x00, 0x01, 0xff}))
	})
})
