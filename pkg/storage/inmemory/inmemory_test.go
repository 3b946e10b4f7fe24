package inmemory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/voxrelay/pkg/storage"
	"github.com/papercomputeco/voxrelay/pkg/storage/inmemory"
	"github.com/papercomputeco/voxrelay/pkg/storage/storagetest"
)

var _ = storagetest.DescribeDriver("inmemory.Driver", func() storage.Driver {
	return inmemory.NewDriver()
})

var _ = Describe("inmemory.Driver", func() {
	It("returns copies that callers cannot mutate", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()
		body := []byte("original")
		Expect(d.PutAll(ctx, "c", []*storage.Entry{{URL: "u", Status: 200, Body: body}})).To(Succeed())

		body[0] = 'X'
		e, err := d.Match(ctx, "c", "u")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(e.Body)).To(Equal("original"))

		e.Body[0] = 'Y'
		again, err := d.Match(ctx, "c", "u")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(again.Body)).To(Equal("original"))
	})
})
