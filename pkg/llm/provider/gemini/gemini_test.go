package gemini_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/voxrelay/pkg/llm/provider"
	"github.com/papercomputeco/voxrelay/pkg/llm/provider/gemini"
)

var _ = Describe("Gemini Provider", func() {
	var p provider.Provider

	BeforeEach(func() {
		p = gemini.New("", "")
	})

	Describe("Name", func() {
		It("returns 'gemini'", func() {
			Expect(p.Name()).To(Equal("gemini"))
			Expect(p.Label()).To(Equal("Gemini"))
		})
	})

	Describe("Model", func() {
		It("drops the -latest alias suffix", func() {
			Expect(p.Model()).To(Equal("gemini-1.5-flash"))
		})

		It("reports pinned models unchanged", func() {
			Expect(gemini.New("", "gemini-1.5-pro-002").Model()).To(Equal("gemini-1.5-pro-002"))
		})
	})

	Describe("Endpoint", func() {
		It("addresses generateContent with the key in the query", func() {
			Expect(p.Endpoint("abc123")).To(Equal(
				"https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash-latest:generateContent?key=abc123",
			))
		})

		It("uses a custom upstream without a trailing slash", func() {
			p := gemini.New("http://127.0.0.1:9999/", "m")
			Expect(p.Endpoint("k")).To(Equal("http://127.0.0.1:9999/v1beta/models/m:generateContent?key=k"))
		})

		It("escapes the key", func() {
			Expect(p.Endpoint("a&b")).To(HaveSuffix("key=a%26b"))
		})
	})

	Describe("EncodeRequest", func() {
		It("wraps text in contents[0].parts[0].text", func() {
			body, err := p.EncodeRequest("What time is it?")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(MatchJSON(`{"contents":[{"parts":[{"text":"What time is it?"}]}]}`))
		})
	})

	Describe("DecodeReply", func() {
		It("extracts the first candidate's first part", func() {
			payload := []byte(`{"candidates":[{"content":{"parts":[{"text":"It's 3 PM"},{"text":"ignored"}],"role":"model"},"finishReason":"STOP"}]}`)
			text, err := p.DecodeReply(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("It's 3 PM"))
		})

		DescribeTable("returns empty text when the path is absent",
			func(payload string) {
				text, err := p.DecodeReply([]byte(payload))
				Expect(err).NotTo(HaveOccurred())
				Expect(text).To(BeEmpty())
			},
			Entry("no candidates key", `{}`),
			Entry("empty candidates", `{"candidates":[]}`),
			Entry("candidate without content", `{"candidates":[{"finishReason":"SAFETY"}]}`),
			Entry("content without parts", `{"candidates":[{"content":{"parts":[]}}]}`),
			Entry("part without text", `{"candidates":[{"content":{"parts":[{}]}}]}`),
		)

		It("errors on invalid JSON", func() {
			_, err := p.DecodeReply([]byte(`not json`))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("provider.New", func() {
		It("builds gemini", func() {
			prov, err := provider.New(provider.Gemini, "", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(prov.Name()).To(Equal("gemini"))
		})

		It("rejects unknown providers", func() {
			_, err := provider.New("openai", "", "")
			Expect(err).To(MatchError(ContainSubstring("unknown provider type")))
		})
	})
})
