package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/voxrelay/cmd/voxrelay/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		subcommands := []string{}
		for _, sub := range cmd.Commands() {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := configcmder.NewConfigCmd()
		cmd.PersistentFlags().String("config-dir", tmpDir, "")
		out = &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			Expect(run("set", "relay.model", "gemini-1.5-pro-latest")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("relay.model"))

			data, err := os.ReadFile(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`model = "gemini-1.5-pro-latest"`))
		})

		It("accepts a negative auto-submit delay", func() {
			Expect(run("set", "client.auto_submit_delay_ms", "-1")).To(Succeed())
			Expect(run("get", "client.auto_submit_delay_ms")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("-1"))
		})

		It("rejects unknown keys", func() {
			Expect(run("set", "invalid_key", "value")).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			Expect(run("set", "relay.model")).To(HaveOccurred())
		})

		It("rejects zero arguments", func() {
			Expect(run("set")).To(HaveOccurred())
		})

		It("rejects invalid int values", func() {
			err := run("set", "client.auto_submit_delay_ms", "soon")
			Expect(err).To(HaveOccurred())
			Expect(filepath.Join(tmpDir, "config.toml")).NotTo(BeAnExistingFile())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(run("set", "events.topic", "voice.turns")).To(Succeed())
			Expect(run("get", "events.topic")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("voice.turns"))
		})

		It("shows defaults for keys never set", func() {
			Expect(run("get", "relay.listen")).To(Succeed())
			Expect(out.String()).To(ContainSubstring(":3000"))
		})

		It("rejects unknown keys", func() {
			Expect(run("get", "invalid_key")).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			Expect(run("get")).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			Expect(run("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("client.target_latency_ms"))
			Expect(out.String()).To(ContainSubstring(`"1200"`))
			Expect(out.String()).To(ContainSubstring("storage.postgres_dsn"))
		})

		It("reflects values that were set", func() {
			Expect(run("set", "cache.name", "voice-agent-v2")).To(Succeed())
			Expect(run("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring(`"voice-agent-v2"`))
		})

		It("rejects any arguments", func() {
			Expect(run("list", "extra")).To(HaveOccurred())
		})
	})

	It("offers config keys for completion", func() {
		cmd := configcmder.NewConfigCmd()
		var get *cobra.Command
		for _, sub := range cmd.Commands() {
			if sub.Name() == "get" {
				get = sub
			}
		}
		Expect(get).NotTo(BeNil())

		keys, _ := get.ValidArgsFunction(get, nil, "")
		Expect(keys).To(ContainElement("relay.model"))
	})
})
