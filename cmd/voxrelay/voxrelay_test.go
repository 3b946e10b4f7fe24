package voxrelaycmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	voxrelaycmder "github.com/papercomputeco/voxrelay/cmd/voxrelay"
)

var _ = Describe("NewVoxrelayCmd", func() {
	It("wires every top level command", func() {
		cmd := voxrelaycmder.NewVoxrelayCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("serve", "talk", "cache", "config", "version"))
	})

	It("shares --config-dir and --debug with subcommands", func() {
		cmd := voxrelaycmder.NewVoxrelayCmd()
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().ShorthandLookup("d")).NotTo(BeNil())
	})

	It("runs config list against an override directory", func() {
		cmd := voxrelaycmder.NewVoxrelayCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"config", "list", "--config-dir", GinkgoT().TempDir()})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("relay.model"))
	})
})
