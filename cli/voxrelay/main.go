package main

import (
	"os"

	voxrelaycmder "github.com/papercomputeco/voxrelay/cmd/voxrelay"
)

func main() {
	cmd := voxrelaycmder.NewVoxrelayCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
