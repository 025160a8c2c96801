package main

import (
	"fmt"
	"os"

	"github.com/TheusHen/xform/cmd/xformctl/cmd"
	"github.com/TheusHen/xform/xform/provider"
)

func init() {
	_ = provider.Default()
	switch name := provider.ActiveBackend(); name {
	case provider.BackendXCrypto:
		// allowed backend
	default:
		panic("security: unexpected crypto backend linked: " + name)
	}
}

func main() {
	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}
