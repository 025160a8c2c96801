package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/TheusHen/xform/xform/keymat"
)

const (
	flagKey  = "key"
	flagIV   = "iv"
	flagOut  = "out"
	flagSeed = "seed"
	flagBits = "bits"
)

// openInput returns the file named by args[0], or stdin.
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(args[0])
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	r, err := openInput(cmd, args)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// writeOutput writes b to --out, or to stdout when --out is empty.
func (a *app) writeOutput(cmd *cobra.Command, b []byte) error {
	if path := cast.ToString(a.v.Get(flagOut)); path != "" {
		return os.WriteFile(path, b, 0o600)
	}
	_, err := cmd.OutOrStdout().Write(b)
	return err
}

// bytesFlag reads a hex value from flags, env or config. An empty value
// yields nil.
func (a *app) bytesFlag(name string) ([]byte, error) {
	b, err := keymat.FromValue(a.v.Get(name))
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	if len(b) == 0 {
		return nil, nil
	}
	return b, nil
}
