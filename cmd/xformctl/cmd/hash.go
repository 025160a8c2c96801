package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newHashCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash [file...]",
		Short: "Print the digest of each file, or of stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.bytesFlag(flagKey)
			if err != nil {
				return err
			}
			lib, err := a.library()
			if err != nil {
				return err
			}
			names := args
			if len(names) == 0 {
				names = []string{"-"}
			}
			for _, name := range names {
				h, err := lib.NewKeyedHash(a.hash(), key, nil)
				if err != nil {
					return err
				}
				in, err := openInput(cmd, []string{name})
				if err != nil {
					return err
				}
				_, err = io.Copy(h, in)
				in.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", h.HexDigest(), name)
			}
			return nil
		},
	}
	cmd.Flags().String(flagHash, "", "Hash algorithm (sha256, sha3-256, blake2b-256)")
	cmd.Flags().String(flagKey, "", "Key in hex for keyed hashes (blake2b-256)")
	return cmd
}
