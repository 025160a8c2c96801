package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/TheusHen/xform/xform/stream"
)

// newCryptCmd builds encrypt and decrypt. A stream cipher is its own
// inverse so both run the same transform.
func newCryptCmd(a *app, use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " [file]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.bytesFlag(flagKey)
			if err != nil {
				return err
			}
			iv, err := a.bytesFlag(flagIV)
			if err != nil {
				return err
			}
			lib, err := a.library()
			if err != nil {
				return err
			}
			c, err := lib.NewStream(a.cipher(), key, iv)
			if err != nil {
				return err
			}

			in, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer in.Close()
			out := stream.NewWriter(cmd.OutOrStdout(), c)
			n, err := io.Copy(out, in)
			if err != nil {
				return err
			}
			a.logger.Debug(use+"ed", "cipher", c.Algorithm(), "bytes", n)
			return out.Close()
		},
	}
	cmd.Flags().String(flagCipher, "", "Stream cipher (aes-ctr, xsalsa20, chacha20)")
	cmd.Flags().String(flagKey, "", "Key in hex")
	cmd.Flags().String(flagIV, "", "IV in hex; empty selects the all-zero IV")
	return cmd
}
