package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/TheusHen/xform/xform"
	"github.com/TheusHen/xform/xform/keymat"
	"github.com/TheusHen/xform/xform/sign"
)

const (
	flagSigningKey   = "signing-key"
	flagVerifyingKey = "verifying-key"
	flagSignature    = "signature"
)

var ErrBadSignature = errors.New("signature verification failed")

// Key files hold the hex encoded envelope on one line.
func readKeyFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b, err := keymat.FromValue(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

func writeKeyFile(path string, b []byte, perm os.FileMode) error {
	return os.WriteFile(path, []byte(hex.EncodeToString(b)+"\n"), perm)
}

func (a *app) signingKey(lib *xform.Library) (*sign.SigningKey, error) {
	path := cast.ToString(a.v.Get(flagSigningKey))
	if path == "" {
		return nil, fmt.Errorf("--%s is required", flagSigningKey)
	}
	b, err := readKeyFile(path)
	if err != nil {
		return nil, err
	}
	return lib.ParseSigningKey(b)
}

func (a *app) verifyingKey(lib *xform.Library) (*sign.VerifyingKey, error) {
	path := cast.ToString(a.v.Get(flagVerifyingKey))
	if path == "" {
		return nil, nil
	}
	b, err := readKeyFile(path)
	if err != nil {
		return nil, err
	}
	return lib.ParseVerifyingKey(b)
}

func newKeygenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signing key pair",
		Long: `Generate a signing key pair. With --out the signing key is written to
<out> and the verifying key to <out>.pub; otherwise both are printed in hex.
A --seed makes generation deterministic for families that support it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bits, err := cast.ToIntE(a.v.Get(flagBits))
			if err != nil {
				return fmt.Errorf("--%s: %w", flagBits, err)
			}
			seed, err := a.bytesFlag(flagSeed)
			if err != nil {
				return err
			}
			lib, err := a.library()
			if err != nil {
				return err
			}
			sk, err := lib.GenerateKey(a.signAlg(), bits, seed)
			if err != nil {
				return err
			}
			skb, err := sk.Marshal()
			if err != nil {
				return err
			}
			vkb, err := sk.VerifyingKey().Marshal()
			if err != nil {
				return err
			}
			fp, err := sk.VerifyingKey().Fingerprint()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if path := cast.ToString(a.v.Get(flagOut)); path != "" {
				if err := writeKeyFile(path, skb, 0o600); err != nil {
					return err
				}
				if err := writeKeyFile(path+".pub", vkb, 0o644); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "signing-key: %x\nverifying-key: %x\n", skb, vkb)
			}
			fmt.Fprintf(out, "%s %d-bit fingerprint %s\n", sk.Algorithm(), sk.Bits(), fp)
			return nil
		},
	}
	cmd.Flags().String(flagSignAlg, "", "Signature family (rsa-pss-sha256, ecdsa, ed25519, ml-dsa-65)")
	cmd.Flags().Int(flagBits, 0, "Key size in bits; 0 selects the family default")
	cmd.Flags().String(flagSeed, "", "Seed in hex for deterministic generation")
	cmd.Flags().StringP(flagOut, "o", "", "Write the key pair to this path")
	return cmd
}

func newSignCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign [file]",
		Short: "Sign a file, or stdin, and print the signature in hex",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.library()
			if err != nil {
				return err
			}
			sk, err := a.signingKey(lib)
			if err != nil {
				return err
			}
			msg, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			sig, err := sk.Sign(msg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%x\n", sig)
			return nil
		},
	}
	cmd.Flags().String(flagSigningKey, "", "Signing key file written by keygen")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [file]",
		Short: "Verify a hex signature over a file, or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := a.bytesFlag(flagSignature)
			if err != nil {
				return err
			}
			lib, err := a.library()
			if err != nil {
				return err
			}
			vk, err := a.verifyingKey(lib)
			if err != nil {
				return err
			}
			if vk == nil {
				return fmt.Errorf("--%s is required", flagVerifyingKey)
			}
			msg, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if !vk.Verify(msg, sig) {
				return ErrBadSignature
			}
			fp, err := vk.Fingerprint()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK %s %s\n", vk.Algorithm(), fp)
			return nil
		},
	}
	cmd.Flags().String(flagVerifyingKey, "", "Verifying key file written by keygen")
	cmd.Flags().String(flagSignature, "", "Signature in hex")
	return cmd
}
