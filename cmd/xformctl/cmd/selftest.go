package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/TheusHen/xform/xform/kat"
	"github.com/TheusHen/xform/xform/provider"
	"github.com/TheusHen/xform/xform/selftest"
)

const flagKind = "kind"

func newSelfTestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Run the built-in known-answer tests against the default provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lib, err := a.library()
			fmt.Fprintf(cmd.OutOrStdout(), "provider %s: %s (%d vectors)\n",
				lib.Provider().Name(), lib.State(), len(selftest.DefaultVectors()))
			return err
		},
	}
}

func newKATCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kat file",
		Short: "Run a known-answer vector file as part of the self-test",
		Long: `Run a known-answer vector file. The file's vectors are appended to the
built-in ones, so a mismatch fails the self-test the same way.

Kinds:
  cipher  COUNT/KEY/IV/PLAINTEXT/CIPHERTEXT records, checked with --cipher
  hash    Len/Msg/MD records, checked with --hash
  monte   Seed then COUNT/MD checkpoints, checked with --hash`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, n, err := a.loadVectors(args[0])
			if err != nil {
				return err
			}
			if _, err := a.library(v); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d vectors ok\n", args[0], n)
			return nil
		},
	}
	cmd.Flags().String(flagKind, "cipher", "Vector file kind (cipher, hash, monte)")
	cmd.Flags().String(flagCipher, "", "Stream cipher for cipher vectors")
	cmd.Flags().String(flagHash, "", "Hash algorithm for hash and monte vectors")
	return cmd
}

func (a *app) loadVectors(path string) (selftest.Vector, int, error) {
	kind := cast.ToString(a.v.Get(flagKind))
	var err error
	switch kind {
	case "cipher":
		_, err = provider.Default().Stream(a.cipher())
	case "hash", "monte":
		_, err = provider.Default().Hash(a.hash())
	default:
		err = fmt.Errorf("--%s: unknown kind %q", flagKind, kind)
	}
	if err != nil {
		return selftest.Vector{}, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return selftest.Vector{}, 0, err
	}
	defer f.Close()

	name := filepath.Base(path)
	switch kind {
	case "cipher":
		vs, err := kat.ParseCipherVectors(f)
		if err != nil {
			return selftest.Vector{}, 0, err
		}
		return kat.CipherCheck(name, a.cipher(), vs), len(vs), nil
	case "hash":
		vs, err := kat.ParseHashVectors(f)
		if err != nil {
			return selftest.Vector{}, 0, err
		}
		return kat.HashCheck(name, a.hash(), vs), len(vs), nil
	default:
		mc, err := kat.ParseMonteCarlo(f)
		if err != nil {
			return selftest.Vector{}, 0, err
		}
		return kat.MonteCarloCheck(name, a.hash(), mc), len(mc.Checkpoints), nil
	}
}
