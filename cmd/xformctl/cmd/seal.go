package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/TheusHen/xform/xform/seal"
)

const (
	flagChunkSize    = "chunk-size"
	flagCompress     = "compress"
	flagDataShards   = "data-shards"
	flagParityShards = "parity-shards"
)

var compressionLevels = map[string]seal.CompressionLevel{
	"none":    seal.CompressionNone,
	"fast":    seal.CompressionFast,
	"default": seal.CompressionDefault,
	"best":    seal.CompressionBest,
}

func newSealCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seal [file]",
		Short: "Encrypt a file, or stdin, into a sealed file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.sealOptions()
			if err != nil {
				return err
			}
			key, err := a.bytesFlag(flagKey)
			if err != nil {
				return err
			}
			lib, err := a.library()
			if err != nil {
				return err
			}
			if cast.ToString(a.v.Get(flagSigningKey)) != "" {
				if opts.Signer, err = a.signingKey(lib); err != nil {
					return err
				}
			}
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			s, err := seal.Seal(lib, key, data, opts)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := s.Encode(&buf); err != nil {
				return err
			}
			return a.writeOutput(cmd, buf.Bytes())
		},
	}
	f := cmd.Flags()
	f.String(flagCipher, "", "Stream cipher (aes-ctr, xsalsa20, chacha20)")
	f.String(flagHash, "", "Chunk hash (sha256, sha3-256, blake2b-256)")
	f.String(flagKey, "", "Key in hex")
	f.Int(flagChunkSize, seal.DefaultChunkSize, "Chunk size in bytes")
	f.String(flagCompress, "none", "LZ4 compression (none, fast, default, best)")
	f.Int(flagDataShards, 0, "Reed-Solomon data shards (default 4 when parity is set)")
	f.Int(flagParityShards, 0, "Reed-Solomon parity shards; 0 disables erasure coding")
	f.String(flagSigningKey, "", "Sign the header with this key file")
	f.StringP(flagOut, "o", "", "Output file (default stdout)")
	return cmd
}

func (a *app) sealOptions() (seal.Options, error) {
	opts := seal.Options{Cipher: a.cipher(), Hash: a.hash()}
	level, ok := compressionLevels[cast.ToString(a.v.Get(flagCompress))]
	if !ok {
		return opts, fmt.Errorf("--%s: unknown level %q", flagCompress, a.v.Get(flagCompress))
	}
	opts.Compression = level

	var err error
	if opts.ChunkSize, err = cast.ToIntE(a.v.Get(flagChunkSize)); err != nil {
		return opts, fmt.Errorf("--%s: %w", flagChunkSize, err)
	}
	if opts.DataShards, err = cast.ToIntE(a.v.Get(flagDataShards)); err != nil {
		return opts, fmt.Errorf("--%s: %w", flagDataShards, err)
	}
	if opts.ParityShards, err = cast.ToIntE(a.v.Get(flagParityShards)); err != nil {
		return opts, fmt.Errorf("--%s: %w", flagParityShards, err)
	}
	return opts, nil
}

func newOpenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open [file]",
		Short: "Decrypt and check a sealed file",
		Long: `Decrypt and check a sealed file. Lost or corrupt shards are rebuilt from
parity when possible. With --verifying-key the header signature must verify
before anything is decrypted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.bytesFlag(flagKey)
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
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			s, err := seal.Decode(bytes.NewReader(raw))
			if err != nil {
				return err
			}
			if vk != nil {
				if err := s.Verify(vk); err != nil {
					return err
				}
			}
			c, err := seal.Open(lib, key, s)
			if err != nil {
				return err
			}
			a.logger.Info("opened sealed file", "bytes", len(c.Data), "chunks", c.Chunks, "root", c.Tree.RootHex(), "repaired", c.Repaired)
			return a.writeOutput(cmd, c.Data)
		},
	}
	f := cmd.Flags()
	f.String(flagKey, "", "Key in hex")
	f.String(flagVerifyingKey, "", "Require a header signature from this key file")
	f.StringP(flagOut, "o", "", "Output file (default stdout)")
	return cmd
}
