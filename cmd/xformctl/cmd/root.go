package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cosmossdk.io/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/TheusHen/xform/xform"
	"github.com/TheusHen/xform/xform/provider"
	"github.com/TheusHen/xform/xform/selftest"
)

const (
	EnvPrefix = "XFORM"

	flagConfig      = "config"
	flagLogLevel    = "log-level"
	flagLogJSON     = "log-json"
	flagMetricsAddr = "metrics-addr"
	flagCipher      = "cipher"
	flagHash        = "hash"
	flagSignAlg     = "sign-alg"
)

// app carries the state shared by every subcommand of one root command.
type app struct {
	v       *viper.Viper
	logger  log.Logger
	metrics *http.Server
}

func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: log.NewNopLogger()}

	rootCmd := &cobra.Command{
		Use:           "xformctl",
		Short:         "Self-verifying stream cipher, hash and signature tool",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadConfig(cmd); err != nil {
				return err
			}
			if err := a.initLogger(cmd); err != nil {
				return err
			}
			return a.startMetrics()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.stopMetrics()
		},
	}

	addPersistentFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newSelfTestCmd(a),
		newKATCmd(a),
		newCryptCmd(a, "encrypt", "Encrypt stdin (or a file) to stdout with a stream cipher"),
		newCryptCmd(a, "decrypt", "Decrypt stdin (or a file) to stdout with a stream cipher"),
		newHashCmd(a),
		newKeygenCmd(a),
		newSignCmd(a),
		newVerifyCmd(a),
		newSealCmd(a),
		newOpenCmd(a),
	)
	return rootCmd
}

func addPersistentFlags(pf *pflag.FlagSet) {
	pf.String(flagConfig, "", "Config file (toml, yaml or json)")
	pf.String(flagLogLevel, "warn", "Log level (trace, debug, info, warn, error, disabled)")
	pf.Bool(flagLogJSON, false, "Log as JSON instead of console text")
	pf.String(flagMetricsAddr, "", "Serve Prometheus metrics on this address while the command runs")
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	a.v.SetDefault(flagCipher, string(provider.XSalsa20))
	a.v.SetDefault(flagHash, string(provider.SHA256))
	a.v.SetDefault(flagSignAlg, string(provider.Ed25519))

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if path := a.v.GetString(flagConfig); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return nil
}

func (a *app) initLogger(cmd *cobra.Command) error {
	lvl, err := zerolog.ParseLevel(cast.ToString(a.v.Get(flagLogLevel)))
	if err != nil {
		return fmt.Errorf("--%s: %w", flagLogLevel, err)
	}
	opts := []log.Option{log.LevelOption(lvl), log.ColorOption(false)}
	if cast.ToBool(a.v.Get(flagLogJSON)) {
		opts = append(opts, log.OutputJSONOption())
	}
	a.logger = log.NewLogger(cmd.ErrOrStderr(), opts...)
	return nil
}

func (a *app) startMetrics() error {
	addr := cast.ToString(a.v.Get(flagMetricsAddr))
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", "addr", addr, "err", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", addr)
	return nil
}

func (a *app) stopMetrics() error {
	if a.metrics == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return a.metrics.Shutdown(ctx)
}

// library builds a Library on the default provider and runs its self-test,
// with any extra vectors appended to the defaults.
func (a *app) library(extra ...selftest.Vector) (*xform.Library, error) {
	opts := []xform.Option{
		xform.WithLogger(a.logger),
		xform.WithMetrics(a.metrics != nil),
	}
	if len(extra) > 0 {
		opts = append(opts, xform.WithExtraVectors(extra...))
	}
	return xform.New(provider.Default(), opts...)
}

func (a *app) cipher() provider.StreamAlgorithm {
	return provider.StreamAlgorithm(cast.ToString(a.v.Get(flagCipher)))
}

func (a *app) hash() provider.HashAlgorithm {
	return provider.HashAlgorithm(cast.ToString(a.v.Get(flagHash)))
}

func (a *app) signAlg() provider.SignAlgorithm {
	return provider.SignAlgorithm(cast.ToString(a.v.Get(flagSignAlg)))
}
