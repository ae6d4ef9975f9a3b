// cmd/pesquisactl/main.go
//
// pesquisactl – operator CLI for the pesquisa backend.
//
// Commands
// --------
//   submit   run one submission from a YAML record through the same
//            controller the web form uses
//   mask     print the display mask of a phone number or CPF
//   export   log in and write every survey to an .xlsx workbook
//   verify   ask whether a WhatsApp number or CPF was already used
//
// The backend URL comes from --backend, or from conf/global.yaml through the
// usual config loader (vault references included) when the flag is blank.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yanizio/pesquisa/internal/api"
	"github.com/yanizio/pesquisa/internal/config"
	"github.com/yanizio/pesquisa/internal/vault"
)

var (
	// Global flags
	backendURL string
	timeout    time.Duration
	verbose    bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pesquisactl",
	Short: "Operator tooling for the market-research intake service",
	Long: `pesquisactl drives the intake pipeline from a terminal.

It validates, normalises, and delivers survey records exactly like the web
form, exports stored surveys, and checks numbers against the backend.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "Backend base URL (default: backend.base_url from config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", api.DefaultTimeout, "Per-request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(maskCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(verifyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the service config, resolving vault references when
// VAULT_ADDR is set.
func loadConfig(ctx context.Context) (*config.Config, error) {
	var secrets config.SecretResolver
	if vault.Enabled() {
		vc, err := vault.New(ctx, func(f string, a ...any) { zap.S().Debugf(f, a...) })
		if err != nil {
			return nil, err
		}
		secrets = vc
	}
	return config.Load(ctx, secrets)
}

// newClient builds the backend client from --backend or the config.
func newClient(ctx context.Context) (*api.Client, error) {
	base := backendURL
	if base == "" {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("no --backend given and config failed: %w", err)
		}
		base = cfg.Backend.BaseURL
	}
	return api.New(base, api.WithTimeout(timeout))
}
