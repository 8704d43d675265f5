// Command posrecon runs the daily POS report import, serves the reconciliation UI API and
// exports summaries.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"posrecon/internal/config"
	"posrecon/internal/logging"
	"posrecon/internal/server"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "posrecon",
	Short:         "Đối soát báo cáo POS với phần mềm kế toán",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config.toml path (default: next to the executable)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Lỗi: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and sets up logging from it.
func loadConfig() (*config.AppConfig, config.LoadConfigInfo, error) {
	cfg, info, err := config.LoadConfigWithInfo(cfgFile)
	if err != nil {
		return nil, info, err
	}
	level := cfg.Log.Level
	if verbose {
		level = zerolog.LevelDebugValue
	}
	log := logging.Setup(logging.Options{Level: level, Pretty: cfg.Log.Pretty || cfg.Server.DevMode})
	if info.Found {
		log.Debug().Str("path", info.Path).Msg("config loaded")
	} else {
		log.Debug().Str("path", info.Path).Msg("config not found, using defaults")
	}
	return cfg, info, nil
}

// openApp loads the configuration and wires the components.
func openApp(ctx context.Context) (*server.App, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return server.NewApp(ctx, cfg)
}
