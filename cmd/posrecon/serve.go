package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"posrecon/internal/logging"
	"posrecon/internal/server"
	"posrecon/internal/util"
)

var (
	servePort int
	serveDev  bool
	serveOpen bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, info, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort > 0 && !info.PortSpecified {
			cfg.Server.Port = servePort
		}
		if serveDev {
			cfg.Server.DevMode = true
		}
		if cmd.Flags().Changed("open") {
			cfg.Server.OpenBrowser = serveOpen
		}

		ctx := cmd.Context()
		app, err := server.NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		log := logging.WithComponent("serve")
		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           server.NewServer(app).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Int("port", cfg.Server.Port).Str("data_dir", app.DataDir).Msg("listening")
			errCh <- httpSrv.ListenAndServe()
		}()

		url := util.LocalURL(cfg.Server.Port)
		if cfg.Server.OpenBrowser && !cfg.Server.DevMode {
			if err := util.OpenBrowser(url); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Không thể tự mở trình duyệt, vui lòng truy cập: %s\n", url)
			}
		}

		select {
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (ignored when config.toml sets server.port)")
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "development mode")
	serveCmd.Flags().BoolVar(&serveOpen, "open", true, "open the browser after start")
	rootCmd.AddCommand(serveCmd)
}
