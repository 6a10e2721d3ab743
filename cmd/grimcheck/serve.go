package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/iwvelando/grimcheck/internal/server"
	"github.com/iwvelando/grimcheck/pkg/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(a *app) *cobra.Command {
	var serverConfigPath, address, maxUploadSize string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the consistency checks as a JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srvCfg, err := server.LoadConfig(serverConfigPath)
			if err != nil {
				return err
			}
			if address != "" {
				srvCfg.Address = address
			}
			if maxUploadSize != "" {
				size, err := server.ParseSize(maxUploadSize)
				if err != nil {
					return err
				}
				srvCfg.SetUploadSizeBytes(size)
			}

			logger := a.logger
			// The server config may carry its own logging section.
			if l := srvCfg.Logging; l.Level != "" || l.Format != "" || l.OutputFile != "" {
				if logger, err = initializeLogger(srvCfg.Logging, a.logLevel); err != nil {
					return err
				}
				defer func() { _ = logger.Sync() }()
			}

			defaults := a.conf
			if srvCfg.ChecksConfig != "" && srvCfg.ChecksConfig != a.configPath {
				if defaults, err = srvCfg.Checks(); err != nil {
					return err
				}
			}

			handler := server.NewHandler(logger, srvCfg.UploadSizeBytes(), version,
				server.WithDefaults(defaults),
				server.WithSampleTimeout(srvCfg.WriteTimeoutDuration()),
				server.WithSimrankLimits(srvCfg.Simrank),
			)
			httpServer := &http.Server{
				Addr:              srvCfg.Address,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
				WriteTimeout:      srvCfg.WriteTimeoutDuration(),
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				logger.Info("server listening",
					zap.String("op", "main.serve"),
					zap.String("address", srvCfg.Address),
					zap.Int64("maxUploadSize", srvCfg.UploadSizeBytes()),
				)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				logger.Info("server shutting down", zap.String("op", "main.serve"))
				return httpServer.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&address, "address", "", "listen address override, e.g. :8080")
	cmd.Flags().StringVar(&maxUploadSize, "max-upload-size", "", "audit upload limit override, e.g. 512K or 2M")
	return cmd
}
