package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/reportloom-cli/internal/server"
	"github.com/KaramelBytes/reportloom-cli/internal/session"
)

var (
	serveAddr     string
	serveShutdown time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		logger := newLogger(c.LogLevel, true)
		reg := registryFrom(c)
		svc, err := backendFrom(c, reg)
		if err != nil {
			return err
		}
		asm, err := assemblerFrom(c, reg, logger)
		if err != nil {
			return err
		}
		addr := c.ServerAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		api := server.NewWebAPI(server.Config{
			Addr:            addr,
			ShutdownTimeout: serveShutdown,
			Dependencies: server.Dependencies{
				Assembler: asm,
				Sessions: session.NewStore(svc,
					session.WithAssembler(asm),
					session.WithMaxHistoryTokens(c.MaxHistoryTokens),
				),
				Datasets: reg,
				Logger:   logger,
			},
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return api.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server_addr)")
	serveCmd.Flags().DurationVar(&serveShutdown, "shutdown-timeout", 10*time.Second, "grace period for in-flight requests on shutdown")
}
