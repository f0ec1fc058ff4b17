package main

import (
	"github.com/spf13/cobra"

	"github.com/euel88/law-chatbot/internal/app"
	"github.com/euel88/law-chatbot/internal/logger"
	"github.com/euel88/law-chatbot/internal/server"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		addr      string
		maxJobs   int
		maxUpload int64
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP translation service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config.GetConfig()
			if addr == "" {
				addr = cfg.ListenAddr
			}

			a, err := app.NewFromConfig(cmd.Context(), c.config)
			if err != nil {
				return err
			}
			if maxJobs > 0 {
				a.SetMaxJobs(maxJobs)
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Warn("shutdown incomplete", logger.Err(err))
				}
			}()

			logger.Info("starting server",
				logger.String("addr", addr),
				logger.Bool("backend", a.HasBackend()),
				logger.Bool("ocr", a.OCRAvailable()),
				logger.String("results", a.Results().BaseDir()))
			cmd.Printf("Listening on %s\n", addr)
			return server.New(a, server.WithMaxUploadBytes(maxUpload)).ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().IntVar(&maxJobs, "max-jobs", app.DefaultMaxJobs, "background jobs run at once")
	cmd.Flags().Int64Var(&maxUpload, "max-upload", server.DefaultMaxUploadBytes, "largest accepted upload in bytes")
	return cmd
}
