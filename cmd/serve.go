package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pharmscope/license-verify/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the verification API over HTTP",
	Long: `Starts the JSON API used by GUI and reporting clients:

  GET  /health
  GET  /api/v1/matrix?pharmacies_tag=&states_tag=&validated_tag=
  GET  /api/v1/results?pharmacies_tag=&states_tag=&validated_tag=
  GET  /api/v1/warnings?pharmacies_tag=&states_tag=&validated_tag=
  POST /api/v1/score  {"pharmacies_tag": ..., "states_tag": ...}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		serverCfg := cfg.Server
		if servePort != 0 {
			serverCfg.Port = servePort
		}

		return server.New(initEngine(st), serverCfg).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
