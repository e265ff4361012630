package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tallyloom/internal/server"
)

var (
	srvAddr   string
	srvNoSave bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the parse, analytics, sessions and export API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		engine, err := newEngine(nil)
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		opts := c.ServerOptions()
		if srvAddr != "" {
			opts.Addr = srvAddr
		}
		opts.SaveSessions = !srvNoSave

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, location := c.StoreLocation()
		slog.Info("session store", "backend", backend, "location", location)
		return server.New(engine, st, opts).Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (overrides server_addr)")
	serveCmd.Flags().BoolVar(&srvNoSave, "no-save", false, "do not store /parse results as sessions")
}
