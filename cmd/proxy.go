package cmd

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/grubslash/client/proxy"
)

var proxyAddr string

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Run the link validation relay",
	Long: `Serve the passthrough relay that forwards link validation requests
to the backend with the shared proxy secret attached. Browser clients
that cannot hold the secret themselves validate through this.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		handler := proxy.NewHandler(cfg.BackendURL, cfg.ProxySecret)
		srv := &http.Server{Addr: proxyAddr, Handler: handler}

		go func() {
			<-cmd.Context().Done()
			srv.Close()
		}()

		slog.Info("proxy listening", "addr", proxyAddr, "upstream", cfg.BackendURL)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(proxyCmd)
	proxyCmd.Flags().StringVar(&proxyAddr, "addr", ":8787", "Listen address")
}
