package cmd

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cheahjs/replicate-image-bundler/internal/api"
	"github.com/cheahjs/replicate-image-bundler/internal/cache"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the generation API over HTTP",
	RunE:  serveCommand,
}

func init() {
	serveCmd.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "Address to listen on")
	serveCmd.Flags().StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Public base URL used in archive links")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	orchestrator, err := newOrchestrator()
	if err != nil {
		return err
	}

	archiveCache := cache.NewArchiveCache(cfg.ArchiveExpiry, cfg.ArchiveStoreMaxMB, cfg.ArchiveCleanupInterval)
	router := api.NewRouter(orchestrator, archiveCache, cfg.BaseURL)

	log.Info().
		Str("addr", cfg.ListenAddr).
		Str("model", cfg.ModelEndpoint).
		Msg("Server is running")
	return http.ListenAndServe(cfg.ListenAddr, router)
}
