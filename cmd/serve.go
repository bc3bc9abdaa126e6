package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/courserag/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web chat and JSON API",
	Long: `Indexes the configured docs folder (unchanged courses are skipped) and
starts the HTTP server with the query, reset and courses endpoints, the
WebSocket chat and the optional static front end.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides config)")
	serveCmd.Flags().String("static", "", "directory with the front end to serve at / (overrides config)")
	serveCmd.Flags().Bool("skip-ingest", false, "do not index the docs folder at startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}
	if static, _ := cmd.Flags().GetString("static"); static != "" {
		cfg.Server.StaticDir = static
	}
	skipIngest, _ := cmd.Flags().GetBool("skip-ingest")

	c, err := buildComponents(cfg, buildOptions{withLLM: true})
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !skipIngest {
		if _, statErr := os.Stat(cfg.DocsDir); statErr == nil {
			report, err := c.system.AddCourseFolder(ctx, cfg.DocsDir, false)
			if err != nil {
				// The server is still useful with whatever was indexed before.
				logger.Error("indexing docs folder failed", zap.String("dir", cfg.DocsDir), zap.Error(err))
			} else {
				logger.Info("indexed docs folder",
					zap.String("dir", cfg.DocsDir),
					zap.Int("courses", report.Courses()),
					zap.Int("chunks", report.Chunks),
					zap.Int("failed", len(report.Failures)),
				)
			}
		} else {
			logger.Warn("docs folder not found, serving existing index", zap.String("dir", cfg.DocsDir))
		}
	}

	srv := server.New(server.Config{
		Port:      cfg.Server.Port,
		AllowAll:  cfg.Server.AllowAll,
		StaticDir: cfg.Server.StaticDir,
	}, c.system, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	fmt.Fprintf(os.Stderr, "courserag listening on http://localhost:%d (courses=%d)\n", cfg.Server.Port, c.store.CourseCount())

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
