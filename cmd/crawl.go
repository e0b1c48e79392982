package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// newCrawlCmd creates the 'crawl' subcommand: a single configuration-driven
// run that blocks until the frontier drains or the process is interrupted.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Runs one crawl of the configured target",
		Long: `Crawls the configured target application once. Interrupting the process
stops the run between pages; work already persisted is kept and the page
index is still written.`,

		RunE: runCrawlCommand,
	}

	cmd.Flags().String("seed", "", "seed URL (overrides target.base_url)")
	cmd.Flags().Int("max-depth", 0, "maximum traversal depth (overrides crawler.max_depth)")
	mustBindFlag("target.base_url", cmd, "seed")
	mustBindFlag("crawler.max_depth", cmd, "max-depth")

	return cmd
}

func mustBindFlag(key string, cmd *cobra.Command, flag string) {
	if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := appInstance.RunOnce(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl: %w", err)
	}

	appInstance.Logger().Info("crawl command finished",
		zap.String("status", string(summary.Status)),
		zap.Int("pages", summary.Pages),
		zap.Int("failures", summary.Failures),
		zap.String("index_uri", summary.IndexURI),
	)
	return nil
}
