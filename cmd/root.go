// Package cmd defines and implements the CLI commands for the siteatlas
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/siteatlas/siteatlas/internal/app"
	"github.com/siteatlas/siteatlas/internal/logging"
	"github.com/siteatlas/siteatlas/pkg/config"
)

var cfgFile string

type appKeyType struct{}

// newRootCmd creates and configures the root command. The application
// container is built in PersistentPreRunE, after configuration is loaded,
// and torn down in PersistentPostRun.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "siteatlas",
		Short: "Maps a web application into browsable HTML and screenshot snapshots.",
		Long: `siteatlas walks a web application breadth-first from a seed URL, staying
on the seed's authority. Every visited page is persisted as rendered HTML
plus a full-page screenshot, and the run ends with a JSON index of all
captured pages.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(
				viper.GetBool("logging.development"),
				viper.GetString("logging.level"),
			)
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			appInstance, err := app.New(cmd.Context(), viper.GetViper(), logger)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKeyType{}, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKeyType{}).(*app.App); ok && appInstance != nil {
				closeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				appInstance.Close(closeCtx)
			}
		},
	}

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
		bootLogger, err := logging.New(false, "")
		if err != nil {
			bootLogger = zap.NewNop()
		}
		config.InitConfig(bootLogger)
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., /etc/siteatlas, $HOME/.siteatlas)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKeyType{}).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
