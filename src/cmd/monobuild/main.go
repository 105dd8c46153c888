// Package main provides the monobuild CLI: it triggers a CircleCI build for
// every monorepo package changed by the last commit and waits for the results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"monobuild/src/config"
	"monobuild/src/logger"
	"monobuild/src/provider"
)

var (
	// Application configuration, loaded before any command runs
	appConfig *config.Config

	configFile  string
	verbose     bool
	useTUI      bool
	dryRun      bool
	gitBackend  string
	metricsFile string

	// exitCode is set by commands that finish without a fatal error
	exitCode int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "monobuild",
	Short: "monobuild - per-package CircleCI builds for a monorepo",
	Long: `monobuild detects which packages under packages/ changed in the last
commit, triggers a CircleCI build for each one using the package's own
.circleci/config.yml, and polls until every build has finished.

The process exits 0 only when every build succeeded.

Environment (checked only by commands that call CircleCI):
  CIRCLE_PROJECT_USERNAME  GitHub owner of the repository
  CIRCLE_PROJECT_REPONAME  repository name
  CIRCLE_BRANCH            branch to build
  CIRCLE_TOKEN             CircleCI API token`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var (
			cfg *config.Config
			err error
		)
		if configFile == "" {
			cfg, err = config.LoadFromEnv()
		} else {
			cfg, err = config.Load(configFile)
		}
		if err != nil {
			return err
		}
		if err := cfg.Require(requiredVars(cmd.Name(), dryRun)...); err != nil {
			return err
		}
		applyFlags(cfg, cmd)
		appConfig = cfg
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "path to a YAML config file (default "+config.DefaultFile+" if present)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&useTUI, "tui", false, "show an interactive progress view")
	flags.BoolVar(&dryRun, "dry-run", false, "report the builds that would be triggered without calling CircleCI")
	flags.StringVar(&gitBackend, "git-backend", "", "change detection backend: exec or go-git")
	flags.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")

	rootCmd.AddCommand(runCmd, triggerCmd, pollCmd, watchCmd, changesCmd)
}

// applyFlags overlays explicitly set command line flags on the loaded configuration.
func applyFlags(cfg *config.Config, cmd *cobra.Command) {
	if cmd.Flags().Changed("git-backend") {
		cfg.GitBackend = gitBackend
	}
	if cmd.Flags().Changed("metrics-file") {
		cfg.MetricsFile = metricsFile
	}
}

func newLogger() logger.Logger {
	return logger.NewConsoleLogger(verbose)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", provider.WrapError(err))
		os.Exit(1)
	}
	os.Exit(exitCode)
}
