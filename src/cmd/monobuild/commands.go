package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"monobuild/src/broker"
	"monobuild/src/logger"
	"monobuild/src/pipeline"
	"monobuild/src/report"
	"monobuild/src/tui"
)

var (
	triggerOutput string
	pollBuilds    string
)

// runCmd triggers and polls in one process
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger builds for changed packages and wait for them",
	Long: `Detect the packages changed by the last commit, trigger one CircleCI
build per package that has a CI configuration, and poll until all builds
finish. Exits 1 if any build did not succeed.

Example:
  monobuild run
  monobuild run --tui
  monobuild run --dry-run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd.Context(), func(ctx context.Context, p *pipeline.Pipeline) (report.Summary, error) {
			return p.Run(ctx)
		})
	},
}

// triggerCmd runs only the trigger stage
var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Trigger builds for changed packages and print the build map",
	Long: `Trigger one CircleCI build per changed package and write the resulting
package to build number map as JSON, for a later 'monobuild poll'.

Example:
  monobuild trigger --output builds.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := pipeline.New(appConfig, pipeline.Options{DryRun: dryRun, Log: newLogger()})
		if err != nil {
			return err
		}
		defer p.Close()

		builds, err := p.Trigger(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if triggerOutput != "" {
			f, err := os.Create(triggerOutput)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", triggerOutput, err)
			}
			defer f.Close()
			out = f
		}
		return writeBuildMap(out, builds)
	},
}

// pollCmd runs only the poll stage
var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Wait for the builds in a build map",
	Long: `Read a package to build number map as JSON, from --builds or stdin, and
poll CircleCI until every build finishes. Exits 1 if any build did not succeed.

Example:
  monobuild trigger | monobuild poll`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if pollBuilds != "" && pollBuilds != "-" {
			f, err := os.Open(pollBuilds)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", pollBuilds, err)
			}
			defer f.Close()
			in = f
		}
		builds, err := readBuildMap(in)
		if err != nil {
			return err
		}

		return execute(cmd.Context(), func(ctx context.Context, p *pipeline.Pipeline) (report.Summary, error) {
			return p.Poll(ctx, builds)
		})
	},
}

// watchCmd polls builds given by URL
var watchCmd = &cobra.Command{
	Use:   "watch [build-url]...",
	Short: "Wait for CircleCI builds given by URL",
	Long: `Poll the given CircleCI builds until they finish.

Example:
  monobuild watch https://circleci.com/gh/acme/monorepo/101 https://circleci.com/gh/acme/monorepo/102`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return execute(cmd.Context(), func(ctx context.Context, p *pipeline.Pipeline) (report.Summary, error) {
			return p.Watch(ctx, args)
		})
	},
}

// changesCmd prints the change detection result
var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Print the packages changed by the last commit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		detector, err := pipeline.NewDetector(appConfig)
		if err != nil {
			return err
		}
		set, err := detector.Detect(cmd.Context())
		if err != nil {
			return err
		}
		printChangeSet(cmd.OutOrStdout(), set, verbose)
		return nil
	},
}

func init() {
	triggerCmd.Flags().StringVarP(&triggerOutput, "output", "o", "", "write the build map to this file instead of stdout")
	pollCmd.Flags().StringVar(&pollBuilds, "builds", "", "build map JSON file (default stdin)")
}

type stage func(ctx context.Context, p *pipeline.Pipeline) (report.Summary, error)

// execute runs a polling stage, with the progress view when --tui is set,
// and records the exit code.
func execute(ctx context.Context, run stage) error {
	var (
		s   report.Summary
		err error
	)
	if useTUI {
		s, err = executeWithTUI(ctx, run)
	} else {
		s, err = executePlain(ctx, run)
	}
	if err != nil {
		return err
	}
	exitCode = s.ExitCode
	return nil
}

func executePlain(ctx context.Context, run stage) (report.Summary, error) {
	p, err := pipeline.New(appConfig, pipeline.Options{DryRun: dryRun, Log: newLogger()})
	if err != nil {
		return report.Summary{}, err
	}
	defer p.Close()

	return run(ctx, p)
}

// executeWithTUI runs the stage in the background and renders its events.
// Logging is silenced so it does not corrupt the display; the summary table
// is printed once the view exits.
func executeWithTUI(ctx context.Context, run stage) (report.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	local := broker.NewInMemoryBroker()
	defer local.Close()

	events, err := local.Subscribe(ctx, appConfig.EventsTopic, "tui")
	if err != nil {
		return report.Summary{}, err
	}

	p, err := pipeline.New(appConfig, pipeline.Options{DryRun: dryRun, Local: local, Log: logger.NewSilentLogger()})
	if err != nil {
		return report.Summary{}, err
	}

	type result struct {
		summary report.Summary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		s, err := run(ctx, p)
		p.Close()
		done <- result{s, err}
	}()

	m, err := tui.RunWatch(ctx, events, cancel)
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
	}
	// Keep the stage from blocking on a full subscriber buffer once the view is gone.
	go func() {
		for range events {
		}
	}()

	r := <-done
	if r.err != nil {
		return r.summary, stageError(r.err, m.Quit())
	}
	fmt.Print(tui.RenderSummary(r.summary, p.BuildURL))
	return r.summary, nil
}
