package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gurumnet/ci-jobs/src/config"
	"github.com/gurumnet/ci-jobs/src/output"
)

// Exit codes.
const (
	exitOK           = 0
	exitJobFailures  = 1
	exitPrecondition = 2
)

var (
	cfgFile     string
	templateDir string
	verbose     bool
	noColor     bool
	cfg         *config.Config

	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "ci-jobs",
	Short: "Generate and synchronize the Jenkins CI job matrix",
	Long: `ci-jobs renders one Jenkins job per platform and ROS distribution and
reconciles it with the Jenkins server.

Without --commit nothing on the server changes: every job is compared and the
differences are printed. With --commit jobs are created or updated so the
server matches the rendered documents.`,
	Args: usageArgs(cobra.NoArgs),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		// Skip config loading for commands that don't need it.
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		var err error
		cfg, err = loadConfig(cfgFile)
		return err
	},
	RunE:          runSync,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "matrix config file, YAML or TOML (default: ci-jobs.yml when present)")
	rootCmd.PersistentFlags().StringVar(&templateDir, "template-dir", "", "directory of job templates (default: built-in templates)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return config.Precondition(err, "usage")
	})
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case config.IsPrecondition(err):
		log.Error(err)
		return exitPrecondition
	case errors.Is(err, context.Canceled):
		log.Error("interrupted")
		var jobErrs *multierror.Error
		if errors.As(err, &jobErrs) {
			log.Error(jobErrs)
		}
		return exitJobFailures
	default:
		log.Error(err)
		return exitJobFailures
	}
}

func setupLogging() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: !output.IsCI(),
		FullTimestamp:    true,
		DisableColors:    noColor || !output.UseColor(),
	})
	log.SetLevel(logrus.InfoLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
}

func useColor() bool {
	return !noColor && output.UseColor()
}

func loadConfig(path string) (*config.Config, error) {
	c, err := config.Load(path)
	if err != nil {
		if !config.IsPrecondition(err) {
			err = config.Precondition(err, "loading config")
		}
		return nil, err
	}
	if templateDir != "" {
		c.TemplateDir = templateDir
	}

	warnings, err := config.Validate(c)
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// usageArgs reports argument validation failures as usage preconditions.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return config.Precondition(err, "usage")
		}
		return nil
	}
}
