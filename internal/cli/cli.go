package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gantry-dev/gantry/pkg/logger"
	"github.com/gantry-dev/gantry/pkg/model"
)

// Exit codes, ordered by severity. When a run has both build and apply
// failures, the apply code wins: something may have half-landed on the
// cluster, which is worse news than a broken build.
const (
	exitCodeStructural = 1
	exitCodeCycle      = 2
	exitCodeBuild      = 3
	exitCodeApply      = 4
)

var debug bool
var verbose bool

func logLevel() logger.Level {
	if debug {
		return logger.DebugLvl
	} else if verbose {
		return logger.VerboseLvl
	}
	return logger.InfoLvl
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := &cobra.Command{
		Use:   "gantry",
		Short: "gantry builds images and applies manifests, declared in Gantryfiles",
		Long: `gantry reads target declarations from Gantryfiles, figures out what
changed since the last run, rebuilds only the stale images, and applies
the manifests that bind them, in dependency order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addCommand(rootCmd, newResolveCmd())
	addCommand(rootCmd, newBuildCmd())
	addCommand(rootCmd, newApplyCmd())
	addCommand(rootCmd, newDownCmd())
	addCommand(rootCmd, newVersionCmd())

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	addFileFlags(rootCmd)

	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return exitCodeFor(err)
}

func exitCodeFor(err error) int {
	var exitErr exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var cycleErr model.CycleError
	if errors.As(err, &cycleErr) {
		return exitCodeCycle
	}
	return exitCodeStructural
}

// exitError carries an explicit exit code for failures the run summary
// already reported in detail.
type exitError struct {
	code int
	msg  string
}

func (e exitError) Error() string { return e.msg }

type gantryCmd interface {
	register() *cobra.Command
	run(ctx context.Context, args []string) error
}

func addCommand(parent *cobra.Command, child gantryCmd) {
	cobraChild := child.register()
	cobraChild.RunE = func(_ *cobra.Command, args []string) error {
		ctx, cleanup := commandContext()
		defer cleanup()
		return child.run(ctx, args)
	}
	parent.AddCommand(cobraChild)
}

// newRootLogger builds the process logger. Build workers write to the
// sink concurrently, so it goes behind a mutex.
func newRootLogger(out io.Writer) logger.Logger {
	return logger.NewLogger(logLevel(), logger.NewMutexWriter(out))
}

// commandContext builds the run context: logger attached, klog quieted,
// canceled on SIGINT/SIGTERM so in-flight builds stop.
func commandContext() (context.Context, func()) {
	l := newRootLogger(os.Stdout)
	ctx := logger.WithLogger(context.Background(), l)
	initKlog(l.Writer(logger.DebugLvl))

	ctx, cancel := context.WithCancel(ctx)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	return ctx, func() {
		signal.Stop(sigs)
		cancel()
	}
}
