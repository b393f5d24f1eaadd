package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/PolarWolf314/stash/internal/configs"
	logger "github.com/PolarWolf314/stash/internal/logging"
	"github.com/PolarWolf314/stash/internal/ui"
	"github.com/PolarWolf314/stash/internal/workflows"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	debug   bool
	rootDir string
	Logger  logger.Logger

	RootCmd = &cobra.Command{
		Use:   "stash",
		Short: "A personal encrypted-file vault",
		Long: `Stash keeps files encrypted at rest in a protected directory.

Every file moved into the stash is encrypted with its own random secret.
Secrets live in a store next to the files and in a short-lived session
cache. The whole stash can be collapsed into a single encrypted archive
and restored later.

Run 'stash init <label> --default' to create your first stash.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = *logger.New(verbose, debug)
			Logger.Debugf("Initializing stash command with verbose=%t, debug=%t", verbose, debug)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(figure.NewFigure("stash", "small", true).String())
			return cmd.Help()
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "stash directory to operate on")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(addCmd)
	RootCmd.AddCommand(grabCmd)
	RootCmd.AddCommand(deleteCmd)
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(archiveCmd)
	RootCmd.AddCommand(unpackCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(doctorCmd)
	RootCmd.AddCommand(cleanCmd)
	RootCmd.AddCommand(logCmd)
	RootCmd.AddCommand(configCmd)
}

// Execute runs the command tree. Errors a command already reported are not
// printed again.
func Execute() error {
	err := RootCmd.Execute()
	var reported *reportedError
	if err != nil && !errors.As(err, &reported) {
		fmt.Fprintln(os.Stderr, ui.Error.Sprint("✗")+" "+err.Error())
	}
	return err
}

// common returns the flag overrides and logger every workflow receives.
func common() workflows.Common {
	overrides := &configs.Config{}
	if rootDir != "" {
		overrides.Vault.Root = rootDir
	}
	return workflows.Common{Overrides: overrides, Logger: &Logger}
}

// Helper functions for testing

// GetRootCmd returns the RootCmd for testing.
func GetRootCmd() *cobra.Command {
	return RootCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	rootDir = ""
	resetAddCommandState()
	resetGrabCommandState()
	resetDeleteCommandState()
	resetListCommandState()
	resetInitCommandState()
	resetStatusCommandState()
	resetDoctorCommandState()
	resetCleanCommandState()
	resetLogCommandState()
	resetConfigShowState()
}

// SetVerbose sets the verbose flag for testing.
func SetVerbose(v bool) {
	verbose = v
}

// SetDebug sets the debug flag for testing.
func SetDebug(d bool) {
	debug = d
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
