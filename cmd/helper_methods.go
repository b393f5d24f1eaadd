package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/PolarWolf314/stash/internal/ui"
	"github.com/PolarWolf314/stash/internal/utils"

	"github.com/briandowns/spinner"
)

// spinnerEnabled reports whether a spinner should animate: never in verbose
// or debug mode, and never when stdout is not a terminal.
func spinnerEnabled() bool {
	return !verbose && !debug && utils.IsOutputTerminal()
}

// startSpinner creates and starts a spinner with the given message.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	animate := spinnerEnabled()
	if animate {
		s.Start()
		// Ensure log output is discarded while the spinner owns the line.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("%s", message)
	}

	cleanup := func() {
		if animate {
			log.SetOutput(os.Stderr)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if animate {
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// reportedError marks an error whose message was already shown to the user.
// The process still exits non-zero.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

// reported wraps err so Execute does not print it twice.
func reported(err error) error {
	return &reportedError{err: err}
}

// formatError turns an engine error into a user-facing message with a hint
// for the common cases.
func formatError(err error) string {
	msg := ui.Error.Sprint("✗") + " " + err.Error()

	switch {
	case errors.Is(err, serrors.ErrVaultNotFound):
		return msg + "\n" + hint("Run "+ui.Code.Sprint("stash init <label> --default")+" or pass "+ui.Flag.Sprint("--root"))
	case errors.Is(err, serrors.ErrVaultArchived):
		return msg + "\n" + hint("Run "+ui.Code.Sprint("stash unpack")+" to restore the files")
	case errors.Is(err, serrors.ErrVaultNotArchived), errors.Is(err, serrors.ErrNothingToArchive):
		return msg
	case errors.Is(err, serrors.ErrSecretNotFound):
		return msg + "\n" + hint("The secret for this file is gone; run "+ui.Code.Sprint("stash doctor")+" for details")
	case errors.Is(err, serrors.ErrAuthenticationFailed):
		return msg + "\n" + hint("The file was modified or its secret does not match; it was left untouched")
	case errors.Is(err, serrors.ErrCorruptSecret):
		return msg + "\n" + hint("The secret store entry is damaged; restore "+ui.Path.Sprint(".db")+" from a backup")
	case errors.Is(err, serrors.ErrStoreLocked):
		return msg + "\n" + hint("Another stash command is running against this stash")
	case errors.Is(err, serrors.ErrExternalToolFailure):
		return msg + "\n" + hint("Check the archive and list tools with "+ui.Code.Sprint("stash doctor"))
	case errors.Is(err, serrors.ErrAlreadyExists):
		return msg + "\n" + hint("Move or rename the existing file first")
	default:
		return msg
	}
}

func hint(text string) string {
	return ui.Info.Sprint("→") + " " + text
}

// fail records a formatted failure on the spinner and returns the error to
// cobra.
func fail(s *spinner.Spinner, err error) error {
	s.FinalMSG = formatError(err)
	return reported(err)
}
