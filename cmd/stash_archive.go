package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/stash/internal/ui"
	"github.com/PolarWolf314/stash/internal/utils"
	"github.com/PolarWolf314/stash/internal/vault"
	"github.com/PolarWolf314/stash/internal/workflows"

	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Collapse the stash into one encrypted archive",
	Long: `Decrypts every file, packs them into a single compressed container and
encrypts the container with a fresh secret.

Afterwards the stash holds only the container and its secret store. Use
'stash unpack' to restore the files.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting archive command")
		spinner, cleanup := startSpinner("Archiving stash...")
		defer cleanup()

		result, err := workflows.Archive(context.Background(), workflows.ArchiveOptions{Common: common()})
		if err != nil {
			return fail(spinner, err)
		}

		n := len(result.Files)
		spinner.FinalMSG = ui.Success.Sprint("✓") + fmt.Sprintf(" Archived %d %s into ", n, utils.Plural(n, "file")) +
			ui.Item.Sprint(vault.ContainerName) + " " + ui.State(result.State == vault.Archived)
		return nil
	},
}

var unpackCmd = &cobra.Command{
	Use:   "unpack",
	Short: "Restore the stash from its archive",
	Long: `Decrypts the archive container, extracts its files back into the stash
and encrypts each of them again with its original secret.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting unpack command")
		spinner, cleanup := startSpinner("Unpacking stash...")
		defer cleanup()

		result, err := workflows.Unpack(context.Background(), workflows.UnpackOptions{Common: common()})
		if err != nil {
			return fail(spinner, err)
		}

		n := len(result.Files)
		spinner.FinalMSG = ui.Success.Sprint("✓") + fmt.Sprintf(" Restored %d %s ", n, utils.Plural(n, "file")) +
			ui.State(result.State == vault.Archived) + "\n" + ui.Items(result.Files, ui.Success.Sprint("+"))
		return nil
	},
}
