package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/PolarWolf314/stash/internal/ui"
	"github.com/PolarWolf314/stash/internal/utils"
	"github.com/PolarWolf314/stash/internal/workflows"

	"github.com/spf13/cobra"
)

var deleteForce bool

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip confirmation prompt")
}

func resetDeleteCommandState() {
	deleteForce = false
}

var deleteCmd = &cobra.Command{
	Use:   "delete <file>...",
	Short: "Delete files and their secrets from the stash",
	Long: `Permanently removes files from the stash together with their secrets.

Deleting the archive container removes every secret it depends on. The
secret store itself can never be deleted.

On a terminal you are asked to confirm; use --force to skip the prompt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting delete command")

		if !deleteForce && utils.IsTerminal() {
			fmt.Printf("This will permanently delete:\n%s", ui.Items(args, ui.Error.Sprint("-")))
			ok, err := utils.Confirm(os.Stdin, os.Stdout, "Do you want to continue?")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted.")
				return nil
			}
		}

		spinner, cleanup := startSpinner("Deleting files...")
		defer cleanup()

		result, err := workflows.Delete(context.Background(), workflows.DeleteOptions{
			Common: common(),
			Files:  args,
		})
		if err != nil {
			return fail(spinner, err)
		}

		n := len(result.Deleted)
		spinner.FinalMSG = ui.Success.Sprint("✓") + fmt.Sprintf(" Deleted %d %s\n", n, utils.Plural(n, "file")) +
			ui.Items(result.Deleted, ui.Error.Sprint("-"))
		return nil
	},
}
