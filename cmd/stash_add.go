package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/stash/internal/ui"
	"github.com/PolarWolf314/stash/internal/utils"
	"github.com/PolarWolf314/stash/internal/workflows"

	"github.com/spf13/cobra"
)

var addCopy bool

func init() {
	addCmd.Flags().BoolVarP(&addCopy, "copy", "c", false, "encrypt a copy and leave the original in place")
}

func resetAddCommandState() {
	addCopy = false
}

var addCmd = &cobra.Command{
	Use:   "add [-c] <file>...",
	Short: "Move files into the stash and encrypt them",
	Long: `Moves each file into the stash and encrypts it with a fresh secret.

The file keeps its base name inside the stash. With --copy the original is
left where it is and only the copy is encrypted.

Adding is refused while the stash is archived.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting add command")
		spinner, cleanup := startSpinner("Encrypting files...")
		defer cleanup()

		result, err := workflows.Add(context.Background(), workflows.AddOptions{
			Common: common(),
			Files:  args,
			Copy:   addCopy,
		})
		if err != nil {
			msg := formatError(err)
			if result != nil && len(result.Added) > 0 {
				msg = ui.Success.Sprint("✓") + " Added before the failure:" + utils.FormatPaths(result.Added) + msg
			}
			spinner.FinalMSG = msg
			return reported(err)
		}

		verb := "Moved"
		if addCopy {
			verb = "Copied"
		}
		n := len(result.Added)
		spinner.FinalMSG = ui.Success.Sprint("✓") + fmt.Sprintf(" %s %d %s into the stash\n", verb, n, utils.Plural(n, "file")) +
			ui.Items(result.Added, ui.Success.Sprint("+"))
		return nil
	},
}
