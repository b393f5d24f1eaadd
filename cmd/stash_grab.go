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

var (
	grabCopy bool
	grabDest string
)

func init() {
	grabCmd.Flags().BoolVarP(&grabCopy, "copy", "c", false, "decrypt a copy and keep the file in the stash")
	grabCmd.Flags().StringVarP(&grabDest, "output", "o", "", "directory to write the files to (default: working directory)")
}

func resetGrabCommandState() {
	grabCopy = false
	grabDest = ""
}

var grabCmd = &cobra.Command{
	Use:   "grab [-c] <file>...",
	Short: "Decrypt files out of the stash",
	Long: `Moves each file out of the stash into the working directory and decrypts
it there. Its secret is forgotten once the plaintext is written.

With --copy the encrypted file and its secret stay in the stash.

While the stash is archived only the archive container, ` + "`" + vault.ContainerName + "`" + `, can be
grabbed. Grabbing it without --copy leaves the stash unarchived.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting grab command")
		spinner, cleanup := startSpinner("Decrypting files...")
		defer cleanup()

		result, err := workflows.Grab(context.Background(), workflows.GrabOptions{
			Common:  common(),
			Files:   args,
			Copy:    grabCopy,
			DestDir: grabDest,
		})
		if err != nil {
			msg := formatError(err)
			if result != nil && len(result.Paths) > 0 {
				msg = ui.Success.Sprint("✓") + " Decrypted before the failure:" + utils.FormatPaths(result.Paths) + msg
			}
			spinner.FinalMSG = msg
			return reported(err)
		}

		n := len(result.Paths)
		spinner.FinalMSG = ui.Success.Sprint("✓") + fmt.Sprintf(" Decrypted %d %s", n, utils.Plural(n, "file")) +
			utils.FormatPaths(result.Paths)
		return nil
	},
}
