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

var (
	cleanForce  bool
	cleanDryRun bool
)

func init() {
	cleanCmd.Flags().BoolVarP(&cleanForce, "force", "f", false, "skip confirmation prompt")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "show what would be removed without making changes")
}

func resetCleanCommandState() {
	cleanForce = false
	cleanDryRun = false
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove secrets whose files are gone",
	Long: `Removes dangling entries from the secret store and temp files left
behind by interrupted operations.

A dangling entry is a secret whose file is no longer in the stash. This can
happen if:
  - A file was removed by hand
  - An add was interrupted after its secret was stored
  - The archive container was grabbed out of the stash

Files that have no secret are reported but never deleted.

Use --dry-run to preview what would be removed.
Use --force to skip the confirmation prompt.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting clean command")

		// Preview first so the user confirms an exact list.
		preview, err := workflows.Clean(context.Background(), workflows.CleanOptions{Common: common(), DryRun: true})
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}

		if len(preview.Orphaned) > 0 {
			fmt.Println(ui.Warning.Sprint("⚠") + " Files with no secret (left in place):")
			fmt.Print(ui.Items(preview.Orphaned, ui.Warning.Sprint("!")))
		}

		if preview.Empty() {
			fmt.Println(ui.Success.Sprint("✓") + " No dangling secrets found. Nothing to clean.")
			return nil
		}

		verb := "Found"
		if cleanDryRun {
			verb = "[dry-run] Would remove"
		}
		if len(preview.Dangling) > 0 {
			fmt.Printf("%s %d dangling %s:\n", verb, len(preview.Dangling), utils.Plural(len(preview.Dangling), "secret"))
			fmt.Print(ui.Items(preview.Dangling, "-"))
		}
		if len(preview.TempFiles) > 0 {
			fmt.Printf("%s %d leftover temp %s:\n", verb, len(preview.TempFiles), utils.Plural(len(preview.TempFiles), "file"))
			fmt.Print(ui.Items(preview.TempFiles, "-"))
		}

		if cleanDryRun {
			fmt.Println("\nNo changes made.")
			return nil
		}

		if !cleanForce && utils.IsTerminal() {
			fmt.Println("\nThese secrets cannot be recovered once removed.")
			ok, err := utils.Confirm(os.Stdin, os.Stdout, "Do you want to continue?")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted.")
				return nil
			}
		}

		result, err := workflows.Clean(context.Background(), workflows.CleanOptions{Common: common(), Force: cleanForce})
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}

		if len(result.Removed) > 0 {
			fmt.Printf("%s Removed %d dangling %s\n", ui.Success.Sprint("✓"), len(result.Removed), utils.Plural(len(result.Removed), "secret"))
		}
		if len(result.Swept) > 0 {
			fmt.Printf("%s Removed %d leftover temp %s\n", ui.Success.Sprint("✓"), len(result.Swept), utils.Plural(len(result.Swept), "file"))
		}
		return nil
	},
}
