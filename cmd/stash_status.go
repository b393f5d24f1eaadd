package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/PolarWolf314/stash/internal/ui"
	"github.com/PolarWolf314/stash/internal/utils"
	"github.com/PolarWolf314/stash/internal/workflows"

	"github.com/spf13/cobra"
)

var statusJSONOutput bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSONOutput, "json", false, "output in JSON format")
}

func resetStatusCommandState() {
	statusJSONOutput = false
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the stash",
	Long: `Shows whether the stash is archived, what it holds, how many secrets its
store tracks and which store and cache backends are in use.

Files without a secret and secrets without a file are reported; see
'stash clean' and 'stash doctor'.

Use --json for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")

		result, err := workflows.Status(context.Background(), workflows.StatusOptions{Common: common()})
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}

		if statusJSONOutput {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		}

		printStatus(result)
		return nil
	},
}

func printStatus(result *workflows.StatusResult) {
	fmt.Printf("Stash:    %s %s\n", ui.Path.Sprint(result.Root), ui.State(result.Archived))
	if result.ID != "" {
		fmt.Printf("ID:       %s\n", result.ID)
	}
	if !result.CreatedAt.IsZero() {
		fmt.Printf("Created:  %s\n", result.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Cipher:   %s\n", result.Cipher)
	fmt.Printf("Store:    %s, %d %s\n", result.StoreBackend, result.Entries, utils.Plural(result.Entries, "secret"))
	fmt.Printf("Cache:    %s\n", result.CacheBackend)
	fmt.Println()

	if len(result.Items) == 0 {
		fmt.Println(ui.Muted.Sprint("stash is empty"))
	} else {
		fmt.Printf("%d %s:\n", len(result.Items), utils.Plural(len(result.Items), "item"))
		fmt.Print(ui.Items(result.Items, "•"))
	}

	if result.Scan.Clean() {
		return
	}
	fmt.Println()
	if len(result.Scan.OrphanedFiles) > 0 {
		fmt.Println(ui.Error.Sprint("✗") + " Files with no secret (cannot be decrypted):")
		fmt.Print(ui.Items(result.Scan.OrphanedFiles, ui.Error.Sprint("!")))
	}
	if len(result.Scan.DanglingEntries) > 0 {
		fmt.Println(ui.Warning.Sprint("⚠") + " Secrets with no file:")
		fmt.Print(ui.Items(result.Scan.DanglingEntries, ui.Warning.Sprint("?")))
		fmt.Println(hint("Run " + ui.Code.Sprint("stash clean") + " to remove them"))
	}
	if len(result.Scan.TempFiles) > 0 {
		fmt.Println(ui.Warning.Sprint("⚠") + " Temp files from an interrupted operation:")
		fmt.Print(ui.Items(result.Scan.TempFiles, ui.Warning.Sprint("?")))
		fmt.Println(hint("Run " + ui.Code.Sprint("stash clean") + " to remove them"))
	}
}
