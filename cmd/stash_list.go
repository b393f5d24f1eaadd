package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/stash/internal/vault"
	"github.com/PolarWolf314/stash/internal/workflows"

	"github.com/spf13/cobra"
)

var listAll bool

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include hidden names and program files")
}

func resetListCommandState() {
	listAll = false
}

var listCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List the files in the stash",
	Long: `Prints the names in the stash, one per line, like ls.

An optional glob narrows the output, for example '*.pdf' or 'tax-*'. While the
stash is archived the only name is the archive container.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting list command")

		opts := workflows.ListOptions{Common: common(), All: listAll}
		if len(args) == 1 {
			opts.Pattern = args[0]
		}

		result, err := workflows.List(context.Background(), opts)
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}

		Logger.Debugf("Stash is %s with %d names", result.State, len(result.Names))
		if result.State == vault.Archived {
			Logger.Infof("Stash is archived; run 'stash unpack' to see its files")
		}
		for _, name := range result.Names {
			fmt.Println(name)
		}
		return nil
	},
}
