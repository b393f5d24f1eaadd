package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/PolarWolf314/stash/internal/ui"
	"github.com/PolarWolf314/stash/internal/workflows"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

var configShowJSON bool

// configCmd is the top-level config command.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect stash configuration",
	Long: `Provides commands for inspecting the configuration.

Settings are merged from, in decreasing priority: command-line flags,
STASH_* environment variables, the TOML config file and built-in defaults.
The config file is read from $STASH_CONFIG, or config.toml in the user
config directory.`,
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")
	configCmd.AddCommand(configShowCmd)
}

// resetConfigShowState resets the config show command's global state for testing.
func resetConfigShowState() {
	configShowJSON = false
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Displays the configuration every other command would use, after merging
flags, environment, the config file and defaults.

Examples:
  stash config show
  stash config show --json
  STASH_CACHE_BACKEND=keychain stash config show`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config show command")

		result, err := workflows.ConfigShow(context.Background(), workflows.ConfigShowOptions{Common: common()})
		if err != nil {
			fmt.Println(formatError(err))
			return reported(err)
		}

		if configShowJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(result.Config)
		}

		source := ui.Muted.Sprint("not found, using defaults")
		if result.FileExists {
			source = ""
		}
		fmt.Printf("# %s %s\n", ui.Path.Sprint(result.Path), source)
		return toml.NewEncoder(os.Stdout).Encode(result.Config)
	},
}
