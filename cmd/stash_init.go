package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/stash/internal/secrets"
	"github.com/PolarWolf314/stash/internal/ui"
	"github.com/PolarWolf314/stash/internal/workflows"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	initParent     string
	initSetDefault bool
	initCipher     cipherValue
)

// cipherValue is a flag that only accepts supported ciphers.
type cipherValue string

var _ pflag.Value = (*cipherValue)(nil)

func (c *cipherValue) String() string { return string(*c) }

func (c *cipherValue) Set(s string) error {
	cipher, err := secrets.ParseCipher(s)
	if err != nil {
		return err
	}
	*c = cipherValue(cipher)
	return nil
}

func (c *cipherValue) Type() string { return "cipher" }

func init() {
	initCmd.Flags().Var(&initCipher, "cipher", "cipher for the new stash: aes-256-gcm or chacha20-poly1305")
	initCmd.Flags().StringVar(&initParent, "parent", "", "directory to create the stash in (default: home directory)")
	initCmd.Flags().BoolVar(&initSetDefault, "default", false, "make the new stash the default in the config file")
}

func resetInitCommandState() {
	initParent = ""
	initSetDefault = false
	initCipher = ""
}

var initCmd = &cobra.Command{
	Use:   "init <label>",
	Short: "Create a new stash",
	Long: `Creates a new stash directory named <label> and its secret store.

The label becomes a directory name, so it cannot contain path separators,
glob characters or control characters, and cannot be "." or "..".

The cipher is taken from --cipher or the configuration when the stash is
created and stays fixed for the stash's lifetime.

Examples:
  stash init personal --default       # ~/personal, used by every command
  stash init work --parent /mnt/usb   # /mnt/usb/work`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")
		spinner, cleanup := startSpinner("Creating stash...")
		defer cleanup()

		c := common()
		c.Overrides.Vault.Cipher = string(initCipher)

		result, err := workflows.Init(context.Background(), workflows.InitOptions{
			Common:     c,
			Label:      args[0],
			Parent:     initParent,
			SetDefault: initSetDefault,
		})
		if err != nil {
			return fail(spinner, err)
		}

		msg := ui.Success.Sprint("✓") + " Created stash at " + ui.Path.Sprint(result.Root) + "\n" +
			ui.Muted.Sprint(fmt.Sprintf("id %s, %s", result.VaultID, result.Cipher))
		if result.ConfigUpdated {
			msg += "\n" + ui.Info.Sprint("→") + " Set as the default stash"
		} else {
			msg += "\n" + hint("Pass "+ui.Flag.Sprint("--root "+result.Root)+" or run with "+ui.Flag.Sprint("--default")+" to use it")
		}
		spinner.FinalMSG = msg
		return nil
	},
}
