package cmd

import (
	"fmt"

	"github.com/linctl/linctl/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the linctl config file",
	Long: `Create a commented config file.

This creates:
  ~/.linctl/config.yaml    - API key, endpoint and display defaults

An existing file is left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}

		fmt.Println("Initializing linctl...")

		wrote, err := config.WriteDefault(path)
		if err != nil {
			return err
		}
		if wrote {
			fmt.Printf("   ✓ Created %s\n", path)
		} else {
			fmt.Printf("   ✓ Config exists at %s\n", path)
		}

		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  1. Add your API key:   api_key in the config, or export " + config.EnvAPIKey)
		fmt.Println("  2. Check access:       linctl whoami")
		fmt.Println("  3. Watch an issue:     linctl watch issue ENG-123")
		return nil
	},
}
