package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var localCmd = &cobra.Command{
	Use:   "local <version>",
	Short: "Pin the JDK version for this project",
	Long: `Write a .kopi-version file in the current directory pinning the
project's JDK. The selected version must be installed.

Examples:
  kopi local 21
  kopi local corretto@17`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		jdk, err := findInstalledFor(cfg, args[0])
		if err != nil {
			return err
		}

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		path := filepath.Join(cwd, ".kopi-version")
		if err := jdk.WriteTo(path); err != nil {
			return err
		}
		fmt.Printf("Pinned %s@%s in %s\n",
			jdk.Distribution, jdk.Version.MinimalString(), path)
		return nil
	},
}
