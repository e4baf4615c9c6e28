package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kopi-vm/kopi/pkg/storage"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List installed JDKs",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		repo := storage.NewRepository(cfg)

		installed, err := repo.ListInstalled()
		if err != nil {
			return err
		}
		if len(installed) == 0 {
			fmt.Println("No JDKs installed. Run 'kopi install <version>' to get started.")
			return nil
		}

		for _, jdk := range installed {
			fmt.Printf("%s@%s\n", jdk.Distribution, jdk.Version.String())
		}
		return nil
	},
}
