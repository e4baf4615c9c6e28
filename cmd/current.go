package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kopi-vm/kopi/pkg/resolver"
	"github.com/kopi-vm/kopi/pkg/storage"
)

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the JDK version active in this directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		resolved, err := resolver.New(cfg).Resolve()
		if err != nil {
			return err
		}

		fmt.Printf("%s (from %s: %s)\n",
			resolved.Request.String(), resolved.Source, resolved.Origin)

		repo := storage.NewRepository(cfg)
		matches, err := repo.FindMatching(resolved.Request)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Println("Not installed. Run 'kopi install " + resolved.Request.String() + "'.")
			return nil
		}

		// The highest matching install satisfies the request.
		jdk := matches[len(matches)-1]
		home, err := repo.JavaHome(&jdk)
		if err != nil {
			return err
		}
		fmt.Printf("Using %s@%s\n", jdk.Distribution, jdk.Version.String())
		fmt.Printf("  JAVA_HOME: %s\n", home)
		return nil
	},
}
