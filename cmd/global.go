package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kopi-vm/kopi/pkg/config"
	"github.com/kopi-vm/kopi/pkg/storage"
	"github.com/kopi-vm/kopi/pkg/uninstall"
	verpkg "github.com/kopi-vm/kopi/pkg/version"
)

var globalCmd = &cobra.Command{
	Use:   "global <version>",
	Short: "Set the global default JDK version",
	Long: `Set the global default JDK version, used when no environment
variable or project version file applies. The selected version must be
installed.

Examples:
  kopi global 21
  kopi global temurin@21`,
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

		if err := jdk.WriteTo(cfg.GlobalVersionPath()); err != nil {
			return err
		}
		fmt.Printf("Set global default to %s@%s\n", jdk.Distribution, jdk.Version.MinimalString())
		return nil
	},
}

// findInstalledFor resolves a request string to the best installed JDK.
func findInstalledFor(cfg *config.KopiConfig, spec string) (*storage.InstalledJdk, error) {
	req, err := verpkg.ParseRequest(spec)
	if err != nil {
		return nil, err
	}

	repo := storage.NewRepository(cfg)
	matches, err := repo.FindMatching(req)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, errors.Wrapf(uninstall.ErrNotInstalled,
			"%s (install it first with 'kopi install %s')", spec, spec)
	}

	// Highest matching version wins.
	jdk := matches[len(matches)-1]
	return &jdk, nil
}
