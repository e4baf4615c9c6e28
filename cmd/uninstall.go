package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kopi-vm/kopi/pkg/storage"
	"github.com/kopi-vm/kopi/pkg/uninstall"
)

var (
	uninstallForce   bool
	uninstallDryRun  bool
	uninstallAll     bool
	uninstallCleanup bool
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall [<version>|<distribution>]",
	Short: "Uninstall JDKs",
	Long: `Uninstall an installed JDK.

A plain version that matches more than one installation is rejected with
the list of candidates; disambiguate with distribution@version. With
--all, every installation matching the distribution or version prefix is
removed, and one failure does not abort the rest.

Examples:
  kopi uninstall temurin@21.0.5+11
  kopi uninstall 17 --dry-run
  kopi uninstall temurin --all
  kopi uninstall --cleanup`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		handler := uninstall.New(cfg, storage.NewRepository(cfg))

		if uninstallCleanup {
			result, err := handler.CleanupOrphans()
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d leftover entries\n", len(result.RemovedPaths))
			return nil
		}

		if len(args) == 0 && !uninstallAll {
			return fmt.Errorf("specify a version to uninstall, or --all")
		}

		opts := uninstall.Options{Force: uninstallForce, DryRun: uninstallDryRun}

		if uninstallAll {
			spec := ""
			if len(args) == 1 {
				spec = args[0]
			}
			jdks, err := handler.SelectBatch(spec)
			if err != nil {
				return err
			}

			result, err := handler.UninstallBatch(jdks, opts)
			if result != nil {
				for _, item := range result.Items {
					if item.Err != nil {
						color.New(color.FgRed).Fprintf(os.Stderr, "  failed  %s@%s: %v\n",
							item.Jdk.Distribution, item.Jdk.Version.String(), item.Err)
					} else if uninstallDryRun {
						fmt.Printf("  would remove %s@%s (%s)\n",
							item.Jdk.Distribution, item.Jdk.Version.String(), formatSize(item.Size))
					} else {
						fmt.Printf("  removed %s@%s (%s)\n",
							item.Jdk.Distribution, item.Jdk.Version.String(), formatSize(item.Size))
					}
				}
				if !uninstallDryRun {
					fmt.Printf("%d removed, %d failed, %s freed\n",
						result.Succeeded(), result.Failed(), formatSize(result.TotalSize))
				}
			}
			return err
		}

		removal, err := handler.Uninstall(args[0], opts)
		if err != nil {
			return err
		}
		if uninstallDryRun {
			fmt.Printf("Would remove %s (%s)\n", removal.Jdk.Slug(), formatSize(removal.Size))
			return nil
		}
		fmt.Printf("Uninstalled %s, freed %s\n", removal.Jdk.Slug(), formatSize(removal.Size))
		return nil
	},
}

func init() {
	uninstallCmd.Flags().BoolVarP(&uninstallForce, "force", "f", false, "skip in-use safety checks")
	uninstallCmd.Flags().BoolVar(&uninstallDryRun, "dry-run", false, "show what would be removed")
	uninstallCmd.Flags().BoolVar(&uninstallAll, "all", false, "remove every matching installation")
	uninstallCmd.Flags().BoolVar(&uninstallCleanup, "cleanup", false, "remove leftovers from interrupted operations")
}
