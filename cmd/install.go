package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kopi-vm/kopi/pkg/download"
	"github.com/kopi-vm/kopi/pkg/install"
	"github.com/kopi-vm/kopi/pkg/storage"
	verpkg "github.com/kopi-vm/kopi/pkg/version"
)

var (
	installForce      bool
	installDryRun     bool
	installNoProgress bool
)

var installCmd = &cobra.Command{
	Use:   "install <version>",
	Short: "Install a JDK",
	Long: `Install a JDK matching the given version request.

The request is [jdk@|jre@][<distribution>@]<version>; without a
distribution, Eclipse Temurin and the other catalog distributions are
searched for the best match.

Examples:
  kopi install 21
  kopi install corretto@17
  kopi install jre@zulu@8
  kopi install temurin@21.0.5+11 --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := verpkg.ParseRequest(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		repo := storage.NewRepository(cfg)
		installer := install.New(cfg, newProvider(cfg), repo)

		opts := install.Options{
			Force:                 installForce,
			DryRun:                installDryRun,
			EnforceTrustedDomains: cfg.Settings.Downloads.EnforceTrustedDomains,
		}
		if !installNoProgress && !installDryRun {
			opts.Progress = download.NewBarReporter()
		}

		fmt.Printf("Installing %s...\n", req.String())
		result, err := installer.Install(req, opts)
		if err != nil {
			return err
		}

		if installDryRun {
			fmt.Printf("Would install %s-%s (%s)\n",
				result.Package.Distribution,
				result.Package.DistributionVersion.String(),
				formatSize(result.Package.Size))
			return nil
		}

		color.New(color.FgGreen).Fprintf(os.Stdout, "Installed %s\n", result.Installed.Slug())
		fmt.Printf("  JAVA_HOME: %s\n", result.JavaHome)
		return nil
	},
}

func init() {
	installCmd.Flags().BoolVarP(&installForce, "force", "f", false, "reinstall even if already installed")
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "resolve the package without installing")
	installCmd.Flags().BoolVar(&installNoProgress, "no-progress", false, "disable the download progress bar")
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
