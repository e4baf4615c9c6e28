package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kopi-vm/kopi/pkg/config"
	"github.com/kopi-vm/kopi/pkg/metadata"
)

var (
	// Version information set from main
	version = "dev"
	commit  = "unknown"
	date    = "unknown"

	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kopi",
	Short: "JDK version manager",
	Long: `kopi is a cross-platform JDK version manager.

It discovers available Java distributions from a remote metadata service,
installs selected versions side by side under ~/.kopi, and dispatches the
JDK your project asks for.

Examples:
  kopi install 21             # Install the latest JDK 21
  kopi install corretto@17    # Install Amazon Corretto 17
  kopi local temurin@21       # Pin this project to Temurin 21
  kopi uninstall temurin@21   # Remove an installed JDK`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information from main
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			os.Setenv("KOPI_VERBOSE", "true")
		}
	}

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(currentCmd)
	rootCmd.AddCommand(globalCmd)
	rootCmd.AddCommand(localCmd)
	rootCmd.AddCommand(cacheCmd)
}

// loadConfig resolves the kopi home and settings for one invocation.
func loadConfig() (*config.KopiConfig, error) {
	return config.New()
}

// newProvider builds the metadata provider from the configured source
// order.
func newProvider(cfg *config.KopiConfig) *metadata.Provider {
	var sources []metadata.Source
	for _, id := range cfg.Settings.Metadata.Sources {
		switch id {
		case "local":
			sources = append(sources, metadata.NewLocalSource(cfg.LocalMetadataDir()))
		case "http":
			if base := cfg.Settings.Metadata.HTTPBaseURL; base != "" {
				sources = append(sources, metadata.NewHTTPSource(base))
			}
		case "foojay":
			sources = append(sources, metadata.NewFoojaySource(cfg.Settings.Metadata.FoojayBaseURL))
		}
	}
	if len(sources) == 0 {
		sources = append(sources, metadata.NewFoojaySource(cfg.Settings.Metadata.FoojayBaseURL))
	}
	return metadata.NewProvider(sources...)
}
