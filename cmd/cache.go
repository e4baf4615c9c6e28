package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kopi-vm/kopi/pkg/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the metadata cache",
}

var cacheRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the catalog from the metadata sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		c, err := cache.Refresh(cfg.CachePath(), newProvider(cfg))
		if err != nil {
			return err
		}
		fmt.Printf("Cached %d packages across %d distributions\n",
			len(c.Packages()), len(c.Distributions))
		return nil
	},
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		c := cache.Load(cfg.CachePath())
		if c.IsEmpty() {
			fmt.Println("Cache is empty. Run 'kopi cache refresh'.")
			return nil
		}

		fmt.Printf("Last updated: %s\n", c.LastUpdated.Format("2006-01-02 15:04:05 MST"))
		if c.IsStale(cfg.CacheMaxAge()) {
			fmt.Println("Status: stale")
		} else {
			fmt.Println("Status: fresh")
		}

		ids := make([]string, 0, len(c.Distributions))
		for id := range c.Distributions {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			dist := c.Distributions[id]
			fmt.Printf("  %-20s %4d packages\n", dist.DisplayName, len(dist.Packages))
		}
		return nil
	},
}

var cacheHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the configured metadata sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		provider := newProvider(cfg)
		health := provider.CheckSourcesHealth()
		for _, source := range provider.Sources() {
			status := "available"
			h := health[source.ID()]
			if !h.Available {
				status = "unavailable (" + h.Reason + ")"
			}
			fmt.Printf("  %-10s %s\n", source.ID(), status)
		}
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheRefreshCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheHealthCmd)
}
