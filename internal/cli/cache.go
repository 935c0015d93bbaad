package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the result cache",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show cache occupancy",
		Run:   runCacheStatus,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached result",
		Run:   runCacheClear,
	}

	cacheCmd.AddCommand(statusCmd, clearCmd)
	RootCmd.AddCommand(cacheCmd)
}

func runCacheStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	p, db, err := openPipeline(cmd.Context(), cfg)
	if err != nil {
		exitErr("open pipeline", err)
	}
	defer db.Close()

	fmt.Printf("%d entries (max %d, ttl %s)\n", p.CacheLen(), cfg.CacheMaxEntries, cfg.CacheTTL)
}

func runCacheClear(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	p, db, err := openPipeline(cmd.Context(), cfg)
	if err != nil {
		exitErr("open pipeline", err)
	}
	defer db.Close()

	if err := p.ClearCache(cmd.Context()); err != nil {
		exitErr("clear cache", err)
	}
	fmt.Println("cache cleared")
}
