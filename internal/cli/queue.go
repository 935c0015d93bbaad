package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the pending submission queue",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List queued submissions, including permanently failed ones",
		Run:   runQueueList,
	}

	drainCmd := &cobra.Command{
		Use:   "drain",
		Short: "Retry every queued submission now",
		Run:   runQueueDrain,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every queued submission",
		Run:   runQueueClear,
	}

	queueCmd.AddCommand(listCmd, drainCmd, clearCmd)
	RootCmd.AddCommand(queueCmd)
}

func runQueueList(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	p, db, err := openPipeline(cmd.Context(), cfg)
	if err != nil {
		exitErr("open pipeline", err)
	}
	defer db.Close()

	b, _ := json.MarshalIndent(p.PendingItems(), "", "  ")
	fmt.Println(string(b))
}

func runQueueDrain(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	p, db, err := openPipeline(cmd.Context(), cfg)
	if err != nil {
		exitErr("open pipeline", err)
	}
	defer db.Close()

	before := p.PendingCount()
	p.Drain(cmd.Context())
	after := p.PendingCount()

	fmt.Printf("drained %d of %d pending submissions\n", before-after, before)
}

func runQueueClear(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	p, db, err := openPipeline(cmd.Context(), cfg)
	if err != nil {
		exitErr("open pipeline", err)
	}
	defer db.Close()

	if err := p.ClearPending(cmd.Context()); err != nil {
		exitErr("clear queue", err)
	}
	fmt.Println("queue cleared")
}
