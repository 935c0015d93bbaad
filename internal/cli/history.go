package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the scan history, newest first",
		Run:   runHistory,
	}

	cmd.Flags().Bool("clear", false, "Clear the history instead of listing it")

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	clear, _ := cmd.Flags().GetBool("clear")

	cfg := loadConfig()
	p, db, err := openPipeline(cmd.Context(), cfg)
	if err != nil {
		exitErr("open pipeline", err)
	}
	defer db.Close()

	if clear {
		if err := p.ClearHistory(cmd.Context()); err != nil {
			exitErr("clear history", err)
		}
		fmt.Println("history cleared")
		return
	}

	b, _ := json.MarshalIndent(p.History(), "", "  ")
	fmt.Println(string(b))
}
