package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pic2nav/snapsync/internal/exif"
	"github.com/pic2nav/snapsync/internal/model"
	"github.com/pic2nav/snapsync/internal/pipeline"
)

func init() {
	cmd := &cobra.Command{
		Use:   "submit <image>",
		Short: "Submit a photo for location recognition",
		Long:  "Submit a photo for location recognition. Offline submissions return a provisional result and are queued for reconciliation.",
		Args:  cobra.ExactArgs(1),
		Run:   runSubmit,
	}

	cmd.Flags().String("metadata", "", "Raw metadata as JSON (default: read EXIF from the image)")

	RootCmd.AddCommand(cmd)
}

func runSubmit(cmd *cobra.Command, args []string) {
	imagePath := args[0]
	metaJSON, _ := cmd.Flags().GetString("metadata")

	var meta model.RawMetadata
	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			exitErr("parse metadata", err)
		}
	} else {
		m, err := exif.ReadFile(imagePath)
		if err != nil {
			// No exiftool or unreadable tags: submit without metadata and
			// let the pipeline decide what it can do.
			fmt.Fprintf(os.Stderr, "warning: read EXIF: %v\n", err)
		} else {
			meta = m
		}
	}

	cfg := loadConfig()
	p, db, err := openPipeline(cmd.Context(), cfg)
	if err != nil {
		exitErr("open pipeline", err)
	}
	defer db.Close()

	res, err := p.Submit(cmd.Context(), pipeline.Submission{ImagePath: imagePath, Metadata: meta})
	if err != nil {
		exitErr("submit", err)
	}

	b, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(b))
}
