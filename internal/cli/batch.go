package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ims2tif/pkg/batch"
	"ims2tif/pkg/export"
	"ims2tif/pkg/extract"
	"ims2tif/pkg/ims"
)

// batchFlags holds the flag values for the batch command.
type batchFlags struct {
	recursive     bool
	overwrite     bool
	channel       int
	timepoint     int
	mode          string
	filterEmpty   bool
	threshold     float64
	autoThreshold bool
}

// NewBatchCommand creates the "batch" cobra command.
func NewBatchCommand() *cobra.Command {
	flags := &batchFlags{}

	cmd := &cobra.Command{
		Use:   "batch <directory>",
		Short: "Convert every IMS file in a directory",
		Long: `Convert all IMS containers found in a directory. Each TIF is written next
to its source container. Files whose output already exists are skipped
unless --overwrite is given, and no single file's failure aborts the run.

Examples:
  ims2tif batch ./scans
  ims2tif batch ./scans --recursive
  ims2tif batch ./scans --recursive --overwrite --mode compressed`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args[0], flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.recursive, "recursive", "r", false, "Scan subdirectories too")
	cmd.Flags().BoolVar(&flags.overwrite, "overwrite", false, "Convert even when the output TIF exists")
	cmd.Flags().IntVar(&flags.channel, "channel", 0, "Channel to extract (0-based)")
	cmd.Flags().IntVar(&flags.timepoint, "timepoint", 0, "Timepoint to extract (0-based)")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "Export mode: stack, slices, ome, compressed")
	cmd.Flags().BoolVar(&flags.filterEmpty, "filter-empty", true, "Remove empty Z-planes")
	cmd.Flags().Float64Var(&flags.threshold, "threshold", extract.DefaultThreshold, "Noise floor for empty-plane detection")
	cmd.Flags().BoolVar(&flags.autoThreshold, "auto-threshold", false, "Derive the noise floor from each stack")

	return cmd
}

func runBatch(cmd *cobra.Command, root string, flags *batchFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger()

	sel := ims.Selector{
		Channel:   ims.IntPtr(cfg.Selection.Channel),
		Timepoint: ims.IntPtr(cfg.Selection.Timepoint),
	}
	if cmd.Flags().Changed("channel") {
		sel.Channel = ims.IntPtr(flags.channel)
	}
	if cmd.Flags().Changed("timepoint") {
		sel.Timepoint = ims.IntPtr(flags.timepoint)
	}

	opts := extract.Options{
		FilterEmpty:   cfg.Filter.Enabled,
		Threshold:     cfg.Filter.Threshold,
		AutoThreshold: cfg.Filter.Auto,
	}
	if cmd.Flags().Changed("filter-empty") {
		opts.FilterEmpty = flags.filterEmpty
	}
	if cmd.Flags().Changed("threshold") {
		opts.Threshold = flags.threshold
	}
	if cmd.Flags().Changed("auto-threshold") {
		opts.AutoThreshold = flags.autoThreshold
	}

	modeName := cfg.Export.Mode
	if flags.mode != "" {
		modeName = flags.mode
	}
	mode, err := export.ParseMode(modeName)
	if err != nil {
		return err
	}

	runCfg := batch.Config{
		Root:      root,
		Recursive: flags.recursive || cfg.Batch.Recursive,
		Overwrite: flags.overwrite || cfg.Batch.Overwrite,
		Mode:      mode,
		Selector:  sel,
		Extract:   opts,
	}

	orch := batch.New(runCfg, extract.New(log), export.New(log), log)
	stats, err := orch.Run()
	if err != nil {
		return err
	}

	fmt.Println("Conversion summary")
	fmt.Printf("  Found:     %d\n", stats.TotalFound)
	fmt.Printf("  Converted: %d\n", stats.Successful)
	fmt.Printf("  Failed:    %d\n", stats.Failed)
	fmt.Printf("  Skipped:   %d\n", stats.Skipped)
	fmt.Printf("  Success rate: %.1f%%\n", stats.SuccessRate()*100)
	if len(stats.FailedFiles) > 0 {
		fmt.Println("  Failed files:")
		for _, f := range stats.FailedFiles {
			fmt.Printf("    - %s\n", filepath.Base(f))
		}
	}
	return nil
}
