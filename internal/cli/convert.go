package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ims2tif/pkg/batch"
	"ims2tif/pkg/export"
	"ims2tif/pkg/extract"
	"ims2tif/pkg/ims"
)

// convertFlags holds the flag values for the convert command.
type convertFlags struct {
	channel       int
	timepoint     int
	zSlice        int
	mode          string
	filterEmpty   bool
	threshold     float64
	autoThreshold bool
}

// NewConvertCommand creates the "convert" cobra command.
func NewConvertCommand() *cobra.Command {
	flags := &convertFlags{}

	cmd := &cobra.Command{
		Use:   "convert <input.ims> [output.tif]",
		Short: "Convert a single IMS file to TIF",
		Long: `Convert one IMS container to TIF.

When no output path is given, the TIF is written next to the input with
the same stem. Export modes:

  stack       single multi-page TIF with all Z-planes (default)
  slices      one TIF per Z-plane in a <stem>_slices directory
  ome         compressed stack with OME-XML metadata
  compressed  stack with Deflate compression and predictor

Examples:
  ims2tif convert scan.ims
  ims2tif convert scan.ims out/scan.tif --channel 1 --timepoint 0
  ims2tif convert scan.ims --z-slice 10
  ims2tif convert scan.ims --mode ome --filter-empty=false`,

		Args: cobra.RangeArgs(1, 2),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, flags)
		},
	}

	cmd.Flags().IntVar(&flags.channel, "channel", 0, "Channel to extract (0-based)")
	cmd.Flags().IntVar(&flags.timepoint, "timepoint", 0, "Timepoint to extract (0-based)")
	cmd.Flags().IntVar(&flags.zSlice, "z-slice", 0, "Extract a single Z slice (0-based)")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "Export mode: stack, slices, ome, compressed")
	cmd.Flags().BoolVar(&flags.filterEmpty, "filter-empty", true, "Remove empty Z-planes")
	cmd.Flags().Float64Var(&flags.threshold, "threshold", extract.DefaultThreshold, "Noise floor for empty-plane detection")
	cmd.Flags().BoolVar(&flags.autoThreshold, "auto-threshold", false, "Derive the noise floor from the stack")

	return cmd
}

func runConvert(cmd *cobra.Command, args []string, flags *convertFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger()

	input := args[0]
	if _, err := os.Stat(input); err != nil {
		return fmt.Errorf("input file %s: %w", input, err)
	}
	output := batch.OutputPath(input)
	if len(args) == 2 {
		output = args[1]
	}

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
	if cmd.Flags().Changed("z-slice") {
		sel.ZSlice = ims.IntPtr(flags.zSlice)
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

	extractor := extract.New(log)
	res, err := extractor.Extract(input, sel, opts)
	if err != nil {
		return fmt.Errorf("%s: extract: %w", input, err)
	}

	exporter := export.New(log)
	artifact, err := exporter.Export(res.Image, output, mode)
	if err != nil {
		return fmt.Errorf("%s: export: %w", input, err)
	}

	fmt.Printf("Converted %s\n", input)
	fmt.Printf("  Original shape: %v (%s)\n", res.OriginalShape, res.Image.Dtype)
	if res.Retained != nil {
		fmt.Printf("  Removed %d empty planes, kept %d\n", res.EmptyCount, len(res.Retained))
	}
	if res.FellBack {
		fmt.Printf("  All planes below threshold %.0f, kept full stack\n", res.Threshold)
	}
	if len(artifact.Paths) == 1 {
		fmt.Printf("  Output: %s\n", artifact.Paths[0])
	} else {
		fmt.Printf("  Output: %d files in %s\n", len(artifact.Paths), export.SliceDir(output))
	}
	return nil
}
