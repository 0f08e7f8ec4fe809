package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ims2tif/pkg/ims"
)

// NewInfoCommand creates the "info" cobra command.
func NewInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <input.ims>",
		Short: "Show the structure of an IMS file",
		Long: `Show resolution levels, timepoints, channels, and the shape and element
type of the default selection of an IMS container.`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args[0])
		},
	}
}

func runInfo(input string) error {
	store, err := ims.OpenStore(input)
	if err != nil {
		return err
	}
	defer store.Close()

	info, err := ims.Inspect(store)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	fmt.Printf("%s\n", input)
	fmt.Printf("  Resolution levels: %d (%s)\n", len(info.ResolutionLevels), strings.Join(info.ResolutionLevels, ", "))
	fmt.Printf("  Timepoints:        %d\n", len(info.TimePoints))
	fmt.Printf("  Channels:          %d\n", len(info.Channels))
	fmt.Printf("  Shape:             %v\n", info.Shape)
	fmt.Printf("  Dtype:             %s\n", info.Dtype)
	return nil
}
