package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/smazurov/sevenseg/internal/config"
	"github.com/smazurov/sevenseg/internal/device"
	"github.com/smazurov/sevenseg/internal/segment"
	"github.com/spf13/cobra"
)

// CreateDescribeCmd creates the describe command.
func CreateDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe [description-file]",
		Short: "Validate a display description and print its line map",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "devices.toml"
			if len(args) == 1 {
				path = args[0]
			}
			desc, err := config.LoadDescription(path)
			if err != nil {
				return err
			}
			return printDescription(cmd.OutOrStdout(), desc)
		},
	}
}

func printDescription(out io.Writer, desc *config.Description) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tCOMPATIBLE\tSTATUS\t%s\n", strings.ToUpper(strings.Join(segment.Names[:], "\t")))

	for _, n := range desc.Devices {
		name := n.Name
		if name == "" {
			name = device.DefaultClass
		}
		state := "okay"
		switch {
		case !n.Enabled():
			state = "disabled"
		case n.Compatible != device.Compatible:
			state = "unbound"
		}

		lines := make([]string, segment.Segments)
		for i := range lines {
			lines[i] = "-"
			if i < len(n.SegmentGPIOs) {
				lines[i] = n.SegmentGPIOs[i]
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, n.Compatible, state, strings.Join(lines, "\t"))
	}
	return w.Flush()
}
