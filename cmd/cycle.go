package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// CreateCycleCmd creates the cycle command.
func CreateCycleCmd() *cobra.Command {
	var (
		baseURL  string
		node     string
		username string
		password string
		delay    time.Duration
		rounds   int
	)

	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Count a display through 0-9 and verify each digit",
		Long: `Opens the stream node of a running daemon, writes the digits 0 to 9 one at a time, ` +
			`seeks back to the start after each write and reads the digit back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newNodeClient(baseURL, node, username, password)
			return runCycle(cmd.OutOrStdout(), client, delay, rounds)
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8090", "Daemon API base URL")
	cmd.Flags().StringVar(&node, "node", "sevenseg", "Stream node name")
	cmd.Flags().StringVar(&username, "username", "admin", "Basic auth username")
	cmd.Flags().StringVar(&password, "password", "password", "Basic auth password")
	cmd.Flags().DurationVar(&delay, "delay", time.Second, "Pause after each digit")
	cmd.Flags().IntVar(&rounds, "rounds", 1, "Number of passes through 0-9")
	return cmd
}

func runCycle(out io.Writer, c *nodeClient, delay time.Duration, rounds int) error {
	handle, err := c.Open()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Opened %s (handle %s)\n", c.node, handle)

	cycleErr := func() error {
		for round := 0; round < rounds; round++ {
			for d := 0; d <= 9; d++ {
				if err := cycleDigit(c, handle, d); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %d, read back %d\n", d, d)
				if delay > 0 {
					time.Sleep(delay)
				}
			}
		}
		return nil
	}()

	if err := c.Close(handle); err != nil && cycleErr == nil {
		return err
	}
	return cycleErr
}

func cycleDigit(c *nodeClient, handle string, d int) error {
	n, err := c.Write(handle, []byte{byte('0' + d)})
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("write %d consumed %d bytes", d, n)
	}

	if _, err := c.Seek(handle, 0, io.SeekStart); err != nil {
		return err
	}
	data, err := c.Read(handle, 2)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if want := fmt.Sprintf("%d\n", d); string(data) != want {
		return fmt.Errorf("read back %q after writing %d", data, d)
	}
	return nil
}
