package cmd

import (
	"fmt"

	"github.com/fachebot/talk-digest-bot/internal/segment"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(segmentsCmd)
}

var segmentsCmd = &cobra.Command{
	Use:   "segments",
	Short: "List the active segment and segments still waiting for a summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}

		dir := c.Pipeline.SegmentDir
		active, err := segment.DiscoverActiveIndex(dir)
		if err != nil {
			return err
		}
		pending, err := segment.Pending(dir, active)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "segment dir: %s (threshold %d tokens)\n", dir, c.Pipeline.TokenThreshold)
		fmt.Fprintf(out, "active:  %s\n", describe(dir, active))

		if len(pending) == 0 {
			fmt.Fprintln(out, "pending: none")
			return nil
		}
		fmt.Fprintf(out, "pending: %d segment(s) not yet summarized, re-enqueued on next start\n", len(pending))
		for _, index := range pending {
			fmt.Fprintf(out, "  %s\n", describe(dir, index))
		}
		return nil
	},
}

func describe(dir string, index int) string {
	content, err := segment.Read(dir, index)
	if err != nil {
		return fmt.Sprintf("%s (unreadable: %v)", segment.FileName(index), err)
	}
	return fmt.Sprintf("%s  %d tokens", segment.FileName(index), segment.ReplayTokens(content))
}
