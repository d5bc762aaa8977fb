package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fachebot/talk-digest-bot/internal/recap"
	"github.com/fachebot/talk-digest-bot/internal/svc"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(digestCmd)
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Run one digest tick now against the configured store and oracle",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}

		svcCtx := svc.NewServiceContext(c)
		defer svcCtx.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		aggregator := recap.NewAggregator(
			time.Duration(c.Pipeline.DigestIntervalSeconds)*time.Second,
			svcCtx.SummaryModel,
			svcCtx.DailyDigestModel,
			svcCtx.Oracle,
			nil,
		)
		digest, err := aggregator.RunOnce(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if digest == nil {
			fmt.Fprintln(out, "no new summaries since the last digest")
			return nil
		}
		fmt.Fprintf(out, "daily digest #%d (%s, %d summaries)\n\n%s\n",
			digest.ID, digest.CreatedAt.Format(time.RFC3339), len(digest.Summaries), digest.Text)
		return nil
	},
}
