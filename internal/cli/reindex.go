package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newReindexCmd(open Opener) *cobra.Command {
	var (
		sync   bool
		reason string
	)

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the semantic index",
		Long: `Publish a reindex request for the worker, or with --sync embed and
index the whole corpus in this process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, open, func(ctx context.Context, deps Deps) error {
				if sync {
					stats, err := deps.Reindexer.ReindexCorpus(ctx)
					if err != nil {
						return fmt.Errorf("reindex corpus: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "indexed %d chunks in %d batches (%s)\n", stats.Chunks, stats.Batches, stats.Duration)
					return nil
				}
				req, err := deps.Requests.RequestReindex(ctx, reason)
				if err != nil {
					return fmt.Errorf("request reindex: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reindex requested: %s\n", req.RequestID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&sync, "sync", false, "run the reindex in this process")
	cmd.Flags().StringVar(&reason, "reason", "manual", "reason recorded on the request")
	return cmd
}
