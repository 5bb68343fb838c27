package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
	"github.com/kirillkom/granth-assistant/internal/core/reference"
)

func newResolveCmd(open Opener) *cobra.Command {
	var (
		threadID string
		book     string
		section  string
	)

	cmd := &cobra.Command{
		Use:   "resolve <text>",
		Short: "Show how a question resolves to a book, prakran and chopai",
		Long: `Parse the text, merge it with the thread's remembered reference and
print the result as JSON. Thread memory is not modified.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sectionRange, err := reference.ParseSectionFilter(section)
			if err != nil {
				return err
			}
			override := domain.ReferenceOverride{Book: book, Section: sectionRange}
			text := strings.Join(args, " ")

			return withDeps(cmd, open, func(ctx context.Context, deps Deps) error {
				parsed, resolution, err := deps.Resolver.ResolveReference(ctx, threadID, text, override)
				if err != nil {
					return fmt.Errorf("resolve reference: %w", err)
				}
				out := map[string]any{
					"normalized": parsed.Normalized,
					"candidates": parsed.Candidates,
					"intent":     parsed.Intent,
					"resolved":   resolution.Reference,
					"display":    resolution.Reference.String(),
					"inherited":  resolution.Inherited,
					"overridden": resolution.Overridden,
					"ambiguous":  parsed.HasAmbiguity(),
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			})
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "thread whose memory completes the reference")
	cmd.Flags().StringVar(&book, "book", "", "book override")
	cmd.Flags().StringVar(&section, "section", "", "prakran override, e.g. 14 or 14-19")
	return cmd
}
