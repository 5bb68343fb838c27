package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kirillkom/granth-assistant/internal/core/domain"
	"github.com/kirillkom/granth-assistant/internal/core/reference"
)

type CorpusWriter interface {
	ReplaceCorpus(ctx context.Context, chunks []domain.Chunk) error
}

type ReindexRequester interface {
	RequestReindex(ctx context.Context, reason string) (domain.ReindexRequest, error)
}

type Reindexer interface {
	ReindexCorpus(ctx context.Context) (domain.ReindexStats, error)
}

type ReferenceResolver interface {
	ResolveReference(ctx context.Context, threadID, text string, override domain.ReferenceOverride) (reference.ParseResult, reference.Resolution, error)
}

// Deps are the services a command may touch. Opened lazily so that help and
// flag errors never dial the backing services.
type Deps struct {
	Corpus    CorpusWriter
	Requests  ReindexRequester
	Reindexer Reindexer
	Resolver  ReferenceResolver
}

type Opener func(ctx context.Context) (Deps, func(), error)

func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "granthctl",
		Short:         "Administer the granth assistant corpus and indexes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newLoadCmd(open))
	root.AddCommand(newReindexCmd(open))
	root.AddCommand(newResolveCmd(open))
	return root
}

func withDeps(cmd *cobra.Command, open Opener, fn func(ctx context.Context, deps Deps) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	deps, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}
	return fn(ctx, deps)
}
