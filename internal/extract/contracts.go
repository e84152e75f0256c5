// Package extract defines the contract to the generation service that turns
// one document into one structured record.
package extract

import (
	"context"

	"github.com/nbirkbak/journalist/internal/dataset"
)

// Extractor produces one record for one document. Implementations own their
// error path for transport details but return errors unclassified; fatal
// classification is the engine's job.
type Extractor interface {
	Extract(ctx context.Context, documentPath string) (dataset.Record, error)
}

// Func adapts a plain function to the Extractor interface.
type Func func(ctx context.Context, documentPath string) (dataset.Record, error)

func (f Func) Extract(ctx context.Context, documentPath string) (dataset.Record, error) {
	return f(ctx, documentPath)
}
