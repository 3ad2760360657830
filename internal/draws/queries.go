package draws

import (
	"context"
	"errors"
)

var errMissingReader = errors.New("draws: record reader is required")

// Reader is the read side of the record store.
type Reader interface {
	GetByCategory(ctx context.Context, category string) ([]Draw, error)
	GetAll(ctx context.Context) ([]Draw, error)
}

// Queries exposes the read operations presentation code may call. Every call
// re-reads the store and results are always most recent first.
type Queries struct {
	reader Reader
}

// NewQueries constructs the read facade over a record reader.
func NewQueries(reader Reader) (*Queries, error) {
	if reader == nil {
		return nil, errMissingReader
	}
	return &Queries{reader: reader}, nil
}

// ListByCategory returns the category's draws, most recent first.
func (queries *Queries) ListByCategory(ctx context.Context, category string) ([]Draw, error) {
	return queries.reader.GetByCategory(ctx, category)
}

// ListAll returns every stored draw, most recent first.
func (queries *Queries) ListAll(ctx context.Context) ([]Draw, error) {
	return queries.reader.GetAll(ctx)
}

// LatestDateFor returns the date of the most recent draw of the category, or
// false when the category holds no draws.
func (queries *Queries) LatestDateFor(ctx context.Context, category string) (string, bool, error) {
	records, err := queries.ListByCategory(ctx, category)
	if err != nil {
		return "", false, err
	}
	if len(records) == 0 {
		return "", false, nil
	}
	return records[0].Date, true, nil
}
