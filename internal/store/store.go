// Package store defines the persistence contract for job listings. The same
// contract is satisfied by an embedded sqlite engine, a networked Postgres
// engine and an in-memory implementation for tests.
package store

import (
	"context"

	"github.com/jobwatch/jobwatch/internal/listing"
)

// Filter narrows a Search. Keyword and Company are optional, combine with
// AND, and match as case-insensitive substrings on job_name and cust_name
// respectively. Results are always ordered by created_at descending; Limit
// and Offset apply after ordering. Limit <= 0 means no limit.
type Filter struct {
	Keyword string
	Company string
	Limit   int
	Offset  int
}

// Store is the listing persistence contract. All operations are atomic per
// call and synchronous.
type Store interface {
	// Upsert inserts each listing, or updates all mutable fields plus
	// updated_at when the job_id already exists. created_at is set once at
	// first insertion and never overwritten. Per-record failures are logged
	// and skipped; the return value counts records actually written.
	Upsert(ctx context.Context, listings []listing.Listing) (int, error)

	// Search returns listings matching the filter.
	Search(ctx context.Context, f Filter) ([]listing.Listing, error)

	// Recent returns listings created within the last n days, newest first.
	Recent(ctx context.Context, days int) ([]listing.Listing, error)

	// Count returns the total number of stored listings.
	Count(ctx context.Context) (int64, error)

	// PurgeOlderThan deletes listings created before now minus days and
	// returns the number removed. This is the only delete path.
	PurgeOlderThan(ctx context.Context, days int) (int64, error)

	// Close releases the backend.
	Close() error
}
