package ports

import "context"

// Contract for caching encoded validation reports by content key.
type ReportCache interface {
	// Return the cached report and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, report []byte) error
}
