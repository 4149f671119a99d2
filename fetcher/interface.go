package fetcher

import "context"

// Interface defines the contract for fetching source documents
type Interface interface {
	// Fetch retrieves the content at an HTTP(S) URL or local file path
	Fetch(ctx context.Context, location string) ([]byte, error)
}
