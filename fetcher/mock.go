package fetcher

import "context"

// Mock is a test double for Interface
type Mock struct {
	FetchFunc func(ctx context.Context, location string) ([]byte, error)
}

// Fetch implements Interface.Fetch
func (m *Mock) Fetch(ctx context.Context, location string) ([]byte, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, location)
	}
	return nil, nil
}
