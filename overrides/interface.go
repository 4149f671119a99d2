package overrides

// Interface defines the contract for looking up mapping overrides
type Interface interface {
	// Lookup returns the override matching a channel name or tvg-id,
	// name match first. Returns nil when neither key matches.
	Lookup(name, tvgID string) *Override
}
