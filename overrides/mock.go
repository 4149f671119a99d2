package overrides

// Mock is a test double for Interface
type Mock struct {
	LookupFunc func(name, tvgID string) *Override
}

// Lookup implements Interface.Lookup
func (m *Mock) Lookup(name, tvgID string) *Override {
	if m.LookupFunc != nil {
		return m.LookupFunc(name, tvgID)
	}
	return nil
}
