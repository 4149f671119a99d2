package overrides

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Override defines optional replacements for a channel's metadata.
// All fields are pointers to distinguish between "not configured" (nil)
// and "set to empty value" (pointer to empty string).
type Override struct {
	// Name overrides the channel's display name
	Name *string `yaml:"name,omitempty"`

	// TvgID overrides the guide-linking identifier
	TvgID *string `yaml:"tvg_id,omitempty"`

	// Logo overrides the channel logo URL
	Logo *string `yaml:"logo,omitempty"`

	// GuideNumber overrides the operator-visible channel number
	GuideNumber *string `yaml:"guide_number,omitempty"`

	// Group overrides the channel's group title
	Group *string `yaml:"group,omitempty"`
}

// Table holds mapping overrides keyed by channel name and by tvg-id.
// When both match the same channel, the name-keyed entry wins.
type Table struct {
	ByName map[string]Override `yaml:"by_name,omitempty"`
	ByID   map[string]Override `yaml:"by_id,omitempty"`
}

// Load reads a Table from a YAML file. A missing file yields an empty
// table, not an error.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Table{
				ByName: make(map[string]Override),
				ByID:   make(map[string]Override),
			}, nil
		}
		return nil, fmt.Errorf("failed to read overrides file: %w", err)
	}

	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse overrides file: %w", err)
	}

	if table.ByName == nil {
		table.ByName = make(map[string]Override)
	}
	if table.ByID == nil {
		table.ByID = make(map[string]Override)
	}

	return &table, nil
}

// Save writes the table to a YAML file, creating parent directories as needed
func (t *Table) Save(path string) error {
	if t == nil {
		return fmt.Errorf("cannot save nil override table")
	}

	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal overrides to YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write overrides file: %w", err)
	}

	return nil
}

// Manager provides thread-safe access to the override table with
// persistence to disk on every mutation.
type Manager struct {
	mu    sync.RWMutex
	table Table
	path  string
}

// NewManager loads the override table from path. A missing file starts
// the manager with an empty table.
func NewManager(path string) (*Manager, error) {
	table, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load overrides: %w", err)
	}

	return &Manager{
		table: *table,
		path:  path,
	}, nil
}

// Lookup returns the override matching the given channel name or tvg-id.
// A name match takes precedence over an id match. Returns nil if neither
// matches.
func (m *Manager) Lookup(name, tvgID string) *Override {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if ovr, ok := m.table.ByName[name]; ok {
		return &ovr
	}
	if tvgID != "" {
		if ovr, ok := m.table.ByID[tvgID]; ok {
			return &ovr
		}
	}
	return nil
}

// SetByName stores an override keyed by channel name and persists the table
func (m *Manager) SetByName(name string, ovr Override) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.table.ByName[name] = ovr
	return m.table.Save(m.path)
}

// SetByID stores an override keyed by tvg-id and persists the table
func (m *Manager) SetByID(tvgID string, ovr Override) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.table.ByID[tvgID] = ovr
	return m.table.Save(m.path)
}

// Delete removes the overrides stored under the given name and tvg-id keys
// and persists the table.
func (m *Manager) Delete(name, tvgID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.table.ByName, name)
	if tvgID != "" {
		delete(m.table.ByID, tvgID)
	}
	return m.table.Save(m.path)
}

// Count returns the total number of configured overrides
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.table.ByName) + len(m.table.ByID)
}
