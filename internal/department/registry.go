// Package department maps department keys to display names and, for some
// departments, a dedicated listing endpoint.
package department

import (
	"strings"

	"announcement_syncer/internal/config"
)

const DefaultKey = "1421000"

type Department struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	// Endpoint overrides the listing API base URL when set.
	Endpoint string `json:"-"`
}

// Registry is an immutable, ordered lookup table.
type Registry struct {
	order  []string
	byKey  map[string]Department
	defKey string
}

var builtin = []Department{
	{Key: DefaultKey, Name: "중기부", FullName: "중소벤처기업부"},
}

func New(departments ...Department) *Registry {
	r := &Registry{byKey: make(map[string]Department, len(departments))}
	for _, d := range departments {
		if _, dup := r.byKey[d.Key]; dup {
			continue
		}
		r.order = append(r.order, d.Key)
		r.byKey[d.Key] = d
	}
	if len(r.order) > 0 {
		r.defKey = r.order[0]
	}
	if _, ok := r.byKey[DefaultKey]; ok {
		r.defKey = DefaultKey
	}
	return r
}

// Default returns the built-in registry.
func Default() *Registry {
	return New(builtin...)
}

// FromConfig builds the registry from config entries, or the built-in table
// when none are configured.
func FromConfig(entries []config.DepartmentConfig) *Registry {
	if len(entries) == 0 {
		return Default()
	}
	deps := make([]Department, 0, len(entries))
	for _, e := range entries {
		d := Department{
			Key:      strings.TrimSpace(e.Key),
			Name:     e.Name,
			FullName: e.FullName,
			Endpoint: e.Endpoint,
		}
		if d.Name == "" {
			d.Name = d.Key
		}
		if d.FullName == "" {
			d.FullName = d.Name
		}
		deps = append(deps, d)
	}
	return New(deps...)
}

func (r *Registry) Lookup(key string) (Department, bool) {
	d, ok := r.byKey[key]
	return d, ok
}

func (r *Registry) IsValid(key string) bool {
	_, ok := r.byKey[key]
	return ok
}

// DefaultKey is the department used when a caller does not name one.
func (r *Registry) DefaultKey() string {
	return r.defKey
}

func (r *Registry) All() []Department {
	out := make([]Department, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.byKey[k])
	}
	return out
}

// Name falls back to the default department's name for unknown keys.
func (r *Registry) Name(key string) string {
	if d, ok := r.byKey[key]; ok {
		return d.Name
	}
	return r.byKey[r.defKey].Name
}

func (r *Registry) FullName(key string) string {
	if d, ok := r.byKey[key]; ok {
		return d.FullName
	}
	return r.byKey[r.defKey].FullName
}

// FromItemID resolves the department name from a "{departmentKey}_{externalId}" item id.
func (r *Registry) FromItemID(itemID string) string {
	key, _, found := strings.Cut(itemID, "_")
	if found && key != "" {
		return r.Name(key)
	}
	return r.Name(r.defKey)
}
