package bindings

import (
	"maps"
	"strings"
)

const (
	// TypeKey is the binding entry naming the kind of service, e.g. "postgresql".
	TypeKey = "type"
	// ProviderKey is the optional binding entry naming the service vendor.
	ProviderKey = "provider"
)

// Binding is a named set of credentials and metadata for one backing service.
type Binding struct {
	name     string
	path     string
	secret   map[string]string
	metadata map[string]string
}

func NewBinding(name string, path string, secret map[string]string, metadata map[string]string) Binding {
	return Binding{
		name:     name,
		path:     path,
		secret:   maps.Clone(secret),
		metadata: maps.Clone(metadata),
	}
}

func (b Binding) Name() string {
	return b.name
}

// Path is where the binding was materialized from. Informational only.
func (b Binding) Path() string {
	return b.path
}

func (b Binding) Secret() map[string]string {
	return copyOrEmpty(b.secret)
}

func (b Binding) Metadata() map[string]string {
	return copyOrEmpty(b.metadata)
}

// Type returns the binding type, looked up in the secret first and the metadata second.
func (b Binding) Type() string {
	return b.lookup(TypeKey)
}

// IsType compares the binding type case-insensitively.
func (b Binding) IsType(bindingType string) bool {
	return strings.EqualFold(b.Type(), bindingType)
}

func (b Binding) Provider() string {
	return b.lookup(ProviderKey)
}

func (b Binding) lookup(key string) string {
	if value, ok := b.secret[key]; ok {
		return value
	}
	return b.metadata[key]
}

func copyOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m)
}

// Bindings is an ordered collection of Binding values, unique by name.
type Bindings struct {
	items []Binding
}

// NewBindings keeps the position of the first occurrence of a name but the value of the last.
func NewBindings(items ...Binding) Bindings {
	result := Bindings{}
	index := make(map[string]int, len(items))
	for _, item := range items {
		if i, ok := index[item.Name()]; ok {
			result.items[i] = item
			continue
		}
		index[item.Name()] = len(result.items)
		result.items = append(result.items, item)
	}
	return result
}

func (b Bindings) All() []Binding {
	return append([]Binding(nil), b.items...)
}

func (b Bindings) Len() int {
	return len(b.items)
}

func (b Bindings) Find(name string) (Binding, bool) {
	for _, item := range b.items {
		if item.Name() == name {
			return item, true
		}
	}
	return Binding{}, false
}

func (b Bindings) FilterByType(bindingType string) []Binding {
	var result []Binding
	for _, item := range b.items {
		if item.IsType(bindingType) {
			result = append(result, item)
		}
	}
	return result
}
