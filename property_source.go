package bindings

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

const (
	// CommandLinePropertySourceName is the name of the source built from program arguments.
	CommandLinePropertySourceName = "commandLineArgs"
	// BindingsPropertySourceName is the name of the source holding binding-derived properties.
	BindingsPropertySourceName = "kubernetesServiceBindingSpecification"
)

var (
	ErrPropertySourceNotFound = errors.New("property source not found")
)

// PropertySource is a named set of flat configuration properties.
type PropertySource struct {
	name       string
	properties map[string]string
}

func NewPropertySource(name string, properties map[string]string) *PropertySource {
	return &PropertySource{
		name:       name,
		properties: copyOrEmpty(properties),
	}
}

func (s *PropertySource) Name() string {
	return s.name
}

func (s *PropertySource) Property(key string) (string, bool) {
	value, ok := s.properties[key]
	return value, ok
}

func (s *PropertySource) Properties() map[string]string {
	return maps.Clone(s.properties)
}

func (s *PropertySource) Keys() []string {
	return slices.Sorted(maps.Keys(s.properties))
}

// PropertySources is an ordered chain of property sources. Index 0 has the highest precedence.
// Names are unique; adding a source removes any existing source of the same name first.
type PropertySources struct {
	sources []*PropertySource
}

func NewPropertySources(sources ...*PropertySource) *PropertySources {
	result := &PropertySources{}
	for _, source := range sources {
		result.AddLast(source)
	}
	return result
}

func (p *PropertySources) Len() int {
	return len(p.sources)
}

func (p *PropertySources) All() []*PropertySource {
	return slices.Clone(p.sources)
}

func (p *PropertySources) Names() []string {
	names := make([]string, 0, len(p.sources))
	for _, source := range p.sources {
		names = append(names, source.Name())
	}
	return names
}

func (p *PropertySources) Get(name string) *PropertySource {
	if i := p.indexOf(name); i >= 0 {
		return p.sources[i]
	}
	return nil
}

func (p *PropertySources) Contains(name string) bool {
	return p.indexOf(name) >= 0
}

// PrecedenceOf returns the index of the source, or -1 when it is not part of the chain.
func (p *PropertySources) PrecedenceOf(source *PropertySource) int {
	if source == nil {
		return -1
	}
	return p.indexOf(source.Name())
}

func (p *PropertySources) AddFirst(source *PropertySource) {
	p.remove(source.Name())
	p.sources = slices.Insert(p.sources, 0, source)
}

func (p *PropertySources) AddLast(source *PropertySource) {
	p.remove(source.Name())
	p.sources = append(p.sources, source)
}

func (p *PropertySources) AddBefore(relativeName string, source *PropertySource) error {
	return p.addRelative(relativeName, source, 0)
}

func (p *PropertySources) AddAfter(relativeName string, source *PropertySource) error {
	return p.addRelative(relativeName, source, 1)
}

// Replace swaps the source of the same name in place.
func (p *PropertySources) Replace(source *PropertySource) error {
	i := p.indexOf(source.Name())
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrPropertySourceNotFound, source.Name())
	}
	p.sources[i] = source
	return nil
}

func (p *PropertySources) Remove(name string) *PropertySource {
	return p.remove(name)
}

func (p *PropertySources) addRelative(relativeName string, source *PropertySource, offset int) error {
	if relativeName == source.Name() {
		return fmt.Errorf("property source %s cannot be added relative to itself", source.Name())
	}
	if !p.Contains(relativeName) {
		return fmt.Errorf("%w: %s", ErrPropertySourceNotFound, relativeName)
	}
	p.remove(source.Name())
	i := p.indexOf(relativeName)
	p.sources = slices.Insert(p.sources, i+offset, source)
	return nil
}

func (p *PropertySources) remove(name string) *PropertySource {
	i := p.indexOf(name)
	if i < 0 {
		return nil
	}
	removed := p.sources[i]
	p.sources = slices.Delete(p.sources, i, i+1)
	return removed
}

func (p *PropertySources) indexOf(name string) int {
	return slices.IndexFunc(p.sources, func(source *PropertySource) bool {
		return source.Name() == name
	})
}
