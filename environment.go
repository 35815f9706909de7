package bindings

import (
	"errors"
	"fmt"
	"strings"
)

const (
	placeholderPrefix    = "${"
	placeholderSuffix    = "}"
	placeholderSeparator = ":"
)

var (
	ErrUnresolvablePlaceholder = errors.New("could not resolve placeholder")
	ErrCircularPlaceholder     = errors.New("circular placeholder reference")
)

// Environment resolves properties against an ordered chain of property sources.
type Environment struct {
	propertySources *PropertySources
}

func NewEnvironment(sources ...*PropertySource) *Environment {
	return &Environment{
		propertySources: NewPropertySources(sources...),
	}
}

func (e *Environment) PropertySources() *PropertySources {
	return e.propertySources
}

// RawProperty returns the value from the highest precedence source that has the key,
// without placeholder resolution.
func (e *Environment) RawProperty(key string) (string, bool) {
	if source := e.PropertySourceOf(key); source != nil {
		return source.Property(key)
	}
	return "", false
}

// PropertySourceOf returns the highest precedence source holding key, or nil.
func (e *Environment) PropertySourceOf(key string) *PropertySource {
	for _, source := range e.propertySources.sources {
		if _, ok := source.Property(key); ok {
			return source
		}
	}
	return nil
}

// Property returns the resolved value of key. Placeholders that cannot be resolved are kept verbatim.
func (e *Environment) Property(key string) (string, bool) {
	value, ok := e.RawProperty(key)
	if !ok {
		return "", false
	}
	resolved, err := e.resolve(value, false, map[string]bool{key: true})
	if err != nil {
		return value, true
	}
	return resolved, true
}

func (e *Environment) PropertyOrDefault(key string, defaultValue string) string {
	if value, ok := e.Property(key); ok {
		return value
	}
	return defaultValue
}

// Properties merges all sources into one map, the highest precedence value winning. Values are not resolved.
func (e *Environment) Properties() map[string]string {
	result := make(map[string]string)
	for i := len(e.propertySources.sources) - 1; i >= 0; i-- {
		for key, value := range e.propertySources.sources[i].properties {
			result[key] = value
		}
	}
	return result
}

// ResolvePlaceholders replaces ${key} and ${key:default} in text and fails on anything it cannot resolve.
func (e *Environment) ResolvePlaceholders(text string) (string, error) {
	return e.resolve(text, true, map[string]bool{})
}

func (e *Environment) resolve(text string, strict bool, visiting map[string]bool) (string, error) {
	var result strings.Builder
	rest := text
	for {
		start := strings.Index(rest, placeholderPrefix)
		if start < 0 {
			result.WriteString(rest)
			return result.String(), nil
		}
		end := findPlaceholderEnd(rest, start)
		if end < 0 {
			result.WriteString(rest)
			return result.String(), nil
		}
		result.WriteString(rest[:start])

		rawKey, rawDefault, hasDefault := splitPlaceholder(rest[start+len(placeholderPrefix) : end])
		key, err := e.resolve(rawKey, strict, visiting)
		if err != nil {
			return "", err
		}

		if visiting[key] {
			return "", fmt.Errorf("%w: %s", ErrCircularPlaceholder, key)
		}
		if value, ok := e.RawProperty(key); ok {
			visiting[key] = true
			value, err = e.resolve(value, strict, visiting)
			delete(visiting, key)
			if err != nil {
				return "", err
			}
			result.WriteString(value)
		} else if hasDefault {
			defaultValue, err := e.resolve(rawDefault, strict, visiting)
			if err != nil {
				return "", err
			}
			result.WriteString(defaultValue)
		} else if strict {
			return "", fmt.Errorf("%w: %s in value %q", ErrUnresolvablePlaceholder, key, text)
		} else {
			result.WriteString(rest[start : end+len(placeholderSuffix)])
		}
		rest = rest[end+len(placeholderSuffix):]
	}
}

// splitPlaceholder cuts a placeholder body at the first separator outside nested placeholders.
func splitPlaceholder(body string) (string, string, bool) {
	depth := 0
	for i := 0; i < len(body); i++ {
		switch {
		case strings.HasPrefix(body[i:], placeholderPrefix):
			depth++
			i += len(placeholderPrefix) - 1
		case strings.HasPrefix(body[i:], placeholderSuffix) && depth > 0:
			depth--
		case depth == 0 && strings.HasPrefix(body[i:], placeholderSeparator):
			return body[:i], body[i+len(placeholderSeparator):], true
		}
	}
	return body, "", false
}

// findPlaceholderEnd returns the index of the suffix closing the placeholder at start, honouring nesting.
func findPlaceholderEnd(text string, start int) int {
	depth := 0
	for i := start + len(placeholderPrefix); i < len(text); i++ {
		switch {
		case strings.HasPrefix(text[i:], placeholderPrefix):
			depth++
			i += len(placeholderPrefix) - 1
		case strings.HasPrefix(text[i:], placeholderSuffix):
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}
