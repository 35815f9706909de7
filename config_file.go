package bindings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	aulogging "github.com/StephanHCB/go-autumn-logging"
	"gopkg.in/yaml.v3"
)

var _ PostProcessor = (*ConfigFileLoader)(nil)

type ConfigFileLocation struct {
	Path     string
	Optional bool
}

// ConfigFileLoader appends one property source per YAML file. Earlier locations take precedence over later ones.
// Placeholders in file values are resolved against the environment as it stands when the loader runs;
// unresolvable ones are kept for resolution on lookup.
type ConfigFileLoader struct {
	locations []ConfigFileLocation
}

func NewConfigFileLoader(locations ...ConfigFileLocation) *ConfigFileLoader {
	return &ConfigFileLoader{
		locations: locations,
	}
}

func ConfigFileSourceName(path string) string {
	return fmt.Sprintf("applicationConfig: [%s]", path)
}

func (l *ConfigFileLoader) Order() int {
	return ConfigFileOrder
}

func (l *ConfigFileLoader) PostProcessEnvironment(ctx context.Context, environment *Environment) error {
	for _, location := range l.locations {
		properties, err := loadConfigFile(location.Path)
		if err != nil {
			if location.Optional && errors.Is(err, fs.ErrNotExist) {
				aulogging.Logger.Ctx(ctx).Debug().Printf("skipping missing optional config file %s", location.Path)
				continue
			}
			return err
		}

		for key, value := range properties {
			resolved, err := environment.resolve(value, false, map[string]bool{})
			if err != nil {
				return fmt.Errorf("failed to resolve property %s in config file %s: %w", key, location.Path, err)
			}
			properties[key] = resolved
		}

		environment.PropertySources().AddLast(NewPropertySource(ConfigFileSourceName(location.Path), properties))
		aulogging.Logger.Ctx(ctx).Info().Printf("loaded %d properties from config file %s", len(properties), location.Path)
	}
	return nil
}

func loadConfigFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	properties := make(map[string]string)
	decoder := yaml.NewDecoder(file)
	for {
		var document any
		if err := decoder.Decode(&document); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		flatten("", document, properties)
	}
	return properties, nil
}

// flatten writes nested YAML values as dotted keys, list entries as key[index].
func flatten(prefix string, value any, properties map[string]string) {
	switch typed := value.(type) {
	case map[string]any:
		for key, child := range typed {
			flatten(joinKey(prefix, key), child, properties)
		}
	case map[any]any:
		for key, child := range typed {
			flatten(joinKey(prefix, fmt.Sprint(key)), child, properties)
		}
	case []any:
		for i, child := range typed {
			flatten(prefix+"["+strconv.Itoa(i)+"]", child, properties)
		}
	case nil:
		if prefix != "" {
			properties[prefix] = ""
		}
	default:
		if prefix != "" {
			properties[prefix] = fmt.Sprint(typed)
		}
	}
}

func joinKey(prefix string, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
