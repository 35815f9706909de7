package bindings

import "strings"

// NewCommandLinePropertySource builds the commandLineArgs source from program arguments.
// Only option arguments are kept: "--key=value" maps key to value, a bare "--flag" maps flag to "true".
// Everything after a lone "--" is ignored.
func NewCommandLinePropertySource(args []string) *PropertySource {
	properties := make(map[string]string)
	for _, arg := range args {
		if arg == "--" {
			break
		}
		option, isOption := strings.CutPrefix(arg, "--")
		if !isOption || option == "" {
			continue
		}
		key, value, hasValue := strings.Cut(option, "=")
		if key == "" {
			continue
		}
		if !hasValue {
			value = "true"
		}
		properties[key] = value
	}
	return NewPropertySource(CommandLinePropertySourceName, properties)
}
