package bindings

import (
	"context"
	"fmt"
	"math"
	"strconv"

	aulogging "github.com/StephanHCB/go-autumn-logging"
)

const (
	// ConfigFileOrder is the order of the file-based configuration loader.
	ConfigFileOrder = math.MinInt32 + 10
	// DefaultOrder runs binding post-processing before configuration files are loaded,
	// so file values may refer to binding properties through placeholders.
	DefaultOrder = ConfigFileOrder - 1
)

var _ PostProcessor = (*BindingsPostProcessor)(nil)

// BindingsPostProcessor adds properties derived from service bindings to an Environment.
type BindingsPostProcessor struct {
	config     Config
	bindings   Bindings
	processors []Processor
}

// NewPostProcessor creates a post-processor for the bindings. Without explicit processors DefaultProcessors is used.
func NewPostProcessor(config Config, bindings Bindings, processors ...Processor) *BindingsPostProcessor {
	if len(processors) == 0 {
		processors = DefaultProcessors()
	}
	return &BindingsPostProcessor{
		config:     config,
		bindings:   bindings,
		processors: processors,
	}
}

func (p *BindingsPostProcessor) Order() int {
	return DefaultOrder
}

func (p *BindingsPostProcessor) Processors() []Processor {
	return append([]Processor(nil), p.processors...)
}

func (p *BindingsPostProcessor) PostProcessEnvironment(ctx context.Context, environment *Environment) error {
	if !p.isEnabled(environment) {
		aulogging.Logger.Ctx(ctx).Debug().Print("service binding post-processing is disabled")
		return nil
	}

	properties := make(map[string]string)
	for _, binding := range p.bindings.All() {
		for _, processor := range p.processors {
			if typed, ok := processor.(TypedProcessor); ok && !p.isTypeEnabled(environment, typed.BindingType()) {
				continue
			}
			if err := processor.Process(binding, properties); err != nil {
				return fmt.Errorf("failed to process service binding %s: %w", binding.Name(), err)
			}
		}
	}

	propertySources := environment.PropertySources()
	if len(properties) == 0 {
		if propertySources.Remove(BindingsPropertySourceName) != nil {
			aulogging.Logger.Ctx(ctx).Debug().Print("removed stale service binding property source")
		}
		aulogging.Logger.Ctx(ctx).Debug().Printf("no properties derived from %d service bindings", p.bindings.Len())
		return nil
	}

	// adding removes a stale source of the same name first, so a re-run lands in the regular position
	propertySource := NewPropertySource(BindingsPropertySourceName, properties)
	switch {
	case propertySources.Contains(CommandLinePropertySourceName):
		if err := propertySources.AddAfter(CommandLinePropertySourceName, propertySource); err != nil {
			return err
		}
	default:
		propertySources.AddFirst(propertySource)
	}

	aulogging.Logger.Ctx(ctx).Info().Printf("added %d properties from %d service bindings", len(properties), p.bindings.Len())
	return nil
}

func (p *BindingsPostProcessor) isEnabled(environment *Environment) bool {
	if p.config.Enabled {
		return true
	}
	enabled, ok := boolProperty(environment, EnableProperty)
	return ok && enabled
}

// isTypeEnabled defaults to true; either Config.DisabledTypes or a false TypeEnableProperty switches a type off.
func (p *BindingsPostProcessor) isTypeEnabled(environment *Environment, bindingType string) bool {
	if !p.config.IsTypeEnabled(bindingType) {
		return false
	}
	enabled, ok := boolProperty(environment, TypeEnableProperty(bindingType))
	return !ok || enabled
}

func boolProperty(environment *Environment, key string) (bool, bool) {
	value, ok := environment.Property(key)
	if !ok {
		return false, false
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, false
	}
	return parsed, true
}
