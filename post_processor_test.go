package bindings

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestEnvironment() *Environment {
	return NewEnvironment(NewPropertySource("mockProperties", nil))
}

func testBindings() Bindings {
	return NewBindings(NewBinding("test-name", "test-path", nil, nil))
}

func testProcessor() Processor {
	return ProcessorFunc(func(_ Binding, properties map[string]string) error {
		properties["test-key"] = "test-value"
		return nil
	})
}

func enabledConfig() Config {
	return Config{Enabled: true}
}

func TestPostProcessEnvironment_DisabledByDefault(t *testing.T) {
	// arrange
	environment := newTestEnvironment()
	processor := NewPostProcessor(*NewConfig(), testBindings(), testProcessor())

	// act
	if err := processor.PostProcessEnvironment(context.Background(), environment); err != nil {
		t.Fatalf("PostProcessEnvironment error: %v", err)
	}

	// assert
	if environment.PropertySources().Len() != 1 {
		t.Fatalf("expected 1 property source, got %v", environment.PropertySources().Names())
	}
}

func TestPostProcessEnvironment_NoBindings(t *testing.T) {
	environment := newTestEnvironment()

	if err := NewPostProcessor(enabledConfig(), NewBindings()).PostProcessEnvironment(context.Background(), environment); err != nil {
		t.Fatalf("PostProcessEnvironment error: %v", err)
	}

	if environment.PropertySources().Len() != 1 {
		t.Fatalf("expected 1 property source, got %v", environment.PropertySources().Names())
	}
}

func TestPostProcessEnvironment_NoProperties(t *testing.T) {
	environment := newTestEnvironment()

	if err := NewPostProcessor(enabledConfig(), testBindings()).PostProcessEnvironment(context.Background(), environment); err != nil {
		t.Fatalf("PostProcessEnvironment error: %v", err)
	}

	if environment.PropertySources().Len() != 1 {
		t.Fatalf("expected 1 property source, got %v", environment.PropertySources().Names())
	}
}

func TestPostProcessEnvironment_ContainsProperties(t *testing.T) {
	environment := newTestEnvironment()

	if err := NewPostProcessor(enabledConfig(), testBindings(), testProcessor()).PostProcessEnvironment(context.Background(), environment); err != nil {
		t.Fatalf("PostProcessEnvironment error: %v", err)
	}

	if environment.PropertySources().Len() != 2 {
		t.Fatalf("expected 2 property sources, got %v", environment.PropertySources().Names())
	}
	if value, _ := environment.Property("test-key"); value != "test-value" {
		t.Fatalf("expected test-value, got %q", value)
	}
}

func TestPostProcessEnvironment_AfterCommandLinePropertySource(t *testing.T) {
	// arrange
	environment := newTestEnvironment()
	environment.PropertySources().AddFirst(NewCommandLinePropertySource(nil))

	// act
	if err := NewPostProcessor(enabledConfig(), testBindings(), testProcessor()).PostProcessEnvironment(context.Background(), environment); err != nil {
		t.Fatalf("PostProcessEnvironment error: %v", err)
	}

	// assert
	propertySource := environment.PropertySources().Get(BindingsPropertySourceName)
	if propertySource == nil {
		t.Fatalf("expected property source %s", BindingsPropertySourceName)
	}
	if precedence := environment.PropertySources().PrecedenceOf(propertySource); precedence != 1 {
		t.Fatalf("expected precedence 1, got %d", precedence)
	}
}

func TestPostProcessEnvironment_First(t *testing.T) {
	environment := newTestEnvironment()

	if err := NewPostProcessor(enabledConfig(), testBindings(), testProcessor()).PostProcessEnvironment(context.Background(), environment); err != nil {
		t.Fatalf("PostProcessEnvironment error: %v", err)
	}

	propertySource := environment.PropertySources().Get(BindingsPropertySourceName)
	if propertySource == nil {
		t.Fatalf("expected property source %s", BindingsPropertySourceName)
	}
	if precedence := environment.PropertySources().PrecedenceOf(propertySource); precedence != 0 {
		t.Fatalf("expected precedence 0, got %d", precedence)
	}
}

func TestOrder_BeforeConfigFileLoader(t *testing.T) {
	if order := NewPostProcessor(enabledConfig(), NewBindings()).Order(); order >= ConfigFileOrder {
		t.Fatalf("expected order below %d, got %d", ConfigFileOrder, order)
	}
	if order := NewPostProcessor(enabledConfig(), NewBindings()).Order(); order >= NewConfigFileLoader().Order() {
		t.Fatalf("expected order below config file loader, got %d", order)
	}
}

func TestNewPostProcessor_IncludedImplementations(t *testing.T) {
	if processors := NewPostProcessor(*NewConfig(), NewBindings()).Processors(); len(processors) != 8 {
		t.Fatalf("expected 8 processors, got %d", len(processors))
	}
}

func TestPostProcessEnvironment_EnabledByProperty(t *testing.T) {
	environment := newTestEnvironment()
	environment.PropertySources().AddFirst(NewCommandLinePropertySource([]string{"--" + EnableProperty + "=true"}))

	if err := NewPostProcessor(*NewConfig(), testBindings(), testProcessor()).PostProcessEnvironment(context.Background(), environment); err != nil {
		t.Fatalf("PostProcessEnvironment error: %v", err)
	}

	if !environment.PropertySources().Contains(BindingsPropertySourceName) {
		t.Fatalf("expected property source %s, got %v", BindingsPropertySourceName, environment.PropertySources().Names())
	}
}

func TestPostProcessEnvironment_InvalidEnableProperty(t *testing.T) {
	environment := NewEnvironment(NewPropertySource("mockProperties", map[string]string{EnableProperty: "yes please"}))

	if err := NewPostProcessor(*NewConfig(), testBindings(), testProcessor()).PostProcessEnvironment(context.Background(), environment); err != nil {
		t.Fatalf("PostProcessEnvironment error: %v", err)
	}

	if environment.PropertySources().Len() != 1 {
		t.Fatalf("expected 1 property source, got %v", environment.PropertySources().Names())
	}
}

func TestPostProcessEnvironment_LaterWriteWins(t *testing.T) {
	environment := newTestEnvironment()
	first := ProcessorFunc(func(binding Binding, properties map[string]string) error {
		properties["shared"] = "first-" + binding.Name()
		return nil
	})
	second := ProcessorFunc(func(binding Binding, properties map[string]string) error {
		properties["shared"] = "second-" + binding.Name()
		return nil
	})
	serviceBindings := NewBindings(
		NewBinding("a", "a", nil, nil),
		NewBinding("b", "b", nil, nil),
	)

	if err := NewPostProcessor(enabledConfig(), serviceBindings, first, second).PostProcessEnvironment(context.Background(), environment); err != nil {
		t.Fatalf("PostProcessEnvironment error: %v", err)
	}

	if value, _ := environment.Property("shared"); value != "second-b" {
		t.Fatalf("expected second-b, got %q", value)
	}
}

func TestPostProcessEnvironment_ProcessorErrorAborts(t *testing.T) {
	// arrange
	environment := newTestEnvironment()
	errBoom := errors.New("boom")
	failing := ProcessorFunc(func(_ Binding, _ map[string]string) error {
		return errBoom
	})

	// act
	err := NewPostProcessor(enabledConfig(), testBindings(), testProcessor(), failing).PostProcessEnvironment(context.Background(), environment)

	// assert
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped processor error, got %v", err)
	}
	if environment.PropertySources().Len() != 1 {
		t.Fatalf("expected chain to be untouched, got %v", environment.PropertySources().Names())
	}
}

func TestPostProcessEnvironment_MovesExistingSourceFirst(t *testing.T) {
	// arrange
	environment := NewEnvironment(NewPropertySource("mockProperties", map[string]string{"test-key": "mock"}))
	environment.PropertySources().AddLast(NewPropertySource(BindingsPropertySourceName, map[string]string{"stale": "value"}))

	// act
	if err := NewPostProcessor(enabledConfig(), testBindings(), testProcessor()).PostProcessEnvironment(context.Background(), environment); err != nil {
		t.Fatalf("PostProcessEnvironment error: %v", err)
	}

	// assert
	if environment.PropertySources().Len() != 2 {
		t.Fatalf("expected 2 property sources, got %v", environment.PropertySources().Names())
	}
	if precedence := environment.PropertySources().PrecedenceOf(environment.PropertySources().Get(BindingsPropertySourceName)); precedence != 0 {
		t.Fatalf("expected precedence 0, got %d", precedence)
	}
	if value, _ := environment.Property("test-key"); value != "test-value" {
		t.Fatalf("expected test-value, got %q", value)
	}
	if _, ok := environment.Property("stale"); ok {
		t.Fatalf("expected stale property to be gone")
	}
}

func TestPostProcessEnvironment_MovesExistingSourceAfterCommandLine(t *testing.T) {
	environment := NewEnvironment(
		NewCommandLinePropertySource(nil),
		NewPropertySource("mockProperties", nil),
		NewPropertySource(BindingsPropertySourceName, map[string]string{"stale": "value"}),
	)

	if err := NewPostProcessor(enabledConfig(), testBindings(), testProcessor()).PostProcessEnvironment(context.Background(), environment); err != nil {
		t.Fatalf("PostProcessEnvironment error: %v", err)
	}

	expected := []string{CommandLinePropertySourceName, BindingsPropertySourceName, "mockProperties"}
	if diff := cmp.Diff(expected, environment.PropertySources().Names()); diff != "" {
		t.Errorf("unexpected property sources (-expected, +actual): %s", diff)
	}
}

func TestPostProcessEnvironment_RemovesStaleSourceWhenEmpty(t *testing.T) {
	environment := newTestEnvironment()
	environment.PropertySources().AddFirst(NewPropertySource(BindingsPropertySourceName, map[string]string{"stale": "value"}))

	if err := NewPostProcessor(enabledConfig(), NewBindings()).PostProcessEnvironment(context.Background(), environment); err != nil {
		t.Fatalf("PostProcessEnvironment error: %v", err)
	}

	if diff := cmp.Diff([]string{"mockProperties"}, environment.PropertySources().Names()); diff != "" {
		t.Errorf("unexpected property sources (-expected, +actual): %s", diff)
	}
}

func TestPostProcessEnvironment_TypeDisabledByProperty(t *testing.T) {
	environment := NewEnvironment(NewPropertySource("mockProperties", map[string]string{
		TypeEnableProperty(RedisType): "false",
	}))
	serviceBindings := NewBindings(
		NewBinding("cache", "cache", map[string]string{TypeKey: RedisType, "host": "redis.local"}, nil),
		NewBinding("broker", "broker", map[string]string{TypeKey: RabbitMQType, "host": "rabbit.local"}, nil),
	)

	if err := NewPostProcessor(enabledConfig(), serviceBindings).PostProcessEnvironment(context.Background(), environment); err != nil {
		t.Fatalf("PostProcessEnvironment error: %v", err)
	}

	if _, ok := environment.Property("spring.redis.host"); ok {
		t.Fatalf("expected redis binding to be skipped")
	}
	if value, _ := environment.Property("spring.rabbitmq.host"); value != "rabbit.local" {
		t.Fatalf("expected rabbit.local, got %q", value)
	}
}

func TestPostProcessEnvironment_TypeEnabledByCommandLine(t *testing.T) {
	serviceBindings := NewBindings(NewBinding("cache", "cache", map[string]string{TypeKey: RedisType, "host": "redis.local"}, nil))

	tests := []struct {
		name     string
		value    string
		expected bool
	}{
		{name: "false skips", value: "false", expected: false},
		{name: "true keeps", value: "true", expected: true},
		{name: "unparsable keeps", value: "maybe", expected: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			environment := NewEnvironment(NewCommandLinePropertySource([]string{"--" + TypeEnableProperty(RedisType) + "=" + tc.value}))

			if err := NewPostProcessor(enabledConfig(), serviceBindings).PostProcessEnvironment(context.Background(), environment); err != nil {
				t.Fatalf("PostProcessEnvironment error: %v", err)
			}

			if _, ok := environment.Property("spring.redis.host"); ok != tc.expected {
				t.Fatalf("expected redis property present=%v, got %v", tc.expected, ok)
			}
		})
	}
}

func TestPostProcessEnvironment_TypeIsCaseInsensitive(t *testing.T) {
	serviceBindings := NewBindings(NewBinding("cache", "cache", map[string]string{
		TypeKey: "Redis",
		"host":  "redis.local",
	}, nil))

	t.Run("processed", func(t *testing.T) {
		environment := newTestEnvironment()
		if err := NewPostProcessor(enabledConfig(), serviceBindings).PostProcessEnvironment(context.Background(), environment); err != nil {
			t.Fatalf("PostProcessEnvironment error: %v", err)
		}
		if value, _ := environment.Property("spring.redis.host"); value != "redis.local" {
			t.Fatalf("expected redis.local, got %q", value)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		environment := newTestEnvironment()
		config := Config{Enabled: true, DisabledTypes: []string{" REDIS"}}
		if err := NewPostProcessor(config, serviceBindings).PostProcessEnvironment(context.Background(), environment); err != nil {
			t.Fatalf("PostProcessEnvironment error: %v", err)
		}
		if environment.PropertySources().Len() != 1 {
			t.Fatalf("expected 1 property source, got %v", environment.PropertySources().Names())
		}
	})
}

func TestPostProcessEnvironment_DisabledType(t *testing.T) {
	environment := newTestEnvironment()
	serviceBindings := NewBindings(NewBinding("cache", "cache", map[string]string{
		TypeKey: RedisType,
		"host":  "redis.local",
	}, nil))
	config := Config{Enabled: true, DisabledTypes: []string{RedisType}}

	if err := NewPostProcessor(config, serviceBindings).PostProcessEnvironment(context.Background(), environment); err != nil {
		t.Fatalf("PostProcessEnvironment error: %v", err)
	}

	if environment.PropertySources().Len() != 1 {
		t.Fatalf("expected 1 property source, got %v", environment.PropertySources().Names())
	}
}

func TestPostProcessEnvironment_DefaultProcessors(t *testing.T) {
	environment := newTestEnvironment()
	serviceBindings := NewBindings(NewBinding("cache", "cache", map[string]string{
		TypeKey: RedisType,
		"host":  "redis.local",
		"port":  "6379",
	}, nil))

	if err := NewPostProcessor(enabledConfig(), serviceBindings).PostProcessEnvironment(context.Background(), environment); err != nil {
		t.Fatalf("PostProcessEnvironment error: %v", err)
	}

	if value, _ := environment.Property("spring.redis.host"); value != "redis.local" {
		t.Fatalf("expected redis.local, got %q", value)
	}
	if value, _ := environment.Property("spring.redis.port"); value != "6379" {
		t.Fatalf("expected 6379, got %q", value)
	}
}
