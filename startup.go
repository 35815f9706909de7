package bindings

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	aulogging "github.com/StephanHCB/go-autumn-logging"
)

// PostProcessor customizes an Environment during startup. Lower Order values run first.
type PostProcessor interface {
	Order() int
	PostProcessEnvironment(ctx context.Context, environment *Environment) error
}

// Run invokes the post-processors in ascending order, keeping the given order for equal values.
// It stops at the first error.
func Run(ctx context.Context, environment *Environment, postProcessors ...PostProcessor) error {
	sorted := slices.Clone(postProcessors)
	slices.SortStableFunc(sorted, func(a, b PostProcessor) int {
		return cmp.Compare(a.Order(), b.Order())
	})
	for _, postProcessor := range sorted {
		if err := postProcessor.PostProcessEnvironment(ctx, environment); err != nil {
			return fmt.Errorf("environment post-processing failed: %w", err)
		}
	}
	aulogging.Logger.Ctx(ctx).Debug().Printf("environment ready with property sources %v", environment.PropertySources().Names())
	return nil
}
