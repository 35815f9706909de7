package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/alecthomas/kingpin/v2"

	bindings "github.com/Roshick/go-autumn-bindings"
)

const maskedValue = "******"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "bindings-env: %v\n", err)
		os.Exit(1)
	}
}

// run prints the resolved environment. Arguments after a lone "--" become the command line property source.
func run(ctx context.Context, args []string, out io.Writer) error {
	flagArgs, propertyArgs := splitArgs(args)

	kingpinApp := kingpin.New("bindings-env", "Prints the application environment including properties derived from service bindings")
	configFiles := kingpinApp.Flag("config", "Path to a YAML configuration file, may be repeated").Strings()
	useVault := kingpinApp.Flag("vault", "Read service bindings from OpenBao as configured by SERVICE_BINDINGS_VAULT_*").Bool()
	showSecrets := kingpinApp.Flag("show-secrets", "Print binding-derived values instead of masking them").Bool()

	if _, err := kingpinApp.Parse(flagArgs); err != nil {
		return err
	}

	config := bindings.NewConfig()
	if err := config.ObtainValuesFromEnv(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	serviceBindings := bindings.NewBindings()
	if *useVault {
		source, err := bindings.NewVaultBindingSource(config, nil)
		if err != nil {
			return err
		}
		if serviceBindings, err = source.FetchBindings(ctx); err != nil {
			return err
		}
	}

	locations := make([]bindings.ConfigFileLocation, 0, len(*configFiles))
	for _, path := range *configFiles {
		locations = append(locations, bindings.ConfigFileLocation{Path: path})
	}

	environment := bindings.NewEnvironment(bindings.NewCommandLinePropertySource(propertyArgs))
	err := bindings.Run(ctx, environment,
		bindings.NewConfigFileLoader(locations...),
		bindings.NewPostProcessor(*config, serviceBindings),
	)
	if err != nil {
		return err
	}

	return printEnvironment(out, environment, *showSecrets)
}

func splitArgs(args []string) ([]string, []string) {
	i := slices.Index(args, "--")
	if i < 0 {
		return args, nil
	}
	return args[:i], args[i+1:]
}

func printEnvironment(out io.Writer, environment *bindings.Environment, showSecrets bool) error {
	for _, key := range slices.Sorted(maps.Keys(environment.Properties())) {
		value, _ := environment.Property(key)
		if !showSecrets && environment.PropertySourceOf(key).Name() == bindings.BindingsPropertySourceName {
			value = maskedValue
		}
		if _, err := fmt.Fprintf(out, "%s=%s\n", key, value); err != nil {
			return err
		}
	}
	return nil
}
