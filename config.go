package bindings

import (
	"encoding/json"
	"reflect"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnableProperty switches binding post-processing on when set to "true" in an existing property source.
const EnableProperty = "org.springframework.cloud.bindings.boot.enable"

// TypeEnableProperty returns the property that switches processing of one binding type off when set to "false".
func TypeEnableProperty(bindingType string) string {
	return "org.springframework.cloud.bindings.boot." + strings.ToLower(bindingType) + ".enable"
}

type Config struct {
	Enabled                      bool                `env:"SERVICE_BINDINGS_BOOT_ENABLE" envDefault:"false"`
	DisabledTypes                []string            `env:"SERVICE_BINDINGS_DISABLED_TYPES" envSeparator:","`
	VaultServerURL               string              `env:"SERVICE_BINDINGS_VAULT_URL"`
	VaultAuthToken               string              `env:"SERVICE_BINDINGS_VAULT_AUTH_TOKEN"`
	VaultAuthKubernetesRole      string              `env:"SERVICE_BINDINGS_VAULT_AUTH_KUBERNETES_ROLE"`
	VaultAuthKubernetesTokenPath string              `env:"SERVICE_BINDINGS_VAULT_AUTH_KUBERNETES_TOKEN_PATH" envDefault:"/var/run/secrets/kubernetes.io/serviceaccount/token"`
	VaultAuthKubernetesBackend   string              `env:"SERVICE_BINDINGS_VAULT_AUTH_KUBERNETES_BACKEND"`
	VaultBindingsConfig          VaultBindingsConfig `env:"SERVICE_BINDINGS_VAULT_CONFIG" envDefault:"{}"`
}

// VaultBindingsConfig maps binding names to the OpenBao secret they are read from.
type VaultBindingsConfig map[string]VaultBindingConfig

type VaultBindingConfig struct {
	Path     string `json:"path"`
	Type     string `json:"type,omitempty"`
	Provider string `json:"provider,omitempty"`
}

func NewConfig() *Config {
	return &Config{}
}

func (c *Config) ObtainValuesFromEnv() error {
	return env.ParseWithOptions(c, c.parseOptions(nil))
}

// ObtainValues reads the configuration from the given variables instead of the process environment.
func (c *Config) ObtainValues(environment map[string]string) error {
	return env.ParseWithOptions(c, c.parseOptions(environment))
}

func (c *Config) IsTypeEnabled(bindingType string) bool {
	return !slices.ContainsFunc(c.DisabledTypes, func(disabled string) bool {
		return strings.EqualFold(strings.TrimSpace(disabled), bindingType)
	})
}

func (c *Config) parseOptions(environment map[string]string) env.Options {
	return env.Options{
		Environment: environment,
		FuncMap: map[reflect.Type]env.ParserFunc{
			// register parser for the non-pointer VaultBindingsConfig type
			reflect.TypeOf(VaultBindingsConfig{}): func(v string) (any, error) {
				return parseVaultBindingsConfig(v)
			},
		},
	}
}

func parseVaultBindingsConfig(value string) (VaultBindingsConfig, error) {
	var vaultBindingsConfig VaultBindingsConfig
	if err := json.Unmarshal([]byte(value), &vaultBindingsConfig); err != nil {
		return nil, err
	}
	return vaultBindingsConfig, nil
}
