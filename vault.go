package bindings

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"os"
	"slices"
	"sync"

	aulogging "github.com/StephanHCB/go-autumn-logging"
	baoapi "github.com/openbao/openbao/api/v2"
)

var (
	ErrClientNotInitialized = errors.New("OpenBao client not initialized")
	ErrNoSecretFound        = errors.New("no secret found at path")
	ErrUnexpectedDataFormat = errors.New("unexpected data format in KV v2 response")
	ErrNoClientToken        = errors.New("no client token returned from vault")
)

// VaultBindingSource materializes bindings from secrets stored in OpenBao.
type VaultBindingSource struct {
	config    *Config
	baoClient *baoapi.Client

	// thread-safe token handling
	tokenMu sync.RWMutex
}

func NewVaultBindingSource(
	config *Config,
	client *http.Client,
) (*VaultBindingSource, error) {
	if client == nil {
		client = http.DefaultClient
	}

	baoConfig := baoapi.DefaultConfig()
	baoConfig.Address = config.VaultServerURL
	baoConfig.HttpClient = client

	baoClient, err := baoapi.NewClient(baoConfig)
	if err != nil {
		return nil, err
	}

	if config.VaultAuthToken != "" && baoClient != nil {
		baoClient.SetToken(config.VaultAuthToken)
	}

	return &VaultBindingSource{
		config:    config,
		baoClient: baoClient,
	}, nil
}

// FetchBindings reads one binding per configured entry, in binding name order. The configured type and provider
// are added to the secret unless the secret already carries them.
func (v *VaultBindingSource) FetchBindings(ctx context.Context) (Bindings, error) {
	names := slices.Sorted(maps.Keys(v.config.VaultBindingsConfig))
	items := make([]Binding, 0, len(names))
	for _, name := range names {
		bindingConfig := v.config.VaultBindingsConfig[name]
		secret, err := v.FetchSecrets(ctx, bindingConfig.Path)
		if err != nil {
			return Bindings{}, fmt.Errorf("failed to fetch service binding %s: %w", name, err)
		}
		if _, ok := secret[TypeKey]; !ok && bindingConfig.Type != "" {
			secret[TypeKey] = bindingConfig.Type
		}
		if _, ok := secret[ProviderKey]; !ok && bindingConfig.Provider != "" {
			secret[ProviderKey] = bindingConfig.Provider
		}
		items = append(items, NewBinding(name, bindingConfig.Path, secret, nil))
	}
	return NewBindings(items...), nil
}

func (v *VaultBindingSource) FetchSecrets(ctx context.Context, secretsPath string) (map[string]string, error) {
	aulogging.Logger.Ctx(ctx).Info().Printf("querying vault for service binding at %s", secretsPath)

	if v.baoClient == nil {
		return nil, ErrClientNotInitialized
	}

	if err := v.ensureToken(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure valid token: %w", err)
	}

	secret, err := v.baoClient.Logical().ReadWithContext(ctx, secretsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets from vault: %w", err)
	}

	if secret == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSecretFound, secretsPath)
	}

	var secretData map[string]interface{}
	if dataField, ok := secret.Data["data"]; ok {
		if dataMap, ok := dataField.(map[string]interface{}); ok {
			secretData = dataMap
		} else {
			return nil, ErrUnexpectedDataFormat
		}
	} else {
		secretData = secret.Data
	}

	result := make(map[string]string)
	for key, val := range secretData {
		if strVal, ok := val.(string); ok {
			result[key] = strVal
		} else {
			result[key] = fmt.Sprintf("%v", val)
		}
	}

	return result, nil
}

// ensureToken checks if a token exists and refreshes if needed
func (v *VaultBindingSource) ensureToken(ctx context.Context) error {
	v.tokenMu.RLock()
	hasToken := v.baoClient.Token() != ""
	v.tokenMu.RUnlock()

	if !hasToken {
		return v.refreshAuthToken(ctx)
	}

	return nil
}

func (v *VaultBindingSource) refreshAuthToken(ctx context.Context) error {
	v.tokenMu.Lock()
	defer v.tokenMu.Unlock()

	if v.baoClient.Token() != "" {
		return nil
	}

	if v.config.VaultAuthToken != "" {
		v.baoClient.SetToken(v.config.VaultAuthToken)
		return nil
	}

	aulogging.Logger.Ctx(ctx).Info().Print("authenticating with vault")

	k8sTokenBytes, err := os.ReadFile(v.config.VaultAuthKubernetesTokenPath)
	if err != nil {
		return fmt.Errorf("unable to read vault token file: %w", err)
	}

	authPath := fmt.Sprintf("auth/%s/login", v.config.VaultAuthKubernetesBackend)
	secret, err := v.baoClient.Logical().WriteWithContext(ctx, authPath, map[string]interface{}{
		"jwt":  string(k8sTokenBytes),
		"role": v.config.VaultAuthKubernetesRole,
	})
	if err != nil {
		return fmt.Errorf("kubernetes auth failed: %w", err)
	}

	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		return ErrNoClientToken
	}

	v.baoClient.SetToken(secret.Auth.ClientToken)

	aulogging.Logger.Ctx(ctx).Info().Print("successfully authenticated with vault")
	return nil
}
