package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"go.uber.org/zap"
)

const vaultCacheTTL = 5 * time.Minute

// VaultClient wraps the Azure Key Vault secrets client with a small
// in-process cache so repeated config loads don't hammer the vault.
type VaultClient struct {
	client *azsecrets.Client
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]cachedSecret
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

// NewVaultClient creates a Key Vault client using DefaultAzureCredential
// (env credentials, managed identity, or Azure CLI for local use).
func NewVaultClient(vaultName string, logger *zap.Logger) (*VaultClient, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	vaultURL := fmt.Sprintf("https://%s.vault.azure.net/", vaultName)
	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	logger.Info("Key Vault client initialized", zap.String("vault_url", vaultURL))

	return &VaultClient{
		client: client,
		logger: logger,
		cache:  make(map[string]cachedSecret),
	}, nil
}

// GetSecret retrieves a secret from Azure Key Vault
func (v *VaultClient) GetSecret(ctx context.Context, name string) (string, error) {
	v.mu.Lock()
	if cached, ok := v.cache[name]; ok && time.Now().Before(cached.expiresAt) {
		v.mu.Unlock()
		return cached.value, nil
	}
	v.mu.Unlock()

	resp, err := v.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		v.logger.Error("failed to get secret from Key Vault",
			zap.String("secret_name", name),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to get secret %q: %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret %q has no value", name)
	}

	v.mu.Lock()
	v.cache[name] = cachedSecret{value: *resp.Value, expiresAt: time.Now().Add(vaultCacheTTL)}
	v.mu.Unlock()

	return *resp.Value, nil
}
