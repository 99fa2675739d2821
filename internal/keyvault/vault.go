// Package keyvault wraps the Vault Transit engine used to encrypt
// reverse bindings. The encryption key never leaves Vault: this package
// only exchanges plaintext for self-describing ciphertexts
// ("vault:v1:...") and back.
package keyvault

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	vault "github.com/hashicorp/vault/api"

	"github.com/regulens/pseudonymd/internal/logger"
	"github.com/regulens/pseudonymd/pkg/config"
)

// maxPlaintext bounds encryption input. Reverse bindings hold single
// detected values, so anything near this limit is a caller bug.
const maxPlaintext = 64 * 1024

// Service provides authenticated encryption through a named Transit key.
type Service struct {
	client  *vault.Client
	keyName string
	timeout time.Duration
}

// New creates a key service client from configuration. It does not
// contact Vault; call EnsureKey or Health to verify connectivity.
func New(cfg config.VaultConfig) (*Service, error) {
	vaultCfg := vault.DefaultConfig()
	vaultCfg.Address = cfg.Addr
	vaultCfg.Timeout = cfg.Timeout

	client, err := vault.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Service{
		client:  client,
		keyName: cfg.KeyName,
		timeout: cfg.Timeout,
	}, nil
}

// EnsureKey creates the Transit key if it does not exist yet.
// Creation is idempotent: Transit ignores creates for existing keys.
func (s *Service) EnsureKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.Logical().WriteWithContext(ctx,
		"transit/keys/"+s.keyName,
		map[string]any{
			"type":       "aes256-gcm96",
			"exportable": false,
		})
	if err != nil {
		return s.mapError(err)
	}
	logger.Info("Transit key ready", "key_name", s.keyName)
	return nil
}

// Encrypt produces a self-describing ciphertext for the given
// plaintext. Transport failures are retried once before surfacing
// ErrKeyUnavailable.
func (s *Service) Encrypt(ctx context.Context, plaintext []byte) (string, error) {
	if len(plaintext) > maxPlaintext {
		return "", fmt.Errorf("%w: %d bytes", ErrPlaintextTooLarge, len(plaintext))
	}

	// Transit rejects raw binary: plaintext travels base64-encoded
	payload := map[string]any{
		"plaintext": base64.StdEncoding.EncodeToString(plaintext),
	}

	secret, err := s.writeWithRetry(ctx, "transit/encrypt/"+s.keyName, payload)
	if err != nil {
		return "", err
	}

	ciphertext, ok := secret.Data["ciphertext"].(string)
	if !ok || ciphertext == "" {
		return "", fmt.Errorf("%w: transit response missing ciphertext", ErrKeyUnavailable)
	}
	return ciphertext, nil
}

// Decrypt reverses Encrypt. The ciphertext carries the key version it
// was produced with; a revoked version surfaces ErrKeyNotFound.
func (s *Service) Decrypt(ctx context.Context, ciphertext string) ([]byte, error) {
	secret, err := s.writeWithRetry(ctx, "transit/decrypt/"+s.keyName,
		map[string]any{"ciphertext": ciphertext})
	if err != nil {
		return nil, err
	}

	encoded, ok := secret.Data["plaintext"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: transit response missing plaintext", ErrInvalidCiphertext)
	}
	plaintext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	return plaintext, nil
}

// Health reports whether Vault is reachable and unsealed.
func (s *Service) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	health, err := s.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return s.mapError(err)
	}
	if health.Sealed {
		return fmt.Errorf("%w: vault is sealed", ErrKeyUnavailable)
	}
	return nil
}

// writeWithRetry performs a logical write, retrying exactly once on
// transport failure.
func (s *Service) writeWithRetry(ctx context.Context, path string, payload map[string]any) (*vault.Secret, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		secret, err := s.client.Logical().WriteWithContext(callCtx, path, payload)
		cancel()
		if err == nil {
			if secret == nil || secret.Data == nil {
				return nil, fmt.Errorf("%w: empty transit response", ErrKeyUnavailable)
			}
			return secret, nil
		}

		lastErr = s.mapError(err)
		if !errors.Is(lastErr, ErrKeyUnavailable) {
			return nil, lastErr
		}
		logger.Warn("key service call failed, retrying", "path", path, "error", err)
	}
	return nil, lastErr
}

// mapError converts Vault API errors to the package error kinds.
func (s *Service) mapError(err error) error {
	var respErr *vault.ResponseError
	if errors.As(err, &respErr) {
		switch {
		case respErr.StatusCode == 404 || containsAny(respErr.Errors, "key not found", "no existing key"):
			return fmt.Errorf("%w: %v", ErrKeyNotFound, err)
		case respErr.StatusCode == 400 && containsAny(respErr.Errors, "ciphertext", "message authentication"):
			return fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
		default:
			return fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
		}
	}
	// No HTTP response at all: network failure
	return fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
}

func containsAny(msgs []string, needles ...string) bool {
	for _, m := range msgs {
		lower := strings.ToLower(m)
		for _, n := range needles {
			if strings.Contains(lower, n) {
				return true
			}
		}
	}
	return false
}
