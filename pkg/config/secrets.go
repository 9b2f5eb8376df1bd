package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/scrypt"

	"agenticsearch/pkg/logx"
)

// Secrets file configuration.
const (
	saltSize  = 16
	nonceSize = 12
	scryptN   = 32768 // 2^15
	scryptR   = 8
	scryptP   = 1
	keySize   = 32 // AES-256
)

// Global state for decrypted secrets.
//
//nolint:gochecknoglobals // Intentional global state for in-memory secrets storage
var (
	decryptedSecrets    map[string]string
	decryptedSecretsMux sync.RWMutex
	logger              *logx.Logger
	loggerOnce          sync.Once
)

// getLogger returns the config logger, initializing it if needed.
func getLogger() *logx.Logger {
	loggerOnce.Do(func() {
		logger = logx.NewLogger("config")
	})
	return logger
}

// SetDecryptedSecrets stores decrypted secrets in memory.
func SetDecryptedSecrets(secrets map[string]string) {
	decryptedSecretsMux.Lock()
	defer decryptedSecretsMux.Unlock()
	decryptedSecrets = secrets
}

// GetSecret returns a secret value by name using standard precedence:
// 1. Decrypted secrets file (in memory)
// 2. Environment variables.
func GetSecret(name string) (string, error) {
	decryptedSecretsMux.RLock()
	if decryptedSecrets != nil {
		if value, exists := decryptedSecrets[name]; exists && value != "" {
			decryptedSecretsMux.RUnlock()
			return value, nil
		}
	}
	decryptedSecretsMux.RUnlock()

	if value := os.Getenv(name); value != "" {
		return value, nil
	}

	return "", fmt.Errorf("secret %s not found in secrets file or environment", name)
}

// GetDecryptedSecretNames returns the sorted secret names (not values).
func GetDecryptedSecretNames() []string {
	decryptedSecretsMux.RLock()
	defer decryptedSecretsMux.RUnlock()

	names := make([]string, 0, len(decryptedSecrets))
	for name := range decryptedSecrets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// APIKey resolves the credential for the configured provider: the config
// value first, then the secrets file, then the environment. Ollama needs
// no key and yields the host instead.
func (c *Config) APIKey() (string, error) {
	var configured string
	var names []string
	switch c.Provider {
	case ProviderGoogle:
		configured, names = c.APIKeys.Google, []string{EnvGoogleAPIKey, EnvGoogleAPIKeyAlt}
	case ProviderOpenAI:
		configured, names = c.APIKeys.OpenAI, []string{EnvOpenAIAPIKey}
	case ProviderAnthropic:
		configured, names = c.APIKeys.Anthropic, []string{EnvAnthropicAPIKey}
	case ProviderOllama:
		if host := os.Getenv(EnvOllamaHost); host != "" && c.Ollama.Host == Default().Ollama.Host {
			return host, nil
		}
		return c.Ollama.Host, nil
	default:
		return "", fmt.Errorf("unknown provider: %s", c.Provider)
	}

	if configured != "" {
		return configured, nil
	}
	for _, name := range names {
		if key, err := GetSecret(name); err == nil {
			return key, nil
		}
	}
	return "", fmt.Errorf("API key not found: set api_keys.%s or %s", c.Provider, names[0])
}

// LoadSecrets decrypts the configured secrets file into memory. It is a
// no-op when no file is configured or the file does not exist yet.
func (c *Config) LoadSecrets(password string) error {
	if c.Security.SecretsFile == "" {
		return nil
	}
	if !SecretsFileExists(c.Security.SecretsFile) {
		getLogger().Debug("Secrets file %s not found, skipping", c.Security.SecretsFile)
		return nil
	}
	secrets, err := DecryptSecretsFile(c.Security.SecretsFile, password)
	if err != nil {
		return err
	}
	SetDecryptedSecrets(secrets)
	getLogger().Info("Loaded %d secrets from %s", len(secrets), c.Security.SecretsFile)
	return nil
}

// SecretsFileExists checks if the secrets file exists.
func SecretsFileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EncryptSecretsFile encrypts and saves secrets to path.
// Sets file permissions to 0600 for security.
func EncryptSecretsFile(path, password string, secrets map[string]string) error {
	passwordBytes := []byte(password)
	defer func() {
		for i := range passwordBytes {
			passwordBytes[i] = 0
		}
	}()

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := scrypt.Key(passwordBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return fmt.Errorf("failed to derive encryption key: %w", err)
	}
	defer func() {
		for i := range key {
			key[i] = 0
		}
	}()

	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	// File layout: [salt][nonce][ciphertext+tag]
	fileData := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	fileData = append(fileData, salt...)
	fileData = append(fileData, nonce...)
	fileData = append(fileData, ciphertext...)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create secrets directory: %w", err)
	}
	if err := os.WriteFile(path, fileData, 0o600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	return nil
}

// DecryptSecretsFile decrypts and returns secrets from path.
func DecryptSecretsFile(path, password string) (map[string]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat secrets file: %w", err)
	}

	if info.Mode().Perm() != 0o600 {
		getLogger().Warn("Secrets file has incorrect permissions (found: %04o, expected: 0600); fixing", info.Mode().Perm())
		if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
			return nil, fmt.Errorf("failed to fix file permissions: %w", chmodErr)
		}
	}

	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	minSize := saltSize + nonceSize + 16 // 16 is GCM tag size
	if len(fileData) < minSize {
		return nil, fmt.Errorf("secrets file is corrupted or invalid format (too small)")
	}

	salt := fileData[:saltSize]
	nonce := fileData[saltSize : saltSize+nonceSize]
	ciphertext := fileData[saltSize+nonceSize:]

	passwordBytes := []byte(password)
	defer func() {
		for i := range passwordBytes {
			passwordBytes[i] = 0
		}
	}()

	key, err := scrypt.Key(passwordBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive decryption key: %w", err)
	}
	defer func() {
		for i := range key {
			key[i] = 0
		}
	}()

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (wrong password or corrupted file)")
	}

	var secrets map[string]string
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("failed to parse secrets: %w", err)
	}
	return secrets, nil
}
