package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"agenticsearch/pkg/config"
)

var secretsFile string

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage the encrypted API key store",
	Long: `Manage provider API keys kept in an encrypted file.

The file is security.secrets_file from the config, or --file. 'ask' unlocks
it with the ` + config.EnvSecretsPassword + ` environment variable.`,
}

var secretsSetCmd = &cobra.Command{
	Use:   "set <provider>",
	Short: "Store the API key for a provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretsSet,
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the names of stored secrets",
	Args:  cobra.NoArgs,
	RunE:  runSecretsList,
}

func init() {
	secretsCmd.PersistentFlags().StringVar(&secretsFile, "file", "", "secrets file (defaults to security.secrets_file)")
	secretsCmd.AddCommand(secretsSetCmd)
	secretsCmd.AddCommand(secretsListCmd)
}

// secretNameFor maps a provider to the name its key is stored under.
func secretNameFor(provider string) (string, error) {
	switch strings.ToLower(provider) {
	case config.ProviderGoogle:
		return config.EnvGoogleAPIKey, nil
	case config.ProviderOpenAI:
		return config.EnvOpenAIAPIKey, nil
	case config.ProviderAnthropic:
		return config.EnvAnthropicAPIKey, nil
	default:
		return "", fmt.Errorf("provider %q has no API key (expected google, openai or anthropic)", provider)
	}
}

func resolveSecretsFile() (string, error) {
	if secretsFile != "" {
		return secretsFile, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Security.SecretsFile == "" {
		return "", errors.New("no secrets file: set security.secrets_file or pass --file")
	}
	return cfg.Security.SecretsFile, nil
}

func storePassword() (string, error) {
	if pw := os.Getenv(config.EnvSecretsPassword); pw != "" {
		return pw, nil
	}
	return promptPassword("Secrets password: ")
}

func loadExisting(path, password string) (map[string]string, error) {
	if !config.SecretsFileExists(path) {
		return map[string]string{}, nil
	}
	secrets, err := config.DecryptSecretsFile(path, password)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return secrets, nil
}

func runSecretsSet(cmd *cobra.Command, args []string) error {
	name, err := secretNameFor(args[0])
	if err != nil {
		return err
	}
	path, err := resolveSecretsFile()
	if err != nil {
		return err
	}
	password, err := storePassword()
	if err != nil {
		return err
	}
	secrets, err := loadExisting(path, password)
	if err != nil {
		return err
	}

	key, err := promptPassword(fmt.Sprintf("%s: ", name))
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key must not be empty")
	}
	secrets[name] = key

	if err := config.EncryptSecretsFile(path, password, secrets); err != nil {
		return err
	}
	cmd.Printf("Stored %s in %s\n", name, path)
	return nil
}

func runSecretsList(cmd *cobra.Command, _ []string) error {
	path, err := resolveSecretsFile()
	if err != nil {
		return err
	}
	password, err := storePassword()
	if err != nil {
		return err
	}
	secrets, err := loadExisting(path, password)
	if err != nil {
		return err
	}
	config.SetDecryptedSecrets(secrets)
	for _, name := range config.GetDecryptedSecretNames() {
		cmd.Println(name)
	}
	return nil
}

// promptPassword reads a line from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // fd fits in int
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal; set " + config.EnvSecretsPassword)
	}
	fmt.Fprint(os.Stderr, prompt)
	value, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(value), nil
}
