package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name under which provider credentials are
// stored in the OS keyring.
const KeyringService = "harvest"

// Credential resolves a provider credential: environment variable first,
// then the OS keyring. Returns empty when neither is set.
// name is the keyring key, e.g. "adzuna_app_key"; the environment variable
// is the uppercased HARVEST_ prefix form (HARVEST_ADZUNA_APP_KEY).
func Credential(name string) string {
	env := "HARVEST_" + strings.ToUpper(name)
	if v := os.Getenv(env); v != "" {
		return v
	}
	if v, err := keyring.Get(KeyringService, name); err == nil {
		return v
	}
	return ""
}

// SetCredential stores a credential in the OS keyring.
func SetCredential(name, value string) error {
	if err := keyring.Set(KeyringService, name, value); err != nil {
		return fmt.Errorf("store credential %q in keyring: %w", name, err)
	}
	return nil
}

// DeleteCredential removes a credential from the OS keyring.
func DeleteCredential(name string) error {
	if err := keyring.Delete(KeyringService, name); err != nil {
		return fmt.Errorf("delete credential %q from keyring: %w", name, err)
	}
	return nil
}
