// Credentials live in the operating system's native keyring (Linux: Secret
// Service, macOS: Keychain, Windows: Credential Manager) so they never sit
// in plaintext config.

package bot

import "github.com/zalando/go-keyring"

const (
	// keyringService is the service name used in the OS keyring.
	keyringService = "streambot"

	keyringAPIKey       = "api_key"
	keyringAPISecret    = "api_secret"
	keyringAccessToken  = "access_token"
	keyringAccessSecret = "access_secret"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring retrieves a secret from the OS keyring. Returns empty string
// if not found.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteKeyring removes a secret from the OS keyring.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// KeyringAvailable checks if the OS keyring is accessible.
func KeyringAvailable() bool {
	testKey := "__streambot_test__"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, testKey)
	return true
}
