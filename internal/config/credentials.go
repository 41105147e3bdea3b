package config

import (
	stderrors "errors"

	"github.com/zalando/go-keyring"
)

// KeyringService is the OS keyring service holding warehouse passwords
const KeyringService = "vetbiz"

// SecretStore looks up passwords that are not in the environment
type SecretStore interface {
	Password(account string) (string, error)
}

// Keyring stores passwords in the OS keyring, keyed by database user.
// Accounts are namespaced per source so both sources can share a user.
type Keyring struct{}

func keyringAccount(source Source, user string) string {
	return source.Name + ":" + user
}

// Password returns the stored password, or "" when none is stored
func (Keyring) Password(account string) (string, error) {
	secret, err := keyring.Get(KeyringService, account)
	if stderrors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return secret, err
}

// StorePassword saves the password for user of source
func StorePassword(source Source, user, password string) error {
	return keyring.Set(KeyringService, keyringAccount(source, user), password)
}

// DeletePassword removes a stored password. Missing entries are not an error.
func DeletePassword(source Source, user string) error {
	err := keyring.Delete(KeyringService, keyringAccount(source, user))
	if stderrors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
