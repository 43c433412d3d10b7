package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	AppKeyPrefix  = "tk_"
	UserKeyPrefix = "uk_"
	UserIDPrefix  = "usr_"

	// KeyLength is the number of random characters after the prefix of a key
	KeyLength = 32
	// UserIDLength is the number of random characters in a generated user id
	UserIDLength = 16
	// AdminSecretLength is the length of secrets printed by `rowgate secret`
	AdminSecretLength = 48

	keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// RandomString returns n characters drawn uniformly from the key alphabet
// using crypto/rand.
func RandomString(n int) (string, error) {
	size := big.NewInt(int64(len(keyAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		buf[i] = keyAlphabet[idx.Int64()]
	}
	return string(buf), nil
}

// NewAppKey returns a fresh app key: tk_ followed by 32 random characters
func NewAppKey() (string, error) {
	return prefixed(AppKeyPrefix, KeyLength)
}

// NewUserKey returns a fresh user key: uk_ followed by 32 random characters
func NewUserKey() (string, error) {
	return prefixed(UserKeyPrefix, KeyLength)
}

// NewUserID returns a generated user id: usr_ followed by 16 random characters
func NewUserID() (string, error) {
	return prefixed(UserIDPrefix, UserIDLength)
}

func prefixed(prefix string, n int) (string, error) {
	s, err := RandomString(n)
	if err != nil {
		return "", err
	}
	return prefix + s, nil
}
