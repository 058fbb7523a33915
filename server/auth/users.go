package auth

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/crypto/bcrypt"
)

// Users maps a username to the bcrypt hash of its password
type Users map[string]string

// ParseUsers parses a comma-separated list of name=hash pairs
// (e.g. "alice=$2a$10$...,bob=$2a$10$...").
func ParseUsers(list string) (Users, error) {
	users := make(Users)
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, hash, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid user format: %s (expected NAME=BCRYPT_HASH)", entry)
		}
		if err := users.add(name, hash); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// LoadUsersFile reads users from an htpasswd style file: one name:hash pair
// per line, empty lines and lines starting with # are ignored.
func LoadUsersFile(fs afero.Fs, path string) (Users, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file %s: %w", path, err)
	}

	users := make(Users)
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, hash, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%s:%d: invalid line (expected NAME:BCRYPT_HASH)", path, lineNo)
		}
		if err := users.add(name, hash); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users file %s: %w", path, err)
	}
	return users, nil
}

// Merge adds all users of other, returning an error on duplicate names
func (u Users) Merge(other Users) error {
	for name, hash := range other {
		if err := u.add(name, hash); err != nil {
			return err
		}
	}
	return nil
}

// add validates and inserts a single user
func (u Users) add(name, hash string) error {
	name = strings.TrimSpace(name)
	hash = strings.TrimSpace(hash)
	if name == "" {
		return fmt.Errorf("user name must not be empty")
	}
	if strings.ContainsAny(name, ":") {
		return fmt.Errorf("user name %q must not contain ':'", name)
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return fmt.Errorf("user %s: not a bcrypt hash: %w", name, err)
	}
	if _, exists := u[name]; exists {
		return fmt.Errorf("user %s is defined twice", name)
	}
	u[name] = hash
	return nil
}

// HashPassword returns the bcrypt hash of password with the given cost
// (0 = bcrypt.DefaultCost).
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
