package identity

import (
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// parseGroups decodes the member_of column (a JSON array of group names).
func parseGroups(v any) []string {
	s, ok := v.(string)
	if !ok || s == "" {
		return []string{}
	}
	var groups []string
	if err := json.Unmarshal([]byte(s), &groups); err != nil {
		return []string{}
	}
	return groups
}

// boolValue reads a boolean column across dialects (SQLite stores 0/1).
func boolValue(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return false
	}
}
