package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"media-thumbnailer/internal/logging"
)

// APIKeyPrefix starts every generated key.
const APIKeyPrefix = "mt_"

const (
	prefixBytes = 4
	secretBytes = 24
)

// ErrInvalidAPIKey is returned for malformed, unknown or revoked keys.
var ErrInvalidAPIKey = errors.New("invalid API key")

// CreateAPIKey generates a key named name and stores its bcrypt hash. The
// plaintext is returned once and cannot be recovered later.
func (d *Database) CreateAPIKey(ctx context.Context, name string) (string, *APIKey, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_api_key", start, err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		err = errors.New("key name is required")
		return "", nil, err
	}

	buf := make([]byte, prefixBytes+secretBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("failed to generate key: %w", err)
	}
	prefix := hex.EncodeToString(buf[:prefixBytes])
	plaintext := APIKeyPrefix + prefix + "_" + hex.EncodeToString(buf[prefixBytes:])

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash key: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		"INSERT INTO api_keys (name, prefix, key_hash) VALUES (?, ?, ?)",
		name, prefix, string(hash))
	if err != nil {
		return "", nil, fmt.Errorf("failed to store key: %w", err)
	}

	id, _ := result.LastInsertId()
	logging.Info("Created API key %q (prefix %s)", name, prefix)
	return plaintext, &APIKey{ID: id, Name: name, Prefix: prefix, KeyHash: string(hash), CreatedAt: time.Now()}, nil
}

// parseAPIKey returns the lookup prefix of a well-formed key.
func parseAPIKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, APIKeyPrefix)
	if !ok {
		return "", false
	}
	prefix, secret, ok := strings.Cut(rest, "_")
	if !ok || len(prefix) != prefixBytes*2 || len(secret) != secretBytes*2 {
		return "", false
	}
	if _, err := hex.DecodeString(prefix + secret); err != nil {
		return "", false
	}
	return prefix, true
}

// ValidateAPIKey checks key and returns the stored record.
func (d *Database) ValidateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("validate_api_key", start, err) }()

	prefix, ok := parseAPIKey(key)
	if !ok {
		return nil, ErrInvalidAPIKey
	}

	d.mu.RLock()
	k, err := d.getAPIKey(ctx, prefix)
	d.mu.RUnlock()
	if errors.Is(err, ErrNotFound) {
		err = nil
		return nil, ErrInvalidAPIKey
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(k.KeyHash), []byte(key)) != nil {
		return nil, ErrInvalidAPIKey
	}

	d.touchAPIKey(ctx, k.ID)
	return k, nil
}

func (d *Database) getAPIKey(ctx context.Context, prefix string) (*APIKey, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var k APIKey
	var created int64
	var lastUsed sql.NullInt64
	err := d.db.QueryRowContext(ctx,
		"SELECT id, name, prefix, key_hash, created_at, last_used_at FROM api_keys WHERE prefix = ?",
		prefix).Scan(&k.ID, &k.Name, &k.Prefix, &k.KeyHash, &created, &lastUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	k.CreatedAt = time.Unix(created, 0)
	if lastUsed.Valid {
		t := time.Unix(lastUsed.Int64, 0)
		k.LastUsedAt = &t
	}
	return &k, nil
}

func (d *Database) touchAPIKey(ctx context.Context, id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := d.db.ExecContext(ctx,
		"UPDATE api_keys SET last_used_at = strftime('%s', 'now') WHERE id = ?", id); err != nil {
		logging.Warn("failed to update API key last use: %v", err)
	}
}

// ListAPIKeys returns every key, oldest first.
func (d *Database) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_api_keys", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT id, name, prefix, created_at, last_used_at FROM api_keys ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []APIKey{}
	for rows.Next() {
		var k APIKey
		var created int64
		var lastUsed sql.NullInt64
		if err = rows.Scan(&k.ID, &k.Name, &k.Prefix, &created, &lastUsed); err != nil {
			return nil, err
		}
		k.CreatedAt = time.Unix(created, 0)
		if lastUsed.Valid {
			t := time.Unix(lastUsed.Int64, 0)
			k.LastUsedAt = &t
		}
		keys = append(keys, k)
	}
	err = rows.Err()
	return keys, err
}

// RevokeAPIKey deletes the key with prefix. A full key is accepted too.
func (d *Database) RevokeAPIKey(ctx context.Context, prefix string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("revoke_api_key", start, err) }()

	if p, ok := parseAPIKey(prefix); ok {
		prefix = p
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, "DELETE FROM api_keys WHERE prefix = ?", prefix)
	if err != nil {
		return err
	}
	return expectRow(result)
}

// HasAPIKeys reports whether any key exists.
func (d *Database) HasAPIKeys(ctx context.Context) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM api_keys").Scan(&count); err != nil {
		logging.Warn("failed to count API keys: %v", err)
		return false
	}
	return count > 0
}
