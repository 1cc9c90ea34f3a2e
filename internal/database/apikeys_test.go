package database

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCreateAndValidateAPIKey(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	if db.HasAPIKeys(ctx) {
		t.Fatal("expected no keys initially")
	}

	plaintext, key, err := db.CreateAPIKey(ctx, "ci")
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	if !strings.HasPrefix(plaintext, APIKeyPrefix+key.Prefix+"_") {
		t.Errorf("plaintext %q does not embed prefix %q", plaintext, key.Prefix)
	}
	if !db.HasAPIKeys(ctx) {
		t.Error("HasAPIKeys = false after create")
	}

	got, err := db.ValidateAPIKey(ctx, plaintext)
	if err != nil {
		t.Fatalf("ValidateAPIKey: %v", err)
	}
	if got.Name != "ci" || got.Prefix != key.Prefix {
		t.Errorf("validated key = %+v", got)
	}

	keys, err := db.ListAPIKeys(ctx)
	if err != nil || len(keys) != 1 {
		t.Fatalf("ListAPIKeys = %v, %v", keys, err)
	}
	if keys[0].LastUsedAt == nil {
		t.Error("LastUsedAt not set after validation")
	}
	if keys[0].KeyHash != "" {
		t.Error("ListAPIKeys exposes hashes")
	}
}

func TestValidateAPIKeyRejects(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	plaintext, _, err := db.CreateAPIKey(ctx, "ci")
	if err != nil {
		t.Fatal(err)
	}
	tampered := plaintext[:len(plaintext)-1] + map[bool]string{true: "1", false: "0"}[strings.HasSuffix(plaintext, "0")]

	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"no prefix", strings.TrimPrefix(plaintext, APIKeyPrefix)},
		{"short", APIKeyPrefix + "abcd_1234"},
		{"not hex", APIKeyPrefix + "zzzzzzzz_" + strings.Repeat("x", secretBytes*2)},
		{"unknown prefix", APIKeyPrefix + "00000000_" + strings.Repeat("0", secretBytes*2)},
		{"wrong secret", tampered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := db.ValidateAPIKey(ctx, tt.key); !errors.Is(err, ErrInvalidAPIKey) {
				t.Errorf("ValidateAPIKey(%q) = %v, want ErrInvalidAPIKey", tt.key, err)
			}
		})
	}
}

func TestCreateAPIKeyRequiresName(t *testing.T) {
	db, _ := setupTestDB(t)
	if _, _, err := db.CreateAPIKey(context.Background(), "  "); err == nil {
		t.Error("expected error for blank name")
	}
}

func TestRevokeAPIKey(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	first, k1, err := db.CreateAPIKey(ctx, "first")
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := db.CreateAPIKey(ctx, "second")
	if err != nil {
		t.Fatal(err)
	}

	if err := db.RevokeAPIKey(ctx, k1.Prefix); err != nil {
		t.Fatalf("RevokeAPIKey: %v", err)
	}
	if _, err := db.ValidateAPIKey(ctx, first); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("revoked key still valid: %v", err)
	}
	if err := db.RevokeAPIKey(ctx, k1.Prefix); !errors.Is(err, ErrNotFound) {
		t.Errorf("second revoke = %v, want ErrNotFound", err)
	}

	if err := db.RevokeAPIKey(ctx, second); err != nil {
		t.Fatalf("revoke by full key: %v", err)
	}
	if db.HasAPIKeys(ctx) {
		t.Error("keys remain after revoking all")
	}
}

func TestParseAPIKey(t *testing.T) {
	prefix, ok := parseAPIKey(APIKeyPrefix + "deadbeef_" + strings.Repeat("ab", secretBytes))
	if !ok || prefix != "deadbeef" {
		t.Errorf("parseAPIKey = %q, %v", prefix, ok)
	}
	if _, ok := parseAPIKey("Bearer xyz"); ok {
		t.Error("malformed key accepted")
	}
}
