package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"media-thumbnailer/internal/database"
)

func setupTestDB(t *testing.T) *database.Database {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close database: %v", err)
		}
	})
	return db
}

var keyPattern = regexp.MustCompile(`mt_[0-9a-f]{8}_[0-9a-f]{48}`)

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf)

	for _, want := range []string{"create <name>", "list", "revoke <prefix>", "verify", "DATABASE_DIR"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("usage missing %q", want)
		}
	}
}

func TestDatabasePath(t *testing.T) {
	tests := []struct {
		dir  string
		want string
	}{
		{"", filepath.Join("/database", "thumbnailer.db")},
		{"/data", filepath.Join("/data", "thumbnailer.db")},
		{"relative/dir", filepath.Join("relative/dir", "thumbnailer.db")},
	}
	for _, tt := range tests {
		if got := databasePath(tt.dir); got != tt.want {
			t.Errorf("databasePath(%q) = %q, want %q", tt.dir, got, tt.want)
		}
	}
}

func TestSanitizeCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"create", "create"},
		{"re-voke_2", "re-voke_2"},
		{"rm -rf /", "rm_-rf__"},
		{"a\nb", "a_b"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeCommand(tt.in); got != tt.want {
			t.Errorf("sanitizeCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCreateListRevokeVerify(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var out bytes.Buffer
	if err := run(ctx, db, "create", []string{"ci", "runner"}, &out); err != nil {
		t.Fatalf("create: %v", err)
	}
	plaintext := keyPattern.FindString(out.String())
	if plaintext == "" {
		t.Fatalf("create output has no key: %q", out.String())
	}
	if !strings.Contains(out.String(), "first key") {
		t.Error("first key notice missing")
	}
	if !strings.Contains(out.String(), `"ci runner"`) {
		t.Errorf("name not joined from args: %q", out.String())
	}

	out.Reset()
	if err := verifyKey(ctx, db, plaintext, &out); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.Contains(out.String(), "valid") {
		t.Errorf("verify output = %q", out.String())
	}

	out.Reset()
	if err := run(ctx, db, "list", nil, &out); err != nil {
		t.Fatalf("list: %v", err)
	}
	prefix := plaintext[3:11]
	if !strings.Contains(out.String(), prefix) || !strings.Contains(out.String(), "ci runner") {
		t.Errorf("list output = %q", out.String())
	}
	if strings.Contains(out.String(), plaintext) {
		t.Error("list leaked the plaintext key")
	}

	out.Reset()
	if err := run(ctx, db, "revoke", []string{prefix}, &out); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !strings.Contains(out.String(), "No keys remain") {
		t.Errorf("revoke output = %q", out.String())
	}

	if err := verifyKey(ctx, db, plaintext, &out); err == nil {
		t.Error("revoked key still verifies")
	}
	if err := run(ctx, db, "revoke", []string{prefix}, &out); err == nil {
		t.Error("revoking twice succeeded")
	}
}

func TestListEmpty(t *testing.T) {
	db := setupTestDB(t)

	var out bytes.Buffer
	if err := listKeys(context.Background(), db, &out); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), "No API keys") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunUsageErrors(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		command string
		args    []string
	}{
		{"create", nil},
		{"revoke", nil},
		{"revoke", []string{"a", "b"}},
		{"destroy", nil},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		err := run(context.Background(), db, tt.command, tt.args, &out)
		if !errors.Is(err, errUsage) {
			t.Errorf("run(%q, %v) error = %v, want errUsage", tt.command, tt.args, err)
		}
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	db := setupTestDB(t)

	var out bytes.Buffer
	if err := verifyKey(context.Background(), db, "not-a-key", &out); err == nil {
		t.Error("malformed key verified")
	}
}

func TestReadLine(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"mt_abc\n", "mt_abc", false},
		{"  mt_abc  \r\n", "mt_abc", false},
		{"mt_abc", "mt_abc", false},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := readLine(strings.NewReader(tt.in))
		if (err != nil) != tt.wantErr {
			t.Errorf("readLine(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("readLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
