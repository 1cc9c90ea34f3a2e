package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"media-thumbnailer/internal/database"

	"golang.org/x/term"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second
	// Default database directory path
	defaultDatabaseDir = "/database"
	databaseFile       = "thumbnailer.db"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	command := os.Args[1]

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	db, err := database.New(ctx, databasePath(os.Getenv("DATABASE_DIR")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATABASE_DIR is set correctly (current: %s)\n", os.Getenv("DATABASE_DIR"))
		os.Exit(1)
	}

	err = run(ctx, db, command, os.Args[2:], os.Stdout)

	if closeErr := db.Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", closeErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid usage")

func databasePath(dir string) string {
	if dir == "" {
		dir = defaultDatabaseDir
	}
	return filepath.Join(dir, databaseFile)
}

// run dispatches one command. verify reads the key from stdin.
func run(ctx context.Context, db *database.Database, command string, args []string, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	switch command {
	case "create":
		if len(args) == 0 {
			return fmt.Errorf("%w: create needs a key name", errUsage)
		}
		return createKey(ctx, db, strings.Join(args, " "), out)
	case "list":
		return listKeys(ctx, db, out)
	case "revoke":
		if len(args) != 1 {
			return fmt.Errorf("%w: revoke needs exactly one prefix", errUsage)
		}
		return revokeKey(ctx, db, args[0], out)
	case "verify":
		key, err := readKey(os.Stdin, out)
		if err != nil {
			return fmt.Errorf("reading key: %w", err)
		}
		return verifyKey(ctx, db, key, out)
	default:
		return fmt.Errorf("%w: unknown command %s", errUsage, sanitizeCommand(command))
	}
}

// sanitizeCommand replaces anything outside [a-zA-Z0-9_-] with '_' so user
// input can be echoed safely.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Thumbnailer API Key Management")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: apikey <command> [arguments]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  create <name>    - Generate a new API key")
	fmt.Fprintln(w, "  list             - List API keys")
	fmt.Fprintln(w, "  revoke <prefix>  - Revoke an API key")
	fmt.Fprintln(w, "  verify           - Check a key read from the terminal")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  DATABASE_DIR - Path to database directory (default: %s)\n", defaultDatabaseDir)
}

func createKey(ctx context.Context, db *database.Database, name string, out io.Writer) error {
	first := !db.HasAPIKeys(ctx)

	plaintext, key, err := db.CreateAPIKey(ctx, name)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Created API key %q (prefix %s)\n", key.Name, key.Prefix)
	fmt.Fprintln(out, "")
	fmt.Fprintf(out, "  %s\n", plaintext)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Store it now; it cannot be shown again.")
	if first {
		fmt.Fprintln(out, "This is the first key: the API now requires authentication.")
	}
	return nil
}

func listKeys(ctx context.Context, db *database.Database, out io.Writer) error {
	keys, err := db.ListAPIKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Fprintln(out, "No API keys configured (the API is open unless AUTH_REQUIRED=true)")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PREFIX\tNAME\tCREATED\tLAST USED")
	for _, k := range keys {
		lastUsed := "never"
		if k.LastUsedAt != nil {
			lastUsed = k.LastUsedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.Prefix, k.Name, k.CreatedAt.Local().Format(time.DateTime), lastUsed)
	}
	return tw.Flush()
}

func revokeKey(ctx context.Context, db *database.Database, prefix string, out io.Writer) error {
	err := db.RevokeAPIKey(ctx, prefix)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("no API key with prefix %s", sanitizeCommand(prefix))
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Revoked API key %s\n", sanitizeCommand(prefix))
	if !db.HasAPIKeys(ctx) {
		fmt.Fprintln(out, "No keys remain: the API is open unless AUTH_REQUIRED=true.")
	}
	return nil
}

func verifyKey(ctx context.Context, db *database.Database, plaintext string, out io.Writer) error {
	key, err := db.ValidateAPIKey(ctx, plaintext)
	if errors.Is(err, database.ErrInvalidAPIKey) {
		return errors.New("key is not valid")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Key is valid: %q (prefix %s)\n", key.Name, key.Prefix)
	return nil
}

// readKey reads without echo from a terminal, or one line from piped input.
func readKey(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(prompt, "API key: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
