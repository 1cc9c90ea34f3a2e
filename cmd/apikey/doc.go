// Command apikey manages the API keys accepted by the thumbnailer server.
//
// Usage:
//
//	apikey <command> [arguments]
//
// Commands:
//
//	create <name>   Generate a new key. The plaintext is printed once and
//	                cannot be recovered; only a bcrypt hash is stored.
//
//	list            Show every key with its prefix, creation time and last use.
//
//	revoke <prefix> Delete a key by its prefix (or the full key).
//
//	verify          Read a key from the terminal without echo and report
//	                whether the server would accept it.
//
// Environment:
//
//	DATABASE_DIR - Path to database directory (default: /database)
//
// Creating the first key switches the server's /api routes from open to
// authenticated. A running server may accept a revoked key for up to a minute.
package main
