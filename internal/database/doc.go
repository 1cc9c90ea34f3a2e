// Package database provides SQLite storage for the thumbnailer.
//
// It handles storage and retrieval of:
//   - Thumbnail jobs and the handles they produced
//   - API keys (bcrypt hashed, looked up by prefix)
//   - Service metadata such as the last retention run
//
// The database uses WAL mode for improved concurrent read performance
// and includes automatic schema initialization.
package database
