// Package handlers provides HTTP request handlers for the thumbnailer API.
//
// It includes handlers for:
//   - Thumbnail batch uploads
//   - Job history lookups
//   - Serving and releasing transient resource handles
//   - API key authentication
//   - Health checks and version information
package handlers
