// Package resources is the server-side stand-in for browser object URLs.
//
// Uploaded sources and generated thumbnails are written to a scratch
// directory and addressed by a uuid handle. Whoever receives a handle owns it
// and must Release it; handles that are never released expire after the
// registry TTL so a dropped client cannot fill the disk.
package resources
