// Package raster owns the off-screen pixel surface a decoded frame is drawn
// onto and the encoders that turn it into JPEG, PNG or WebP bytes.
//
// JPEG and PNG go through disintegration/imaging. WebP needs libvips; call
// InitVips at startup or Encode returns ErrVipsUnavailable for WebP.
package raster
