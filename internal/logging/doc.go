// Package logging provides the leveled, printf-style logger used across the
// thumbnailer.
//
// Levels are DEBUG, INFO, WARN and ERROR. The level comes from the DEBUG
// environment variable (any truthy value forces debug) or LOG_LEVEL, and can
// be overridden at runtime with SetLevel. Components that want a name on each
// line use For:
//
//	var log = logging.For("ffmpeg")
//	log.Debug("probing %s", path)
package logging
