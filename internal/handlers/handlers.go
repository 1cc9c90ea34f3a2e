package handlers

import (
	"media-thumbnailer/internal/database"
	"media-thumbnailer/internal/memory"
	"media-thumbnailer/internal/resources"
	"media-thumbnailer/internal/startup"
	"media-thumbnailer/internal/thumbnail"

	"github.com/patrickmn/go-cache"
)

type Handlers struct {
	db            *database.Database
	generator     *thumbnail.Generator
	registry      *resources.Registry
	monitor       *memory.Monitor
	maxUploadSize int64
	authRequired  bool
	keyCache      *cache.Cache
}

// New wires the handlers. monitor may be nil, in which case every batch is admitted.
func New(db *database.Database, gen *thumbnail.Generator, reg *resources.Registry, monitor *memory.Monitor, config *startup.Config) *Handlers {
	return &Handlers{
		db:            db,
		generator:     gen,
		registry:      reg,
		monitor:       monitor,
		maxUploadSize: config.MaxUploadSize,
		authRequired:  config.AuthRequired,
		keyCache:      newKeyCache(),
	}
}
