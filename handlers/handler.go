package handlers

import (
	"github.com/uptrace/bun"

	"github.com/padraicbc/chartapi/ingest"
	"github.com/padraicbc/chartapi/registry"
)

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	db     *bun.DB
	reg    *registry.Service
	orch   *ingest.Orchestrator
	JWTKey []byte
}

// New creates a Handler with the given database connection, registry
// service, ingestion orchestrator and JWT signing key.
func New(db *bun.DB, reg *registry.Service, orch *ingest.Orchestrator, jwtKey []byte) *Handler {
	return &Handler{db: db, reg: reg, orch: orch, JWTKey: jwtKey}
}
