// Package signupsheets is the entry point for embedding the sign-up sheets
// site in another Go program. It re-exports the storage and server
// constructors while keeping their implementations internal.
package signupsheets

import (
	"context"

	"github.com/goliatone/go-signupsheets/internal/server"
	"github.com/goliatone/go-signupsheets/internal/storage"
	"github.com/goliatone/go-signupsheets/pkg/model"
)

type (
	Sheet  = model.Sheet
	Task   = model.Task
	Signup = model.Signup
	User   = model.User
)

// Store is the database layer shared by every service.
type Store = storage.Store

// StoreOption configures OpenStore.
type StoreOption = storage.Option

// Server serves the public pages, the admin screens and the JSON API.
type Server = server.Server

// ServerDeps lists the collaborators NewServer wires together.
type ServerDeps = server.Deps

// Supported database drivers.
const (
	DriverSQLite   = storage.DriverSQLite
	DriverPostgres = storage.DriverPostgres
)

// OpenStore connects to the database and applies pending schema migrations.
func OpenStore(ctx context.Context, driver, dsn string, opts ...StoreOption) (*Store, error) {
	return storage.Open(ctx, driver, dsn, opts...)
}

// NewServer builds the HTTP server. Mount Server.Handler or call Run.
func NewServer(deps ServerDeps) (*Server, error) {
	return server.New(deps)
}
