package core

import (
	"context"

	"github.com/dkeye/castlink/internal/domain"
)

//go:generate mockgen -destination=mocks/mock_transport.go -package=mocks github.com/dkeye/castlink/internal/core Transport

// Request is a single POST of a JSON body.
// Headers are raw "Name: value" lines.
type Request struct {
	URL     string
	Body    []byte
	Headers []string
}

// Response carries the raw reply. Err is set only on total failure
// (network, timeout); an HTTP error status is not an Err.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    []string
	Err        error
}

// Transport executes requests synchronously, bounded by its own timeout.
type Transport interface {
	Execute(ctx context.Context, req Request) Response
}

// Query is a GraphQL request document.
type Query struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// QueryBuilder produces the four payloads the credential machine sends.
type QueryBuilder interface {
	Login(creds domain.Credentials) Query
	CreateStreamKey() Query
	GetStreamKey() Query
	ListRooms() Query
}

// SettingsStore is a flat persisted string key space.
type SettingsStore interface {
	GetString(key string) string
	SetString(key, value string)
}
