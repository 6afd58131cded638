// Package backend builds the invoice store selected by configuration.
package backend

import (
	"context"

	"invoicedash/internal/records"
)

// Backend is a store that can also be bulk loaded.
type Backend interface {
	records.Store
	records.Loader
}

type CleanupFunc func() error

// BackendResult contains the backend instance and an optional cleanup function.
type BackendResult struct {
	Backend Backend
	Type    BackendType
	Cleanup CleanupFunc
}

// Close runs Cleanup when one is set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string
	// FixturePath seeds the memory backend; empty means start empty.
	FixturePath string
}

type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
