// Package auth defines API key authentication contracts.
package auth

import "context"

// APIKeyInfo describes a provisioned API key.
type APIKeyInfo struct {
	ID       int64
	TenantID int64
	KeyHash  string
	Name     string
	Scopes   []string
}

// Repository provides API key lookups by hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
