package caddysalmon

import (
	caddyadapter "github.com/philiph/caddy-salmon/internal/adapters/driving/caddy"
)

// Re-export Config and related types from adapter
type Config = caddyadapter.Config
type AuthorKey = caddyadapter.AuthorKey

var (
	ParseDuration    = caddyadapter.ParseDuration
	NewSalmonForTest = caddyadapter.NewSalmonForTest
)

const (
	DefaultPathPrefix  = caddyadapter.DefaultPathPrefix
	DefaultMaxBodySize = caddyadapter.DefaultMaxBodySize
)
