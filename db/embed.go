// Package db embeds the SQL files shipped with the binary.
package db

import _ "embed"

// Schema holds the full DDL for the storefront tables. Every statement is
// guarded with IF NOT EXISTS, so applying it at startup is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string
