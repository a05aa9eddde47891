package database

import "embed"

// Migrations holds the versioned schema files shipped with the binary
//
//go:embed migrations/*.sql
var Migrations embed.FS
