package realtime

import "embed"

// MigrationFiles contains the SQL migration files embedded in the binary.
// Apply them with your preferred migration tool (goose, golang-migrate, atlas)
// before using the Relica archive adapter.
//
// Example with goose:
//
//	import (
//	    "github.com/pressly/goose/v3"
//	    "github.com/coregx/realtime"
//	)
//
//	goose.SetBaseFS(realtime.MigrationFiles)
//	if err := goose.Up(db, "migrations"); err != nil {
//	    log.Fatal(err)
//	}
//
//go:embed migrations/*.sql
var MigrationFiles embed.FS
