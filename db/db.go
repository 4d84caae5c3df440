// Package db embeds the Postgres schema migrations and seed files applied by
// cmd/chatdb. Files run in name order; a file's version is its name without
// the .sql extension.
package db

import (
	"embed"
	"io/fs"
)

//go:embed schema/*.sql
var schemaFiles embed.FS

//go:embed seeds/*.sql
var seedFiles embed.FS

// Schema returns the schema migrations rooted at their directory.
func Schema() fs.FS {
	return mustSub(schemaFiles, "schema")
}

// Seeds returns the seed files rooted at their directory.
func Seeds() fs.FS {
	return mustSub(seedFiles, "seeds")
}

func mustSub(fsys embed.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
