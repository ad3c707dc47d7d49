// Package catalog persists run manifests to a SQLite database so the
// data API can list what each cleaning run read, wrote and skipped.
package catalog
