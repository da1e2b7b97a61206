// Package filesystem provides the concrete implementations of types.FS:
// the real OS filesystem for production use and an afero-backed one so
// tests can run checkouts against an in-memory tree.
package filesystem
