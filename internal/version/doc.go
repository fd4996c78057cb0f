// Package version exposes build metadata of the updater and packager binaries.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. This is the version of the tooling itself, not the version
// marker of the managed installation (see internal/domain/release).
package version
