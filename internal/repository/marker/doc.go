// Package marker persists the version marker of the managed installation.
//
// The marker is a plain-text file holding a single MAJOR.MINOR.PATCH line.
// FileRepository reads and writes it through an afero filesystem and exposes a
// Repository interface that the updater and the packager depend on.
package marker
