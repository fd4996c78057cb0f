// Package release holds the version-marker semantics shared by the updater and
// the packager: strict MAJOR.MINOR.PATCH parsing, bumping, tag comparison and
// the descriptor of a remote release.
package release
