// Package packager builds a release for distribution.
//
// It bumps the version marker of the project, packs every non-excluded file into
// an AES-encrypted archive and writes a YAML manifest next to it. The archive is
// then published by hand as the first asset of a GitHub release.
package packager
