// Package updater checks the release endpoint for a newer version and applies it.
//
// An update run reads the local version marker, asks the release source for the
// latest tag, downloads the first asset, snapshots the installation, extracts the
// encrypted archive into a scratch directory, validates it, installs every file
// with an atomic per-file swap, restores the user data directory from the
// snapshot and finally relaunches the program.
package updater
