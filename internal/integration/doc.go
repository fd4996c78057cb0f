// Package integration holds end-to-end tests running the packager, a fake GitHub
// release endpoint and the updater against real directories.
package integration
