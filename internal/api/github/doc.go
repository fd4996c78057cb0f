// Package github is a minimal GitHub Releases client: it resolves the latest
// release of a repository to a release.Descriptor and streams its first asset
// to disk. Every request carries a timeout and is retried with exponential
// backoff on transient failures.
package github
