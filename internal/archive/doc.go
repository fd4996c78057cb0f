// Package archive builds and unpacks the password-protected release archive.
//
// The container is a zip file whose entries are all encrypted with WinZip AES-256
// and deflate-compressed. The password comes from configuration, never from the
// archive itself.
package archive
