// Package relaunch restarts the running program so freshly installed files take effect.
//
// The capability is an interface so the update flow can be exercised in tests
// without replacing the test binary. On unix the process image is replaced in
// place; on windows a child is spawned with the same arguments and the parent exits.
package relaunch
