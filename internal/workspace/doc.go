// Package workspace implements the file-tree operations of an update: the
// single exclusion predicate, a pruning walk, merge copies and the backup
// snapshot.
//
// Every operation works on an afero filesystem and on paths relative to a tree
// root, so backup, replace, data restore and packaging all see exactly the same
// set of excluded entries.
package workspace
