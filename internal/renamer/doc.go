// Package renamer gives ARU recordings canonical "<prefix>_<timestamp>"
// names and undoes a previous pass from its log.
//
// A pass over a directory is a toggle keyed on the rename log in that
// directory: with no log, Rename renames and writes one; with a log, Rename
// restores the logged names and consumes the log. Running it twice on an
// untouched directory therefore restores the original names. Two passes over
// the same directory must not run at the same time.
//
// Collisions are resolved with a "_dupNN" suffix before the extension
// (see naming.CollisionResolver), claimed in lexical path order.
package renamer
