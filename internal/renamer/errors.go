package renamer

import "github.com/pkg/errors"

// Sentinel errors carried by the issues a pass reports. None of them stop a
// pass; they are collected in the run context.
var (
	ErrNameCollision    = errors.New("name collision")
	ErrFileAccessDenied = errors.New("file access denied")
	ErrCorruptLog       = errors.New("corrupt or partial rename log")
	ErrNotUndone        = errors.New("rename not undone")
)
