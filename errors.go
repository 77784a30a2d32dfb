package kstack

import "errors"

var (
	// ErrEmpty is returned by Pop, Front and FrontRef when the stack holds
	// no live entries.
	ErrEmpty = errors.New("kstack: empty stack")
	// ErrNoSuchKey is returned by keyed operations when the key has no live
	// values.
	ErrNoSuchKey = errors.New("kstack: no such key")
)
