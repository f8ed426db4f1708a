package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by CreateAt when the address is occupied.
	ErrConflict = errors.New("conflict")
	// ErrInjectedFault is returned by test stores that simulate a crash.
	ErrInjectedFault = errors.New("injected fault")
)
