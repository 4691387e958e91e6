package model

import "errors"

var (
	// ErrNotFound reports a missing sheet, task, sign-up or user.
	ErrNotFound = errors.New("not found")
	// ErrTaskFull reports that every spot on a task is taken.
	ErrTaskFull = errors.New("task is full")
	// ErrConflict reports a uniqueness violation such as a duplicate login.
	ErrConflict = errors.New("conflict")
)
