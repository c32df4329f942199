package domain

import "errors"

var (
	ErrInvalidTitle         = errors.New("title cannot be empty")
	ErrDuplicateColumnTitle = errors.New("a column with this title already exists")
	ErrColumnNotFound       = errors.New("column not found")
	ErrCardNotFound         = errors.New("card not found")
	ErrInvalidTheme         = errors.New("invalid theme")
)
