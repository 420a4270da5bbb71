package errs

import (
	"errors"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrOutOfStock       = errors.New("the book is out of stock")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrAlreadyReturned  = errors.New("this borrowing has already been returned")
	ErrPermissionDenied = errors.New("you do not have permission to return this borrowing")
	ErrConflict         = errors.New("record is referenced by borrowings")
)
