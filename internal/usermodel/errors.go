package usermodel

import "errors"

// ErrUserNotFound is returned by Build when the user does not exist.
var ErrUserNotFound = errors.New("user not found")
