package repository

import "errors"

var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrAddressNotFound  = errors.New("reference address not found")
	ErrProfileNotFound  = errors.New("user profile not found")
	ErrNoFieldsToUpdate = errors.New("no fields to update")
)
