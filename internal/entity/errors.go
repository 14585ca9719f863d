package entity

import "errors"

var (
	ErrLeadNotFound = errors.New("lead not found")
	ErrInvalidEnum  = errors.New("value outside allowed set")
)
