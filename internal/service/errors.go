package service

import (
	"github.com/davortega/attar/internal/domain"
)

// Cart errors - use domain.ENOTFOUND / domain.EINVALID / domain.ECONFLICT
var (
	ErrCartNotFound     = domain.ErrCartNotFound
	ErrCartItemNotFound = domain.ErrCartItemNotFound
	ErrInvalidQuantity  = domain.ErrInvalidQuantity
	ErrCartVersion      = domain.ErrCartVersion
)

// Catalog errors - use domain.ENOTFOUND
var (
	ErrProductNotFound = domain.ErrProductNotFound
	ErrVariantNotFound = domain.ErrVariantNotFound
)

// Identity errors
var (
	ErrOwnerRequired = domain.Errorf(domain.EINVALID, "", "A user or guest identity is required")
)
