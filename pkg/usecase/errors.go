package usecase

import "github.com/support-lab/kotae/pkg/domain/model"

// Sentinel errors surfaced to controllers, re-exported so HTTP handlers can
// map them to status codes without importing the model package.
var (
	ErrValidation      = model.ErrValidation
	ErrNotFound        = model.ErrNotFound
	ErrProvider        = model.ErrProvider
	ErrMalformedOutput = model.ErrMalformedOutput
)
