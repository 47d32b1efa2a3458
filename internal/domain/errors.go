package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrUnknownCurrency       = errors.New("unknown currency code")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrProviderFailure       = errors.New("rate provider failure")
	ErrAllProvidersExhausted = errors.New("all rate providers failed")
	ErrDuplicateFavorite     = errors.New("already in favorites")
	ErrFavoritesFull         = errors.New("favorites limit reached")
	ErrPersistence           = errors.New("persistence failure")
	ErrUnknownSetting        = errors.New("unknown setting")
	ErrInvalidSetting        = errors.New("invalid setting value")
	ErrInvalidImport         = errors.New("invalid import document")
)
