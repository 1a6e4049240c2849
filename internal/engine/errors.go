package engine

import "errors"

var (
	// ErrInsufficientNutrients is returned when a purchase costs more than is available.
	ErrInsufficientNutrients = errors.New("insufficient nutrients")
	// ErrGeneratorIndex is returned for an index outside the generator catalog.
	ErrGeneratorIndex = errors.New("generator index out of range")
	// ErrInvalidAmount is returned for negative counts and non-positive quantities.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrSaveBlocked is returned by Save after a failed Load, so the unread save is not overwritten.
	ErrSaveBlocked = errors.New("save blocked until the game loads")
)
