package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrVariantMismatch reports an update aimed at the other flow's
	// configuration. A caller bug, never a user-facing condition.
	ErrVariantMismatch = errors.New("update does not match configuration flow")

	// ErrSlotNotFound means the loaded 3D asset has no material with the
	// requested name. The mutation is skipped; siblings proceed.
	ErrSlotNotFound = errors.New("material slot not found")

	ErrViewerNotReady = errors.New("viewer model not loaded")

	ErrNothingToSubmit = errors.New("no line items to submit")
)
