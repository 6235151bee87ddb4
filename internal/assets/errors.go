package assets

import "errors"

var (
	// ErrInvalidAsset covers malformed, non-image or oversized uploads.
	ErrInvalidAsset = errors.New("asset: invalid asset")
	// ErrPersistFailure means the backend could not store the asset.
	ErrPersistFailure = errors.New("asset: persist failure")
	// ErrExists is returned by a Backend when the object name is taken.
	ErrExists = errors.New("asset: object already exists")
)
