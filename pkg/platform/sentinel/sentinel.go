package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and callers translate them into domain errors:
//   - ErrNotFound: no record with the requested id
//   - ErrConflict: a uniqueness constraint or a held lock rejected the write
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
