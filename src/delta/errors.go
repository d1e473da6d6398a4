package delta

import "errors"

// ErrMalformed is returned when a candidate, vote or delta fails its
// structural checks.
var ErrMalformed = errors.New("malformed input")
