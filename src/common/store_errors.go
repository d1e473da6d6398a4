package common

import "fmt"

// StoreErrType enumerates the failure modes of caches and stores.
type StoreErrType uint32

const (
	// KeyNotFound is returned when an item is absent from a cache or store.
	KeyNotFound StoreErrType = iota
	// KeyAlreadyExists is returned when inserting an item twice.
	KeyAlreadyExists
	// Empty is returned when a store has nothing to offer.
	Empty
	// Unavailable is returned when a backing store cannot be reached.
	Unavailable
)

// StoreErr ...
type StoreErr struct {
	dataType string
	errType  StoreErrType
	key      string
}

// NewStoreErr ...
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

// Error ...
func (e StoreErr) Error() string {
	m := ""
	switch e.errType {
	case KeyNotFound:
		m = "Not Found"
	case KeyAlreadyExists:
		m = "Key Already Exists"
	case Empty:
		m = "Empty"
	case Unavailable:
		m = "Unavailable"
	}

	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, m)
}

// IsStore checks that an error is of type StoreErr and that its code matches
// the provided StoreErr code.
func IsStore(err error, t StoreErrType) bool {
	storeErr, ok := err.(StoreErr)
	return ok && storeErr.errType == t
}
