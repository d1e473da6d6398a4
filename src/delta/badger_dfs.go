package delta

import (
	"context"

	"github.com/dgraph-io/badger"
	"github.com/mosaicnetworks/ballot/src/common"
	"github.com/mosaicnetworks/ballot/src/crypto"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const deltaPrefix = "delta"

// BadgerDfs is a Dfs persisted in a Badger database. Values are stored under
// their own hash.
type BadgerDfs struct {
	db     *badger.DB
	path   string
	hasher crypto.Hasher
}

// NewBadgerDfs opens an existing database or creates a new one if nothing is
// found in path.
func NewBadgerDfs(path string, hasher crypto.Hasher, logger *logrus.Entry) (*BadgerDfs, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true)

	if logger != nil {
		opts = opts.WithLogger(logger.WithField("ns", "badger"))
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening badger database in %s", path)
	}

	return &BadgerDfs{
		db:     handle,
		path:   path,
		hasher: hasher,
	}, nil
}

func deltaKey(hash []byte) []byte {
	return append([]byte(deltaPrefix+"_"), hash...)
}

// Read implements the Dfs interface.
func (s *BadgerDfs) Read(ctx context.Context, hash []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(deltaKey(hash))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, mapError(err, "Dfs", common.EncodeToString(hash))
	}

	return data, nil
}

// Write implements the Dfs interface. Writing the same data twice is a no-op
// that returns the same address.
func (s *BadgerDfs) Write(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := s.hasher.Hash(data)

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(deltaKey(hash), data); err != nil {
		return nil, errors.Wrap(err, "writing delta")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing delta")
	}

	return hash, nil
}

// Close closes the underlying Badger database.
func (s *BadgerDfs) Close() error {
	return s.db.Close()
}

// Path returns the full path of the underlying Badger database directory.
func (s *BadgerDfs) Path() string {
	return s.path
}

func isDBKeyNotFound(err error) bool {
	return err != nil && err.Error() == badger.ErrKeyNotFound.Error()
}

func mapError(err error, name, key string) error {
	if isDBKeyNotFound(err) {
		return common.NewStoreErr(name, common.KeyNotFound, key)
	}
	return errors.Wrapf(err, "%s %s", name, key)
}
