package store

import (
	"context"
	"fmt"
	"os"
	"path"

	bolt "go.etcd.io/bbolt"

	"sealedstate/internal/domain"
	"sealedstate/internal/log"
)

// BoltFileName is the name of the file boltdb writes to.
const BoltFileName = "states.db"

// BoltStoreOpenPerm is the permission of the bolt store file on disk.
const BoltStoreOpenPerm = 0o660

var stateBucket = []byte("states")

// Bolt is a KeyedStore backed by a bbolt file. Values are stored as given;
// wrap it in Sealed to keep them encrypted at rest.
type Bolt struct {
	db  *bolt.DB
	log log.Logger
}

// NewBolt opens (or creates) the bolt store in folder.
func NewBolt(ctx context.Context, l log.Logger, folder string, opts *bolt.Options) (*Bolt, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	db, err := bolt.Open(path.Join(folder, BoltFileName), BoltStoreOpenPerm, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	// create the bucket already
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stateBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	return &Bolt{db: db, log: l.Named("boltdb")}, nil
}

// Get returns the value stored under addr.
func (b *Bolt) Get(ctx context.Context, addr domain.UserAddress) ([]byte, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}

	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(stateBucket).Get(addr[:])
		if v != nil {
			// bolt values are only valid for the life of the transaction
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	return out, out != nil, nil
}

// Put stores value under addr, overwriting any previous value.
func (b *Bolt) Put(ctx context.Context, addr domain.UserAddress, value []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stateBucket).Put(addr[:], value)
	})
	if err != nil {
		b.log.Debugw("storing state", "address", addr, "err", err)
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	return nil
}

// Len performs a scan over the bucket.
func (b *Bolt) Len(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	length := 0
	err := b.db.View(func(tx *bolt.Tx) error {
		length = tx.Bucket(stateBucket).Stats().KeyN
		return nil
	})
	return length, err
}

// Close closes the bolt file.
func (b *Bolt) Close() error {
	err := b.db.Close()
	if err != nil {
		b.log.Errorw("", "boltdb", "close", "err", err)
	}
	return err
}

var _ domain.KeyedStore = (*Bolt)(nil)
