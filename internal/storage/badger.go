// Package storage keeps uploaded images in an embedded BadgerDB.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/logging"
)

// Key prefixes for BadgerDB storage
const (
	objectKeyPrefix = "obj:"
	metaKeyPrefix   = "meta:"
)

// ErrObjectNotFound is returned when no object is stored under a key
var ErrObjectNotFound = errors.New("object not found")

// Config holds store settings
type Config struct {
	Path     string
	InMemory bool
}

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Key         string    `json:"key"`
	ContentType string    `json:"contentType"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Object is a stored blob with its metadata
type Object struct {
	ObjectInfo
	Data []byte
}

// Store is a BadgerDB-backed blob store
type Store struct {
	db *badger.DB
}

// Open opens or creates the store
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Msg("Object store opened")
	return &Store{db: db}, nil
}

// Close flushes and closes the store
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores data under key, replacing any previous object
func (s *Store) Put(ctx context.Context, key, contentType string, data []byte) (*ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info := ObjectInfo{
		Key:         key,
		ContentType: contentType,
		Size:        len(data),
		CreatedAt:   time.Now().UTC(),
	}
	meta, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("marshal object info: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(objectKeyPrefix+key), data); err != nil {
			return fmt.Errorf("set object: %w", err)
		}
		if err := txn.Set([]byte(metaKeyPrefix+key), meta); err != nil {
			return fmt.Errorf("set object info: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Get returns the object stored under key
func (s *Store) Get(ctx context.Context, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var obj Object
	err := s.db.View(func(txn *badger.Txn) error {
		metaItem, err := txn.Get([]byte(metaKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrObjectNotFound
		}
		if err != nil {
			return fmt.Errorf("get object info: %w", err)
		}
		if err := metaItem.Value(func(val []byte) error {
			return json.Unmarshal(val, &obj.ObjectInfo)
		}); err != nil {
			return err
		}

		item, err := txn.Get([]byte(objectKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrObjectNotFound
		}
		if err != nil {
			return fmt.Errorf("get object: %w", err)
		}
		obj.Data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

// Delete removes the object under key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, k := range []string{objectKeyPrefix + key, metaKeyPrefix + key} {
			if err := txn.Delete([]byte(k)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete object: %w", err)
			}
		}
		return nil
	})
}

// List returns the metadata of every object whose key starts with prefix
func (s *Store) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var infos []ObjectInfo
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(metaKeyPrefix + prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			var info ObjectInfo
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &info)
			}); err != nil {
				return err
			}
			infos = append(infos, info)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	return infos, nil
}

// RunGC reclaims value log space until badger reports nothing left to rewrite
func (s *Store) RunGC() {
	if s.db.Opts().InMemory {
		return
	}
	for {
		if err := s.db.RunValueLogGC(0.5); err != nil {
			if !errors.Is(err, badger.ErrNoRewrite) {
				logging.Warn().Err(err).Msg("Object store GC failed")
			}
			return
		}
	}
}
