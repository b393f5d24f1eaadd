package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	serrors "github.com/PolarWolf314/stash/internal/errors"
	"github.com/PolarWolf314/stash/internal/secrets"
	bolt "go.etcd.io/bbolt"
)

var (
	secretsBucket = []byte("secrets")
	metaBucket    = []byte("meta")
)

var (
	metaKeyID        = []byte("id")
	metaKeyCipher    = []byte("cipher")
	metaKeyCreatedAt = []byte("created_at")
)

type boltStore struct {
	db *bolt.DB
}

func openBolt(path string, timeout time.Duration) (*boltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: timeout})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, serrors.ErrStoreLocked
		}
		return nil, serrors.IO("failed to open database", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(secretsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, serrors.IO("failed to create database buckets", err)
	}

	return &boltStore{db: db}, nil
}

func (s *boltStore) Backend() string { return BackendBolt }

func (s *boltStore) Put(ctx context.Context, description string, secret *secrets.Secret) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkDescription(description); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(secretsBucket).Put([]byte(description), secret.Bytes())
	})
	if err != nil {
		return serrors.IO(fmt.Sprintf("failed to add secret for %s to database", description), err)
	}
	return nil
}

func (s *boltStore) Get(ctx context.Context, description string) (*secrets.Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var secret *secrets.Secret
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(secretsBucket).Get([]byte(description))
		if raw == nil {
			return fmt.Errorf("%s: %w", description, serrors.ErrSecretNotFound)
		}
		var err error
		secret, err = loadSecret(description, raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return secret, nil
}

func (s *boltStore) Remove(ctx context.Context, description string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkDescription(description); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(secretsBucket).Delete([]byte(description))
	})
	if err != nil {
		return serrors.IO(fmt.Sprintf("failed to remove secret for %s from database", description), err)
	}
	return nil
}

func (s *boltStore) IsEmpty(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	empty := true
	err := s.db.View(func(tx *bolt.Tx) error {
		k, _ := tx.Bucket(secretsBucket).Cursor().First()
		empty = k == nil
		return nil
	})
	return empty, err
}

func (s *boltStore) Descriptions(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var descriptions []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(secretsBucket).ForEach(func(k, _ []byte) error {
			descriptions = append(descriptions, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, serrors.IO("failed to read database", err)
	}
	return descriptions, nil
}

func (s *boltStore) Meta(ctx context.Context) (*Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var meta *Meta
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		meta, err = readBoltMeta(tx.Bucket(metaBucket))
		return err
	})
	return meta, err
}

func (s *boltStore) InitMeta(ctx context.Context, meta Meta) (*Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var stored *Meta
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(metaBucket)

		existing, err := readBoltMeta(b)
		if err == nil {
			stored = existing
			return nil
		}
		if !errors.Is(err, serrors.ErrNotFound) {
			return err
		}

		if err := b.Put(metaKeyID, []byte(meta.ID)); err != nil {
			return err
		}
		if err := b.Put(metaKeyCipher, []byte(meta.Cipher)); err != nil {
			return err
		}
		if err := b.Put(metaKeyCreatedAt, []byte(meta.CreatedAt.UTC().Format(time.RFC3339Nano))); err != nil {
			return err
		}
		stored = &meta
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing vault metadata: %w", err)
	}
	return stored, nil
}

func (s *boltStore) Close() error {
	return s.db.Close()
}

func readBoltMeta(b *bolt.Bucket) (*Meta, error) {
	id := b.Get(metaKeyID)
	if id == nil {
		return nil, fmt.Errorf("vault metadata: %w", serrors.ErrNotFound)
	}

	meta := &Meta{
		ID:     string(id),
		Cipher: string(b.Get(metaKeyCipher)),
	}
	if raw := b.Get(metaKeyCreatedAt); raw != nil {
		createdAt, err := time.Parse(time.RFC3339Nano, string(raw))
		if err != nil {
			return nil, fmt.Errorf("parsing vault creation time: %w", err)
		}
		meta.CreatedAt = createdAt
	}
	return meta, nil
}
