package kvstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	pfirestore "github.com/hanko-field/storefront/internal/platform/firestore"
)

// FirestoreStore keeps one document per key. Keys may contain '/', so document ids are the key hash
// and the key itself is stored in a field.
type FirestoreStore struct {
	provider *pfirestore.Provider
	now      func() time.Time
}

type kvDocument struct {
	Key       string    `firestore:"key"`
	Value     []byte    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// NewFirestoreStore binds the store to provider's configured collection.
func NewFirestoreStore(provider *pfirestore.Provider) (*FirestoreStore, error) {
	if provider == nil {
		return nil, errors.New("kvstore: firestore provider is required")
	}
	if provider.Collection() == "" {
		return nil, errors.New("kvstore: firestore collection is required")
	}
	return &FirestoreStore{provider: provider, now: time.Now}, nil
}

func documentID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (s *FirestoreStore) doc(ctx context.Context, key string) (*firestore.DocumentRef, error) {
	docs, err := s.provider.Documents(ctx)
	if err != nil {
		return nil, unavailable("client", key, err)
	}
	return docs.Doc(documentID(key)), nil
}

// Get implements Store.
func (s *FirestoreStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey("get", key); err != nil {
		return nil, err
	}
	ref, err := s.doc(ctx, key)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		if pfirestore.IsNotFound(err) {
			return nil, notFound("get", key)
		}
		return nil, s.wrap("get", key, err)
	}
	var doc kvDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, &Error{Op: "get", Key: key, Err: err}
	}
	return doc.Value, nil
}

// Set implements Store.
func (s *FirestoreStore) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey("set", key); err != nil {
		return err
	}
	ref, err := s.doc(ctx, key)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, s.document(key, value)); err != nil {
		return s.wrap("set", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *FirestoreStore) Delete(ctx context.Context, key string) error {
	if err := validateKey("delete", key); err != nil {
		return err
	}
	ref, err := s.doc(ctx, key)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil && !pfirestore.IsNotFound(err) {
		return s.wrap("delete", key, err)
	}
	return nil
}

// Update implements Store inside a Firestore transaction.
func (s *FirestoreStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := validateKey("update", key); err != nil {
		return err
	}
	ref, err := s.doc(ctx, key)
	if err != nil {
		return err
	}
	err = s.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current []byte
		exists := true
		snap, err := tx.Get(ref)
		switch {
		case pfirestore.IsNotFound(err):
			exists = false
		case err != nil:
			return err
		default:
			var doc kvDocument
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
			current = doc.Value
		}

		next, write, err := apply(fn, current, exists)
		if err != nil || !write {
			return err
		}
		if next == nil {
			return tx.Delete(ref)
		}
		return tx.Set(ref, s.document(key, next))
	})
	if err != nil {
		return s.wrap("update", key, err)
	}
	return nil
}

// Keys implements Scanner using a range query on the key field.
func (s *FirestoreStore) Keys(ctx context.Context, prefix string, limit int) ([]string, error) {
	docs, err := s.provider.Documents(ctx)
	if err != nil {
		return nil, unavailable("keys", prefix, err)
	}
	query := docs.
		Where("key", ">=", prefix).
		Where("key", "<", prefix+"\uf8ff").
		OrderBy("key", firestore.Asc)
	if limit > 0 {
		query = query.Limit(limit)
	}
	iter := query.Documents(ctx)
	defer iter.Stop()

	keys := make([]string, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, s.wrap("keys", prefix, err)
		}
		var doc kvDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, &Error{Op: "keys", Key: prefix, Err: err}
		}
		keys = append(keys, doc.Key)
	}
	return keys, nil
}

// Close releases the provider's client.
func (s *FirestoreStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.provider.Close(ctx)
}

func (s *FirestoreStore) document(key string, value []byte) kvDocument {
	if value == nil {
		value = []byte{}
	}
	return kvDocument{Key: key, Value: value, UpdatedAt: s.now().UTC()}
}

func (s *FirestoreStore) wrap(op, key string, err error) error {
	wrapped := pfirestore.WrapError("kvstore."+op, err)
	var fsErr *pfirestore.Error
	if !errors.As(wrapped, &fsErr) {
		return wrapped
	}
	return &Error{
		Op:          op,
		Key:         key,
		Err:         wrapped,
		notFound:    fsErr.IsNotFound(),
		conflict:    fsErr.IsConflict(),
		unavailable: fsErr.IsUnavailable(),
	}
}
