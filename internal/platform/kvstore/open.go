package kvstore

import (
	"context"
	"fmt"

	"github.com/hanko-field/storefront/internal/platform/config"
	pfirestore "github.com/hanko-field/storefront/internal/platform/firestore"
)

// Open builds the backend selected by cfg.Store.Backend.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case "", config.StoreBackendMemory:
		return NewMemoryStore(), nil
	case config.StoreBackendSQLite:
		return OpenSQLite(ctx, cfg.Store.SQLitePath)
	case config.StoreBackendFirestore:
		return NewFirestoreStore(pfirestore.NewProvider(cfg.Firestore))
	default:
		return nil, fmt.Errorf("kvstore: unknown backend %q", cfg.Store.Backend)
	}
}
