package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jobhive/jobhive/internal/models"
)

var errDatabaseStoreNil = errors.New("cache: database store not initialised")

// DatabaseStore implements Store on the primary SQL database for deployments without Redis.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: time.Now}
}

// IncrementWithTTL increments the counter under a row lock. An expired counter restarts at one.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errDatabaseStoreNil
	}
	if window <= 0 {
		window = time.Minute
	}

	now := s.now()
	var (
		count  int64
		expiry time.Time
	)

	err := s.db.WithContext(ensureContext(ctx)).Transaction(func(tx *gorm.DB) error {
		var entry models.CacheEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where(keyEquals(key)).Take(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			count = 1
			expiry = now.Add(window)
			return tx.Create(&models.CacheEntry{
				Key:       key,
				Value:     []byte("1"),
				ExpiresAt: expiry,
			}).Error
		}
		if err != nil {
			return err
		}

		if entry.ExpiresAt.After(now) {
			current, _ := strconv.ParseInt(string(entry.Value), 10, 64)
			count = current + 1
			expiry = entry.ExpiresAt
		} else {
			count = 1
			expiry = now.Add(window)
		}

		return tx.Model(&models.CacheEntry{}).Where(keyEquals(key)).Updates(map[string]any{
			"value":      []byte(strconv.FormatInt(count, 10)),
			"expires_at": expiry,
			"updated_at": now,
		}).Error
	})
	if err != nil {
		return 0, 0, err
	}

	return count, expiry.Sub(now), nil
}

// Set upserts the value for a given key. A non-positive ttl never expires.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil {
		return errDatabaseStoreNil
	}

	var expiry time.Time
	if ttl > 0 {
		expiry = s.now().Add(ttl)
	}

	return s.db.WithContext(ensureContext(ctx)).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).
		Create(&models.CacheEntry{Key: key, Value: value, ExpiresAt: expiry}).Error
}

// Get retrieves a value by key, deleting it when expired.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, errDatabaseStoreNil
	}
	ctx = ensureContext(ctx)

	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Where(keyEquals(key)).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if !entry.ExpiresAt.IsZero() && !entry.ExpiresAt.After(s.now()) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Delete removes keys from the store.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return errDatabaseStoreNil
	}
	if len(keys) == 0 {
		return nil
	}

	values := make([]any, 0, len(keys))
	for _, key := range keys {
		values = append(values, key)
	}
	return s.db.WithContext(ensureContext(ctx)).
		Where(clause.IN{Column: clause.Column{Name: "key"}, Values: values}).
		Delete(&models.CacheEntry{}).Error
}

// keyEquals quotes the column since KEY is reserved in MySQL.
func keyEquals(key string) clause.Expression {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}
