package credential

import (
	"blockRewards/domain"
	kvleveldb "blockRewards/internal/repository/leveldb"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

type fakeKV struct {
	data    map[string][]byte
	failPut bool
	failGet error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}
	v, ok := f.data[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) error {
	if f.failPut {
		return errors.New("disk full")
	}
	f.data[key] = append([]byte(nil), value...)
	return nil
}

func newLevelDBKV(t *testing.T) *kvleveldb.KVRepository {
	t.Helper()
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	require.NoError(t, err)
	repo := kvleveldb.NewKVRepository(db)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleUser(email string) domain.User {
	return domain.User{
		ID:            "id-" + email,
		Email:         email,
		FirstName:     "A",
		LastName:      "B",
		PasswordHash:  "hash",
		CreatedAt:     time.Date(2025, 5, 15, 10, 0, 0, 0, time.UTC),
		LoyaltyPoints: 10,
		ReferralCode:  "code-" + email,
	}
}

func TestPersistLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newLevelDBKV(t)

	store := NewStore(kv)
	store.Load(ctx)
	require.NoError(t, store.Create(ctx, sampleUser("b@x.com")))
	require.NoError(t, store.Create(ctx, sampleUser("a@x.com")))
	require.NoError(t, store.Persist(ctx))

	reloaded := NewStore(kv)
	reloaded.Load(ctx)

	assert.ElementsMatch(t, store.All(), reloaded.All())
}

func TestLoadToleratesMissingAndCorruptData(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()

	store := NewStore(kv)
	store.Load(ctx)
	assert.Empty(t, store.All())

	kv.data[domain.KeyUsers] = []byte("{not json")
	store.Load(ctx)
	assert.Empty(t, store.All())

	kv.failGet = errors.New("io error")
	store.Load(ctx)
	assert.Empty(t, store.All())
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newFakeKV())

	original := sampleUser("a@x.com")
	require.NoError(t, store.Create(ctx, original))

	dup := sampleUser("a@x.com")
	dup.FirstName = "Mallory"
	err := store.Create(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	got, err := store.Get("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestEmailIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newFakeKV())

	require.NoError(t, store.Create(ctx, sampleUser("a@x.com")))
	require.NoError(t, store.Create(ctx, sampleUser("A@x.com")))
	assert.Len(t, store.All(), 2)
}

func TestFailedPersistRollsBack(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := NewStore(kv)

	require.NoError(t, store.Create(ctx, sampleUser("a@x.com")))

	kv.failPut = true
	assert.Error(t, store.Create(ctx, sampleUser("b@x.com")))
	_, err := store.Get("b@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	changed := sampleUser("a@x.com")
	changed.LoyaltyPoints = 999
	assert.Error(t, store.Put(ctx, changed))

	got, err := store.Get("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.LoyaltyPoints)
}

func TestFindByReferralCode(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newFakeKV())
	require.NoError(t, store.Create(ctx, sampleUser("a@x.com")))

	got, err := store.FindByReferralCode("code-a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)

	_, err = store.FindByReferralCode("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateKeepsConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newLevelDBKV(t))
	require.NoError(t, store.Create(ctx, sampleUser("a@x.com")))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "a@x.com", func(u *domain.User) error {
				u.LoyaltyPoints++
				return nil
			})
			assert.NoError(t, err)
		}()
		go func(i int) {
			defer wg.Done()
			_, err := store.Update(ctx, "a@x.com", func(u *domain.User) error {
				u.WalletAddress = fmt.Sprintf("0x%040d", i)
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := store.Get("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(10+n), got.LoyaltyPoints)
	assert.NotEmpty(t, got.WalletAddress)
}

func TestUpdateFailures(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := NewStore(kv)
	require.NoError(t, store.Create(ctx, sampleUser("a@x.com")))

	_, err := store.Update(ctx, "ghost@x.com", func(u *domain.User) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)

	refused := errors.New("refused")
	_, err = store.Update(ctx, "a@x.com", func(u *domain.User) error {
		u.LoyaltyPoints = 500
		return refused
	})
	assert.ErrorIs(t, err, refused)

	_, err = store.Update(ctx, "a@x.com", func(u *domain.User) error {
		u.Email = "b@x.com"
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	kv.failPut = true
	_, err = store.Update(ctx, "a@x.com", func(u *domain.User) error {
		u.LoyaltyPoints = 500
		return nil
	})
	assert.Error(t, err)

	got, err := store.Get("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.LoyaltyPoints)

	// no change, no write
	same, err := store.Update(ctx, "a@x.com", func(u *domain.User) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, int64(10), same.LoyaltyPoints)
}

func TestUpdateManyIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := NewStore(kv)
	require.NoError(t, store.Create(ctx, sampleUser("a@x.com")))
	require.NoError(t, store.Create(ctx, sampleUser("b@x.com")))

	_, err := store.UpdateMany(ctx, []string{"a@x.com", "ghost@x.com"}, func(users []*domain.User) error {
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	kv.failPut = true
	_, err = store.UpdateMany(ctx, []string{"a@x.com", "b@x.com"}, func(users []*domain.User) error {
		users[0].LoyaltyPoints += 200
		users[1].LoyaltyPoints += 200
		return nil
	})
	assert.Error(t, err)

	kv.failPut = false
	updated, err := store.UpdateMany(ctx, []string{"a@x.com", "b@x.com"}, func(users []*domain.User) error {
		users[0].LoyaltyPoints += 200
		users[1].LoyaltyPoints += 200
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(210), updated[0].LoyaltyPoints)
	assert.Equal(t, int64(210), updated[1].LoyaltyPoints)

	b, err := store.Get("b@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(210), b.LoyaltyPoints)
}
