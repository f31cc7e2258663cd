package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/work4u/internal/logging"
	"github.com/redmonkez12/work4u/internal/user"
)

func strPtr(s string) *string { return &s }

func sampleUser() *user.ApplicationUser {
	return &user.ApplicationUser{
		ID:          "uid-1",
		Email:       strPtr("ana@example.com"),
		DisplayName: strPtr("Ana"),
		Status:      user.StatusActive,
		UserType:    user.UserTypePersonal,
		WorkerTypes: []user.WorkerType{user.WorkerTypeWorker},
		City:        strPtr("Lyon"),
		Token:       "secret-token",
	}
}

func TestStoreSetPersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	s := Load(ctx, storage, logging.NewNopLogger())
	assert.Nil(t, s.Get())

	s.Set(ctx, sampleUser())

	reloaded := Load(ctx, storage, logging.NewNopLogger())
	got := reloaded.Get()
	require.NotNil(t, got)
	assert.Equal(t, "uid-1", got.ID)
	assert.Equal(t, "Lyon", *got.City)
	assert.Empty(t, got.Token)

	raw, ok, err := storage.Get(ctx, UserKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, string(raw), "secret-token")
}

func TestStoreSetNilThenColdStart(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	s := Load(ctx, storage, logging.NewNopLogger())
	s.Set(ctx, sampleUser())
	s.Set(ctx, nil)

	_, ok, _ := storage.Get(ctx, UserKey)
	assert.False(t, ok)
	assert.Nil(t, Load(ctx, storage, logging.NewNopLogger()).Get())
}

func TestStoreNotifiesInOrder(t *testing.T) {
	ctx := context.Background()
	s := Load(ctx, NewMemoryStorage(), logging.NewNopLogger())

	var calls []string
	s.Subscribe(func(u *user.ApplicationUser) { calls = append(calls, "first:"+u.ID) })
	unsubscribe := s.Subscribe(func(u *user.ApplicationUser) { calls = append(calls, "second:"+u.ID) })
	s.Subscribe(func(u *user.ApplicationUser) { calls = append(calls, "third:"+u.ID) })

	s.Set(ctx, sampleUser())
	unsubscribe()
	unsubscribe()
	s.Set(ctx, &user.ApplicationUser{ID: "uid-2"})

	assert.Equal(t, []string{
		"first:uid-1", "second:uid-1", "third:uid-1",
		"first:uid-2", "third:uid-2",
	}, calls)
}

func TestStoreHandsOutCopies(t *testing.T) {
	ctx := context.Background()
	s := Load(ctx, NewMemoryStorage(), logging.NewNopLogger())

	u := sampleUser()
	s.Set(ctx, u)
	u.WorkerTypes[0] = user.WorkerTypeRequestor

	got := s.Get()
	assert.Equal(t, user.WorkerTypeWorker, got.WorkerTypes[0])

	*got.DisplayName = "mutated"
	assert.Equal(t, "Ana", *s.Get().DisplayName)
}

func TestLoadDegradesOnCorruptData(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		data string
	}{
		{name: "invalid json", data: "{oops"},
		{name: "empty id", data: `{"id":""}`},
		{name: "wrong shape", data: `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := NewMemoryStorage()
			require.NoError(t, storage.Set(ctx, UserKey, []byte(tt.data)))
			assert.Nil(t, Load(ctx, storage, logging.NewNopLogger()).Get())
		})
	}
}

type failingStorage struct{}

func (failingStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("unavailable")
}

func (failingStorage) Set(ctx context.Context, key string, value []byte) error {
	return errors.New("unavailable")
}

func (failingStorage) Delete(ctx context.Context, key string) error {
	return errors.New("unavailable")
}

func TestStoreToleratesStorageFailures(t *testing.T) {
	ctx := context.Background()
	s := Load(ctx, failingStorage{}, logging.NewNopLogger())
	assert.Nil(t, s.Get())

	notified := false
	s.Subscribe(func(u *user.ApplicationUser) { notified = true })

	assert.NotPanics(t, func() { s.Set(ctx, sampleUser()) })
	assert.True(t, notified)
	assert.Equal(t, "uid-1", s.Get().ID)
}

func TestFileStorage(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	fs := NewFileStorage(path)

	_, ok, err := fs.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, fs.Set(ctx, "a", []byte(`{"x":1}`)))
	require.NoError(t, fs.Set(ctx, "b", []byte("two")))

	v, ok, err := NewFileStorage(path).Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"x":1}`, string(v))

	require.NoError(t, fs.Delete(ctx, "a"))
	_, ok, _ = fs.Get(ctx, "a")
	assert.False(t, ok)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStorageRecoversFromCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	fs := NewFileStorage(path)
	_, _, err := fs.Get(ctx, "a")
	assert.Error(t, err)

	s := Load(ctx, fs, logging.NewNopLogger())
	assert.Nil(t, s.Get())

	s.Set(ctx, sampleUser())
	assert.Equal(t, "uid-1", Load(ctx, fs, logging.NewNopLogger()).Get().ID)
}

func TestMemoryFactory(t *testing.T) {
	ctx := context.Background()
	f := NewMemoryFactory()

	require.NoError(t, f.ForClient("a").Set(ctx, "k", []byte("v")))
	_, ok, _ := f.ForClient("b").Get(ctx, "k")
	assert.False(t, ok)
	_, ok, _ = f.ForClient("a").Get(ctx, "k")
	assert.True(t, ok)

	require.NoError(t, f.Purge(ctx, "a"))
	_, ok, _ = f.ForClient("a").Get(ctx, "k")
	assert.False(t, ok)
}
