package pg_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rollout/pkg/pg"
	"github.com/dmitrymomot/rollout/pkg/store"
)

type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	call := m.Called(sql, args)
	return pgconn.NewCommandTag(call.String(0)), call.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.Called(sql, args).Get(0).(pgx.Row)
}

type row struct {
	value []byte
	err   error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.value
	return nil
}

func TestStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("get", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{}
		db.On("QueryRow", mock.Anything, []any{"flags"}).Return(row{value: []byte(`{"a":"1"}`)})
		got, err := pg.NewStore(db).Get(ctx, "flags")
		require.NoError(t, err)
		assert.Equal(t, `{"a":"1"}`, string(got))
		db.AssertExpectations(t)
	})

	t.Run("get missing", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{}
		db.On("QueryRow", mock.Anything, []any{"flags"}).Return(row{err: pgx.ErrNoRows})
		_, err := pg.NewStore(db).Get(ctx, "flags")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("get failure", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("conn reset")
		db := &mockDB{}
		db.On("QueryRow", mock.Anything, []any{"flags"}).Return(row{err: boom})
		_, err := pg.NewStore(db).Get(ctx, "flags")
		require.ErrorIs(t, err, boom)
	})

	t.Run("set and delete", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{}
		db.On("Exec", mock.MatchedBy(func(sql string) bool { return len(sql) > 6 && sql[:6] == "INSERT" }),
			[]any{"flags", []byte("{}")}).Return("INSERT 0 1", nil)
		db.On("Exec", mock.MatchedBy(func(sql string) bool { return len(sql) > 6 && sql[:6] == "DELETE" }),
			[]any{"flags"}).Return("DELETE 1", nil)

		s := pg.NewStore(db)
		require.NoError(t, s.Set(ctx, "flags", []byte("{}")))
		require.NoError(t, s.Delete(ctx, "flags"))
		db.AssertExpectations(t)
	})

	t.Run("empty key", func(t *testing.T) {
		t.Parallel()
		s := pg.NewStore(&mockDB{})
		require.ErrorIs(t, s.Set(ctx, "", nil), store.ErrEmptyKey)
		require.ErrorIs(t, s.Delete(ctx, ""), store.ErrEmptyKey)
	})
}
