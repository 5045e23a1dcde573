package migrate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/tablebot/internal/db"
)

type boolRow struct{ v bool }

func (r boolRow) Scan(dest ...any) error {
	*(dest[0].(*bool)) = r.v
	return nil
}

type fakeDB struct {
	applied map[string]bool
	execs   []string
	failOn  string
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) error {
	if f.failOn != "" && sql == f.failOn {
		return errors.New("boom")
	}
	f.execs = append(f.execs, sql)
	if len(args) == 1 {
		f.applied[args[0].(string)] = true
	}
	return nil
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...any) db.Row {
	return boolRow{v: f.applied[args[0].(string)]}
}

func (f *fakeDB) Query(context.Context, string, ...any) (db.Rows, error) {
	return nil, errors.New("not used")
}

func TestFiles_Sorted(t *testing.T) {
	files, err := Files()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "0001_booking_attempts.sql", files[0])
}

func TestUp_AppliesOnce(t *testing.T) {
	f := &fakeDB{applied: map[string]bool{}}
	ctx := context.Background()

	require.NoError(t, Up(ctx, f, zap.NewNop()))
	assert.True(t, f.applied["0001_booking_attempts.sql"])
	first := len(f.execs)

	require.NoError(t, Up(ctx, f, zap.NewNop()))
	// second run only re-creates schema_migrations
	assert.Equal(t, first+1, len(f.execs))
}

func TestUp_ApplyError(t *testing.T) {
	b, err := fs.ReadFile("0001_booking_attempts.sql")
	require.NoError(t, err)
	f := &fakeDB{applied: map[string]bool{}, failOn: string(b)}

	err = Up(context.Background(), f, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply 0001_booking_attempts.sql")
	assert.False(t, f.applied["0001_booking_attempts.sql"])
}
