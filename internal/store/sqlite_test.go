package store

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liondevhq/weather-tomorrow/internal/weather"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "weather.db"), weather.UnitsMetric)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteCityCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	kyiv, err := s.AddCity(ctx, "Kyiv", "UA")
	require.NoError(t, err)
	london, err := s.AddCity(ctx, "London", "GB")
	require.NoError(t, err)
	assert.Greater(t, london.ID, kyiv.ID)

	cities, err := s.ListCities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []weather.TrackedCity{kyiv, london}, cities)

	london.Name = "Londinium"
	require.NoError(t, s.UpdateCity(ctx, london))
	got, err := s.GetCity(ctx, london.ID)
	require.NoError(t, err)
	assert.Equal(t, "Londinium", got.Name)

	require.NoError(t, s.DeleteCity(ctx, kyiv.ID))
	_, err = s.GetCity(ctx, kyiv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteCity(ctx, kyiv.ID), ErrNotFound)
	assert.ErrorIs(t, s.UpdateCity(ctx, weather.TrackedCity{ID: 999, Name: "X", Country: "Y"}), ErrNotFound)

	_, err = s.AddCity(ctx, "Oslo", "NO")
	require.NoError(t, err)
	n, err := s.DeleteAllCities(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	cities, err = s.ListCities(ctx)
	require.NoError(t, err)
	assert.Empty(t, cities)
}

func TestSQLiteUnits(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	u, err := s.Units(ctx)
	require.NoError(t, err)
	assert.Equal(t, weather.UnitsMetric, u, "default applies before anything is stored")

	require.NoError(t, s.SetUnits(ctx, weather.UnitsImperial))
	u, err = s.Units(ctx)
	require.NoError(t, err)
	assert.Equal(t, weather.UnitsImperial, u)

	require.NoError(t, s.SetUnits(ctx, weather.UnitsMetric))
	u, err = s.Units(ctx)
	require.NoError(t, err)
	assert.Equal(t, weather.UnitsMetric, u)
}

func TestSQLiteErrorsPropagate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS tracked_cities")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS settings")).WillReturnResult(sqlmock.NewResult(0, 0))

	s, err := NewSQLiteFromDB(db, "")
	require.NoError(t, err)

	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, country FROM tracked_cities ORDER BY id")).
		WillReturnError(errors.New("disk I/O error"))
	_, err = s.ListCities(ctx)
	assert.EqualError(t, err, "disk I/O error")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tracked_cities WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.DeleteCity(ctx, 7), ErrNotFound)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM settings WHERE key = ?")).
		WithArgs("units").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("kelvin"))
	_, err = s.Units(ctx)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
