package gormrepository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mattdomit/dotted-sub000/internal/models"
	"github.com/mattdomit/dotted-sub000/internal/repository"
)

func setupMockStore(t *testing.T) (sqlmock.Sqlmock, *Store) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return mock, New(gdb)
}

func TestStore_GetCycle_NotFound(t *testing.T) {
	mock, store := setupMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "cycles" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	item, err := store.GetCycle(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetCycle_Found(t *testing.T) {
	mock, store := setupMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "zone_id", "date", "phase", "winning_dish_id", "phase_changed_at"}).
		AddRow("c-1", "z-1", "2026-10-14", models.PhaseVoting, "d-1", now)
	mock.ExpectQuery(`SELECT \* FROM "cycles" WHERE id = \$1`).WillReturnRows(rows)

	item, err := store.GetCycle(context.Background(), "c-1")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "z-1", item.ZoneID)
	assert.Equal(t, models.PhaseVoting, item.Phase)
	require.NotNil(t, item.WinningDishID)
	assert.Equal(t, "d-1", *item.WinningDishID)
}

func TestStore_UpdateCyclePhase_Conflict(t *testing.T) {
	mock, store := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "cycles" SET .* WHERE id = \$\d+ AND phase = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.UpdateCyclePhase(context.Background(), "c-1", models.PhaseVoting, models.PhaseBidding, time.Now(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrPhaseConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateCyclePhase_AppliesExtraColumns(t *testing.T) {
	mock, store := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "cycles" SET .*"winning_dish_id"=`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.UpdateCyclePhase(context.Background(), "c-1", models.PhaseVoting, models.PhaseBidding, time.Now(),
		map[string]any{"winning_dish_id": "d-2"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateBidOutcomes_RollsBackOnMissingBid(t *testing.T) {
	mock, store := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "bids" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "bids" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.UpdateBidOutcomes(context.Background(), []repository.BidOutcome{
		{BidID: "b-1", Status: models.BidWon, Score: 0.9},
		{BidID: "b-2", Status: models.BidLost, Score: 0.4},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CountActiveOrdersByRestaurant(t *testing.T) {
	mock, store := setupMockStore(t)

	rows := sqlmock.NewRows([]string{"restaurant_id", "total"}).
		AddRow("r-1", 4).
		AddRow("r-2", 1)
	mock.ExpectQuery(`SELECT restaurant_id, COUNT\(\*\) AS total FROM "orders"`).WillReturnRows(rows)

	got, err := store.CountActiveOrdersByRestaurant(context.Background(), []string{"r-1", "r-2", "r-1", " "})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"r-1": 4, "r-2": 1}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CountActiveOrdersByRestaurant_EmptyInputSkipsQuery(t *testing.T) {
	mock, store := setupMockStore(t)

	got, err := store.CountActiveOrdersByRestaurant(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AverageQualityByCuisine(t *testing.T) {
	mock, store := setupMockStore(t)

	rows := sqlmock.NewRows([]string{"cuisine", "avg_overall"}).
		AddRow("thai", 4.5).
		AddRow("italian", 3.0)
	mock.ExpectQuery(`SELECT LOWER\(dishes.cuisine\) AS cuisine, AVG\(quality_scores.overall\) AS avg_overall FROM "quality_scores"`).
		WillReturnRows(rows)

	got, err := store.AverageQualityByCuisine(context.Background(), "z-1")
	require.NoError(t, err)
	assert.Equal(t, 4.5, got["thai"])
	assert.Equal(t, 3.0, got["italian"])
}

func TestStore_ListRecentWinningDishes(t *testing.T) {
	mock, store := setupMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "name", "cuisine"}).
		AddRow("d-9", "Pad Thai", "Thai").
		AddRow("d-8", "Ramen", "Japanese")
	mock.ExpectQuery(`SELECT dishes\.\* FROM "dishes" JOIN cycles ON cycles\.winning_dish_id = dishes\.id ` +
		`WHERE cycles\.zone_id = \$1 AND cycles\.id <> \$2 ORDER BY cycles\.date desc LIMIT \$3`).
		WithArgs("z-1", "c-today", 14).
		WillReturnRows(rows)

	items, err := store.ListRecentWinningDishes(context.Background(), "z-1", "c-today", 14)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "d-9", items[0].ID)
	assert.Equal(t, "Thai", items[0].Cuisine)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListRecentWinningDishes_NoExclusion(t *testing.T) {
	mock, store := setupMockStore(t)

	mock.ExpectQuery(`WHERE cycles\.zone_id = \$1 ORDER BY cycles\.date desc LIMIT \$2`).
		WithArgs("z-1", 14).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	items, err := store.ListRecentWinningDishes(context.Background(), "z-1", " ", 0)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AverageOrderCount(t *testing.T) {
	mock, store := setupMockStore(t)

	mock.ExpectQuery(`(?s)SELECT COALESCE\(AVG\(recent\.order_count\), 0\).*` +
		`LEFT JOIN orders ON orders\.cycle_id = cycles\.id AND orders\.status <> \$1.*` +
		`WHERE cycles\.zone_id = \$2 AND cycles\.phase = \$3.*` +
		`ORDER BY cycles\.date DESC.*LIMIT \$4`).
		WithArgs(models.OrderCancelled, "z-1", models.PhaseCompleted, 14).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(6.5))

	avg, err := store.AverageOrderCount(context.Background(), "z-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 6.5, avg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_NilStoreIsNoop(t *testing.T) {
	var store *Store
	item, err := store.GetZone(context.Background(), "z-1")
	assert.NoError(t, err)
	assert.Nil(t, item)
	assert.NoError(t, store.InTx(context.Background(), func(repository.Repository) error {
		return errors.New("not called")
	}))
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_cycles_zone_date"}
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", pgErr)))
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(nil))
}
