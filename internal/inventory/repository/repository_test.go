package repository_test

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	"github.com/padbank/padbank-backend/internal/inventory/repository"
	apperrors "github.com/padbank/padbank-backend/pkg/errors"
	"github.com/padbank/padbank-backend/pkg/testutil"
)

var batchCols = []string{
	"id", "pad_batch_id", "brand_type", "quantity_supplied", "current_stock",
	"supplier_donor_name", "date_received", "storage_location", "staff_in_charge", "staff_id",
	"expiry_date", "unit_cost", "total_value", "notes", "low_stock_threshold", "is_low_stock",
	"status", "version", "created_at", "updated_at",
}

func batchRow(rows *sqlmock.Rows, id, padBatchID string, stock int) *sqlmock.Rows {
	at := time.Date(2025, 3, 14, 6, 0, 0, 0, time.UTC)
	return rows.AddRow(
		id, padBatchID, "Kotex", 20, stock,
		"Girls Support", at, "School Clinic", "Jane Wanjiru", "STF-001",
		nil, nil, nil, nil, 5, stock <= 5,
		"active", 3, at, at,
	)
}

func expectEmptyLedgers(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`FROM distribution_records\s+WHERE batch_id = ANY\(\$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`FROM stock_adjustments\s+WHERE batch_id = ANY\(\$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
}

func TestBatchRepository_InsertReportsTakenID(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewBatchRepository(mockDB.Database())

	mockDB.ExpectQuery("ON CONFLICT (pad_batch_id) DO NOTHING").
		WillReturnRows(testutil.MockRows("created_at", "updated_at"))

	b := testutil.NewFixtureFactory().Batch()
	inserted, err := repo.Insert(context.Background(), b)

	require.NoError(t, err)
	assert.False(t, inserted)
	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_InsertStoresBatch(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewBatchRepository(mockDB.Database())

	b := testutil.NewFixtureFactory().Batch()
	stored := time.Date(2025, 3, 14, 6, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("INSERT INTO inventory_batches").
		WithArgs(
			testutil.AnyUUID{}, b.PadBatchID, "Kotex", 20, 20,
			"Girls Support", testutil.AnyTime{}, "School Clinic", "Jane Wanjiru", "STF-001",
			nil, nil, nil, nil, 5, false,
			"active", 1, testutil.AnyTime{}, testutil.AnyTime{},
		).
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(stored, stored))

	inserted, err := repo.Insert(context.Background(), b)

	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, stored, b.CreatedAt)
	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_GetByIDLoadsLedgers(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewBatchRepository(mockDB.Database())

	mockDB.ExpectQuery("FROM inventory_batches WHERE id = $1").
		WithArgs("b-1").
		WillReturnRows(batchRow(sqlmock.NewRows(batchCols), "b-1", "PAD/20250314/KOT/GS/412", 19))
	mockDB.Mock.ExpectQuery(`FROM distribution_records\s+WHERE batch_id = ANY\(\$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "batch_id", "user_id", "user_name", "quantity_distributed", "distributed_by", "reason", "notes", "created_at",
		}).AddRow("d-1", "b-1", "STU001", "Amina", 1, "Mary (STF-9)", "Monthly distribution", nil, time.Now()))
	mockDB.Mock.ExpectQuery(`FROM stock_adjustments\s+WHERE batch_id = ANY\(\$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	b, err := repo.GetByID(context.Background(), "b-1")

	require.NoError(t, err)
	assert.Equal(t, "PAD/20250314/KOT/GS/412", b.PadBatchID)
	assert.Equal(t, 3, b.Version)
	require.Len(t, b.DistributionRecords, 1)
	assert.Equal(t, "STU001", b.DistributionRecords[0].UserID)
	assert.Empty(t, b.StockAdjustments)
	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_GetByIDNotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewBatchRepository(mockDB.Database())

	mockDB.ExpectQuery("FROM inventory_batches WHERE id = $1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")

	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestBatchRepository_GetByIDMalformedIDNotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewBatchRepository(mockDB.Database())

	mockDB.ExpectQuery("FROM inventory_batches WHERE id = $1").
		WithArgs("not-a-uuid").
		WillReturnError(&pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "not-a-uuid"`})

	_, err := repo.GetByID(context.Background(), "not-a-uuid")

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_LockByIDRequiresTransaction(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewBatchRepository(mockDB.Database())

	_, err := repo.LockByID(context.Background(), "b-1")

	assert.Error(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_LockByIDInsideTransaction(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	db := mockDB.Database()
	repo := repository.NewBatchRepository(db)

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("WHERE id = $1 FOR UPDATE").
		WithArgs("b-1").
		WillReturnRows(batchRow(sqlmock.NewRows(batchCols), "b-1", "PAD/20250314/KOT/GS/412", 20))
	expectEmptyLedgers(mockDB.Mock)
	mockDB.ExpectCommit()

	err := db.WithinTransaction(context.Background(), func(ctx context.Context) error {
		b, err := repo.LockByID(ctx, "b-1")
		if err != nil {
			return err
		}
		assert.Equal(t, 20, b.CurrentStock)
		return nil
	})

	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_UpdateDetectsStaleVersion(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewBatchRepository(mockDB.Database())

	b := testutil.NewFixtureFactory().Batch()
	b.Version = 2
	mockDB.ExpectQuery("WHERE id = $1 AND version = $2").
		WillReturnRows(testutil.MockRows("version"))

	err := repo.Update(context.Background(), b)

	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, 2, b.Version)
}

func TestBatchRepository_UpdateBumpsVersion(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewBatchRepository(mockDB.Database())

	b := testutil.NewFixtureFactory().Batch()
	mockDB.ExpectQuery("version = version + 1").
		WillReturnRows(testutil.MockRows("version").AddRow(2))

	require.NoError(t, repo.Update(context.Background(), b))
	assert.Equal(t, 2, b.Version)
}

func TestBatchRepository_ListAppliesFiltersAndPage(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewBatchRepository(mockDB.Database())

	low := true
	f := domain.BatchFilter{
		Status:     domain.StatusActive,
		IsLowStock: &low,
		Search:     "50%",
		Page:       2,
		Limit:      10,
	}

	mockDB.ExpectQuery("SELECT COUNT(*) FROM inventory_batches WHERE status = $1 AND is_low_stock = $2 AND (pad_batch_id ILIKE $3").
		WithArgs("active", true, `%50\%%`).
		WillReturnRows(testutil.MockRows("count").AddRow(11))
	mockDB.ExpectQuery("ORDER BY created_at DESC, id LIMIT $4 OFFSET $5").
		WithArgs("active", true, `%50\%%`, 10, 10).
		WillReturnRows(batchRow(sqlmock.NewRows(batchCols), "b-11", "PAD/20250314/KOT/GS/111", 2))
	expectEmptyLedgers(mockDB.Mock)

	batches, total, err := repo.List(context.Background(), f)

	require.NoError(t, err)
	assert.EqualValues(t, 11, total)
	require.Len(t, batches, 1)
	assert.True(t, batches[0].IsLowStock)
	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_ListLapsed(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewBatchRepository(mockDB.Database())

	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("status IN ('active', 'depleted')").
		WithArgs(now).
		WillReturnRows(testutil.MockRows("id").AddRow("b-1").AddRow("b-2"))

	ids, err := repo.ListLapsed(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, []string{"b-1", "b-2"}, ids)
}

func TestBatchRepository_ListCandidatesSkipsLapsed(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewBatchRepository(mockDB.Database())

	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	mockDB.Mock.ExpectQuery(`\(expiry_date IS NULL OR expiry_date >= \$1\)\s+AND storage_location = \$2`).
		WithArgs(now, string(domain.LocationPadBankRoom)).
		WillReturnRows(batchRow(sqlmock.NewRows(batchCols), "b-1", "PAD/20250314/KOT/GS/412", 12))

	batches, err := repo.ListCandidates(context.Background(), domain.LocationPadBankRoom, now)

	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "b-1", batches[0].ID)
	mockDB.ExpectationsWereMet(t)
}

func TestDistributionRepository_ExistsForUserBetween(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewDistributionRepository(mockDB.Database())

	start := time.Date(2025, 3, 13, 21, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	mockDB.ExpectQuery("WHERE user_id = $1 AND created_at >= $2 AND created_at < $3").
		WithArgs("STU001", start, end).
		WillReturnRows(testutil.MockRows("exists").AddRow(true))

	exists, err := repo.ExistsForUserBetween(context.Background(), "STU001", start, end)

	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDistributionRepository_LastForUserNone(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewDistributionRepository(mockDB.Database())

	mockDB.ExpectQuery("ORDER BY created_at DESC").
		WithArgs("STU001").
		WillReturnError(sql.ErrNoRows)

	rec, err := repo.LastForUser(context.Background(), "STU001")

	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStudentRepository_UpsertDefaultsDisability(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewStudentRepository(mockDB.Database())

	at := time.Date(2025, 3, 14, 6, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("ON CONFLICT (user_id)").
		WithArgs("STU001", "Amina Otieno", nil, nil, "no", "").
		WillReturnRows(testutil.MockRows("updated_at").AddRow(at))

	s := &domain.Student{UserID: "STU001", Names: "Amina Otieno"}
	require.NoError(t, repo.Upsert(context.Background(), s))
	assert.Equal(t, "no", s.Disability)
	assert.Equal(t, at, s.UpdatedAt)
}

func TestStudentRepository_GetByIDNotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewStudentRepository(mockDB.Database())

	mockDB.ExpectQuery("FROM students WHERE user_id = $1").
		WithArgs("STU404").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "STU404")

	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestAdjustmentRepository_Insert(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewAdjustmentRepository(mockDB.Database())

	mockDB.ExpectExec("INSERT INTO stock_adjustments").
		WithArgs("a-1", "b-1", "reduction", 10, "water damage", "Jane", 4, 0, testutil.AnyTime{}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), &domain.StockAdjustment{
		ID:             "a-1",
		BatchID:        "b-1",
		AdjustmentType: domain.AdjustmentReduction,
		Quantity:       10,
		Reason:         "water damage",
		AdjustedBy:     "Jane",
		PreviousStock:  4,
		NewStock:       0,
		CreatedAt:      time.Now(),
	})

	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestReportRepository_OverviewCountsLapsedAsExpired(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := repository.NewReportRepository(mockDB.Database())

	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	mockDB.Mock.ExpectQuery(`COUNT\(\*\) FILTER \(WHERE status = 'expired' OR lapsed\)`).
		WithArgs(now).
		WillReturnRows(testutil.MockRows(
			"total_batches", "total_supplied", "total_current_stock", "active_batches",
			"low_stock_batches", "total_value", "depleted_batches", "expired_batches",
		).AddRow(2, 40, 40, 1, 0, "0", 0, 1))

	o, err := repo.Overview(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 1, o.ActiveBatches)
	assert.Equal(t, 1, o.ExpiredBatches)
	mockDB.ExpectationsWereMet(t)
}
