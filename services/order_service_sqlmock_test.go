package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Josevinuez/trade-in-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "an error was not expected when opening a stub database connection")
	t.Cleanup(func() { mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func orderRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "order_number", "customer_id", "status", "quoted_amount", "created_at"}).
		AddRow(7, "TI-2024-1-ABCDEF", 3, string(models.StatusPending), "1350.00", time.Now())
}

func TestDeleteRemovesHistoryBeforeOrder(t *testing.T) {
	db, mock := newMockPostgres(t)
	events := NewMockEventPublisher()
	svc := NewOrderService(db, events, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "trade_in_orders"`)).WillReturnRows(orderRow())
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "order_status_history"`)).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "trade_in_orders"`)).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.Delete(context.Background(), 7, StaffActor("ops@example.com"))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, events.Events(), 1)
	assert.Equal(t, EventOrderDeleted, events.Events()[0].Type)
	assert.Equal(t, "TI-2024-1-ABCDEF", events.Events()[0].OrderNumber)
}

func TestDeleteRollsBackWhenHistoryDeleteFails(t *testing.T) {
	db, mock := newMockPostgres(t)
	events := NewMockEventPublisher()
	svc := NewOrderService(db, events, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "trade_in_orders"`)).WillReturnRows(orderRow())
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "order_status_history"`)).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := svc.Delete(context.Background(), 7, StaffActor("ops@example.com"))
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, events.Events())
}
