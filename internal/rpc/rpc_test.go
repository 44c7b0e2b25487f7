package rpc

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockCaller(t *testing.T) (*Caller, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewCaller(db), mock
}

func TestCall(t *testing.T) {
	c, mock := newMockCaller(t)
	mock.ExpectExec("CALL settle_ajo_circle_week\\(\\?\\)").
		WithArgs("2024-01-08").
		WillReturnResult(sqlmock.NewResult(0, 12))

	res, err := c.Call(context.Background(), SettleAjoCircleWeek, "2024-01-08")
	require.NoError(t, err)
	assert.Equal(t, SettleAjoCircleWeek, res.Procedure)
	assert.Equal(t, int64(12), res.RowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallNoArgs(t *testing.T) {
	c, mock := newMockCaller(t)
	mock.ExpectExec("CALL trigger_sprint_auto_save\\(\\)").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := c.Call(context.Background(), TriggerSprintAutoSave)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallUnknown(t *testing.T) {
	c, mock := newMockCaller(t)

	_, err := c.Call(context.Background(), "drop_everything")
	assert.ErrorIs(t, err, ErrUnknownProcedure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallFailure(t *testing.T) {
	c, mock := newMockCaller(t)
	mock.ExpectExec("CALL apply_savings_interest").
		WillReturnError(errors.New("deadlock"))

	_, err := c.Call(context.Background(), ApplySavingsInterest, "2024-02-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock")
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{ApplySavingsInterest, SettleAjoCircleMonth, SettleAjoCircleWeek, TriggerSprintAutoSave}, Names())
	assert.Len(t, Procedures(), 4)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
