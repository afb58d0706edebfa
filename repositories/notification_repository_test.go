package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/5-VED/notification-dispatcher/models"
)

func newMockRepo(t *testing.T) (NotificationRepository, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(false))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return NewNotificationRepository(gdb), mock
}

func TestCreate_AssignsIDAndInsertsRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "notifications"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n := &models.Notification{UserID: "u1", Type: models.NotificationTypeWelcome, Channel: models.ChannelEmail, Title: "hi", Body: "hi"}
	err := repo.Create(context.Background(), n)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.Equal(t, models.StatusQueued, n.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_ReturnsRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "user_id", "status"}).AddRow(id.String(), "u1", "SENT")
	mock.ExpectQuery(`SELECT \* FROM "notifications"`).WillReturnRows(rows)

	n, err := repo.GetByID(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, id, n.ID)
	assert.Equal(t, models.Status("SENT"), n.Status)
}

func TestGetByID_NotFoundPropagatesError(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "notifications"`).WillReturnError(gorm.ErrRecordNotFound)

	_, err := repo.GetByID(context.Background(), id)

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpdateStatus_Sent_SetsSentAt(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "notifications" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateStatus(context.Background(), id, models.StatusSent, "")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementRetry_UsesAtomicExpression(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "notifications" SET "retry_count"=retry_count`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.IncrementRetry(context.Background(), id)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindFailedForRetry_FiltersByStatusAndRetryCount(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "status", "retry_count"}).
		AddRow(uuid.New().String(), "FAILED", 1).
		AddRow(uuid.New().String(), "FAILED", 2)
	mock.ExpectQuery(`SELECT \* FROM "notifications" WHERE`).WillReturnRows(rows)

	out, err := repo.FindFailedForRetry(context.Background(), 100, models.MaxRetries)

	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestCleanupOlderThan_DeletesSentAndFailedRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "notifications" WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := repo.CleanupOlderThan(context.Background(), time.Now())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
