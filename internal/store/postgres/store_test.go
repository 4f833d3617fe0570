package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobwatch/jobwatch/internal/listing"
	"github.com/jobwatch/jobwatch/internal/store"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewWithDB(mock, zap.NewNop()), mock
}

func TestUpsertWritesEachListing(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO jobs").
		WithArgs("A1", "Backend Engineer", "Acme", "", "", "", "", "", "", "", "", "", "", "", false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO jobs").
		WithArgs("A2", "SRE", "Globex", "", "", "", "", "", "", "", "", "", "", "", true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := s.Upsert(context.Background(), []listing.Listing{
		{JobID: "A1", JobName: "Backend Engineer", CustName: "Acme"},
		{JobID: "A2", JobName: "SRE", CustName: "Globex", RemoteWork: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSkipsFailedRecordAndContinues(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO jobs").
		WithArgs("A1", "Backend Engineer", "Acme", "", "", "", "", "", "", "", "", "", "", "", false).
		WillReturnError(errors.New("value too long for type character varying(500)"))
	mock.ExpectExec("INSERT INTO jobs").
		WithArgs("A2", "SRE", "Globex", "", "", "", "", "", "", "", "", "", "", "", false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := s.Upsert(context.Background(), []listing.Listing{
		{JobID: "A1", JobName: "Backend Engineer", CustName: "Acme"},
		{JobID: "A2", JobName: "SRE", CustName: "Globex"},
	})
	require.NoError(t, err, "a per-record failure must not fail the batch")
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSkipsEmptyJobID(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	n, err := s.Upsert(context.Background(), []listing.Listing{{JobName: "no id"}})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func listingRows(listings ...listing.Listing) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"job_id", "job_name", "cust_name", "job_url", "job_addr_no_desc",
		"salary_desc", "job_detail", "appear_date", "job_cat", "job_type",
		"work_exp", "edu", "skill", "benefit", "remote_work", "created_at", "updated_at",
	})
	for _, l := range listings {
		rows.AddRow(
			l.JobID, l.JobName, l.CustName, l.JobURL, l.JobAddr,
			l.SalaryDesc, l.JobDetail, l.AppearDate, l.JobCat, l.JobType,
			l.WorkExp, l.Edu, l.Skill, l.Benefit, l.RemoteWork, l.CreatedAt, l.UpdatedAt,
		)
	}
	return rows
}

func TestSearchPassesFiltersAndWindow(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT(.|\n)+FROM jobs").
		WithArgs("Senior", "Acme", 10, 5).
		WillReturnRows(listingRows(listing.Listing{
			JobID: "A1", JobName: "Senior Backend Engineer", CustName: "Acme",
			CreatedAt: now, UpdatedAt: now,
		}))

	rows, err := s.Search(context.Background(), store.Filter{
		Keyword: "Senior", Company: "Acme", Limit: 10, Offset: 5,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Senior Backend Engineer", rows[0].JobName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchUnlimitedWhenLimitUnset(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT(.|\n)+FROM jobs").
		WithArgs("", "", -1, 0).
		WillReturnRows(listingRows())

	rows, err := s.Search(context.Background(), store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentQueriesByAge(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT(.|\n)+make_interval").
		WithArgs(7).
		WillReturnRows(listingRows(listing.Listing{
			JobID: "r1", JobName: "Fresh", CreatedAt: now, UpdatedAt: now,
		}))

	rows, err := s.Recent(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "r1", rows[0].JobID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCount(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 42, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeOlderThanReturnsDeletedCount(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM jobs").
		WithArgs(30).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	deleted, err := s.PurgeOlderThan(context.Background(), 30)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
