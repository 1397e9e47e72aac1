package transfers

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	from = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	to   = "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"
)

var transferColumns = []string{"id", "from_pubkey", "to_pubkey", "payload_hash", "payload_json", "visibility",
	"sender_signature", "sender_log_index", "recipient_log_index", "witness_status", "receipt_signature",
	"receipt_timestamp", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate_MetadataOnlyHasNullPayload(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	q := `(?s)^INSERT\s+INTO\s+transfers\s*\(.*\)\s*VALUES\s*\(\$1,.*\$10\)\s*RETURNING\s+created_at\s*$`
	mock.ExpectQuery(q).
		WithArgs("xfer_1", from, to, "sha256:h", nil, models.VisibilityMetadataOnly, "sig", int64(1), nil, models.WitnessPending).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	tr := &models.Transfer{
		ID: "xfer_1", From: from, To: to, PayloadHash: "sha256:h",
		Visibility: models.VisibilityMetadataOnly, SenderSignature: "sig", SenderLogIndex: 1,
		WitnessStatus: models.WitnessPending,
	}
	require.NoError(t, repo.Create(context.Background(), tr))
	assert.Equal(t, created, tr.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_PublicStoresPayloadAndRecipientIndex(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ri := int64(3)

	mock.ExpectQuery(`INSERT\s+INTO\s+transfers`).
		WithArgs("xfer_2", from, to, "sha256:h", `{"a":1,"b":"x"}`, models.VisibilityPublic, "sig", int64(2), int64(3), models.WitnessPending).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	tr := &models.Transfer{
		ID: "xfer_2", From: from, To: to, PayloadHash: "sha256:h", Payload: map[string]any{"b": "x", "a": 1},
		Visibility: models.VisibilityPublic, SenderSignature: "sig", SenderLogIndex: 2, RecipientLogIndex: &ri,
		WitnessStatus: models.WitnessPending,
	}
	require.NoError(t, repo.Create(context.Background(), tr))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachReceipt_MarksWitnessed(t *testing.T) {
	q := `(?s)^UPDATE\s+transfers\s+SET\s+receipt_signature\s*=\s*\$2,\s*receipt_timestamp\s*=\s*\$3,\s*witness_status\s*=\s*\$4\s+WHERE\s+id\s*=\s*\$1\s+AND\s+receipt_signature\s+IS\s+NULL\s*$`
	rc := &models.Receipt{Signature: "rs", Timestamp: "ts"}

	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(q).WithArgs("xfer_1", "rs", "ts", "witnessed").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.AttachReceipt(context.Background(), "xfer_1", rc))

	repo, mock = newRepoWithMock(t)
	mock.ExpectExec(q).WithArgs("xfer_1", "rs", "ts", "witnessed").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.AttachReceipt(context.Background(), "xfer_1", rc), common.ErrReceiptExists)
}

func TestGetByID(t *testing.T) {
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`(?s)FROM\s+transfers\s+WHERE\s+id\s*=\s*\$1`).WithArgs("xfer_1").WillReturnRows(
		sqlmock.NewRows(transferColumns).AddRow("xfer_1", from, to, "h", nil, "metadata_only", "sig",
			int64(1), nil, "witnessed", "rs", "ts", created))

	tr, err := repo.GetByID(context.Background(), "xfer_1")
	require.NoError(t, err)
	assert.Nil(t, tr.Payload)
	assert.Nil(t, tr.RecipientLogIndex)
	assert.Equal(t, "witnessed", tr.WitnessStatus)
	require.NotNil(t, tr.Receipt)
	assert.Equal(t, "rs", tr.Receipt.Signature)

	repo, mock = newRepoWithMock(t)
	mock.ExpectQuery(`FROM\s+transfers`).WithArgs("nope").WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList_Filters(t *testing.T) {
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   Filter
		where    string
		args     []any
		limitArg string
	}{
		{"from", Filter{From: from}, `from_pubkey\s*=\s*\$1`, []any{from}, `\$2\s+OFFSET\s+\$3`},
		{"to", Filter{To: to}, `to_pubkey\s*=\s*\$1`, []any{to}, `\$2\s+OFFSET\s+\$3`},
		{"both", Filter{From: from, To: to}, `from_pubkey\s*=\s*\$1\s+AND\s+to_pubkey\s*=\s*\$2`, []any{from, to}, `\$3\s+OFFSET\s+\$4`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)

			mock.ExpectQuery(`(?s)^SELECT\s+count\(\*\)\s+FROM\s+transfers\s+WHERE\s+` + tt.where + `$`).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
			mock.ExpectQuery(`(?s)WHERE\s+` + tt.where + `\s+ORDER\s+BY\s+created_at\s+DESC,\s*id\s+DESC\s+LIMIT\s+` + tt.limitArg).
				WillReturnRows(sqlmock.NewRows(transferColumns).AddRow("xfer_1", from, to, "h", []byte(`{"k":"v"}`), "public", "sig",
					int64(1), int64(1), "witnessed", "rs", "ts", created))

			got, total, err := repo.List(context.Background(), tt.filter, models.Page{Limit: 50})
			require.NoError(t, err)
			assert.Equal(t, int64(1), total)
			require.Len(t, got, 1)
			assert.Equal(t, "v", got[0].Payload["k"])
			require.NotNil(t, got[0].RecipientLogIndex)
			assert.Equal(t, int64(1), *got[0].RecipientLogIndex)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestList_EmptyFilter(t *testing.T) {
	repo, _ := newRepoWithMock(t)
	_, _, err := repo.List(context.Background(), Filter{}, models.Page{Limit: 1})
	assert.Error(t, err)
}

func TestList_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`count`).WillReturnError(errors.New("boom"))

	_, _, err := repo.List(context.Background(), Filter{From: from}, models.Page{Limit: 1})
	require.Error(t, err)
	assert.Regexp(t, `db error: .*boom`, err.Error())
}
