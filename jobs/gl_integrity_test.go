package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/ledgertest"
	jobmetrics "github.com/odyssey-erp/odyssey-books/internal/jobs"
	"github.com/odyssey-erp/odyssey-books/jobs"
)

var scanDate = time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)

func newJob(t *testing.T, l *ledgertest.Ledger) (*jobs.GLIntegrityJob, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	job := jobs.NewGLIntegrityJob(l.Resolver, l.Reports, nil, jobmetrics.NewMetrics(registry))
	job.WithClock(func() time.Time { return scanDate })
	return job, registry
}

func TestGLIntegrityJobCleanLedger(t *testing.T) {
	l := ledgertest.NewLedger(t)
	_, entityID := l.Company(t)
	l.Global(t)
	draft, err := l.Journals.CreateDraftJournal(context.Background(), journals.DraftInput{
		EntityID: entityID,
		Date:     scanDate.AddDate(0, 0, -5),
		Lines: []journals.LineInput{
			ledgertest.Debit(l.Account(t, entityID, "1000"), "40.00"),
			ledgertest.Credit(l.Account(t, entityID, "4000"), "40.00"),
		},
	})
	require.NoError(t, err)
	_, err = l.Journals.MarkJournalAsPosted(context.Background(), journals.PostInput{EntityID: entityID, JournalID: draft.ID})
	require.NoError(t, err)

	job, registry := newJob(t, l)
	result, err := job.Run(context.Background(), jobs.GLIntegrityPayload{EntityID: "all"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scanned)
	assert.Empty(t, result.Failures)

	count, err := testutil.GatherAndCount(registry, "odyssey_ledger_integrity_violations_total")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGLIntegrityJobReportsViolations(t *testing.T) {
	l := ledgertest.NewLedger(t)
	_, entityID := l.Company(t)
	cash := l.Account(t, entityID, "1000")
	broken := journals.Journal{ID: uuid.New(), EntityID: entityID, Date: scanDate.AddDate(0, 0, -1), Status: journals.StatusPosted}
	l.Store.PutJournal(broken)
	l.Store.PutLine(journals.Line{
		ID: uuid.New(), JournalID: broken.ID, EntityID: entityID, LineNo: 1, AccountID: cash,
		Debit: decimal.RequireFromString("9.99"), Credit: decimal.Zero,
	})

	job, registry := newJob(t, l)
	result, err := job.Run(context.Background(), jobs.GLIntegrityPayload{EntityID: entityID.String()})
	require.ErrorIs(t, err, jobs.ErrIntegrityViolation)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, entityID, result.Failures[0].EntityID)
	require.Len(t, result.Failures[0].Unbalanced, 1)

	violations, err := testutil.GatherAndCount(registry, "odyssey_ledger_integrity_violations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, violations)
	failures, err := testutil.GatherAndCount(registry, "odyssey_jobs_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, failures)

	// An earlier cut-off excludes the broken journal.
	result, err = job.Run(context.Background(), jobs.GLIntegrityPayload{EntityID: entityID.String(), AsOf: "2024-03-01"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
}

func TestGLIntegrityHandleSkipsRetryOnViolation(t *testing.T) {
	l := ledgertest.NewLedger(t)
	_, entityID := l.Company(t)
	broken := journals.Journal{ID: uuid.New(), EntityID: entityID, Date: scanDate, Status: journals.StatusPosted}
	l.Store.PutJournal(broken)
	l.Store.PutLine(journals.Line{
		ID: uuid.New(), JournalID: broken.ID, EntityID: entityID, LineNo: 1,
		AccountID: l.Account(t, entityID, "1000"), Debit: decimal.Zero, Credit: decimal.RequireFromString("1"),
	})
	job, _ := newJob(t, l)

	task, err := jobs.NewGLIntegrityTask(entityID.String(), "")
	require.NoError(t, err)
	var payload jobs.GLIntegrityPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, entityID.String(), payload.EntityID)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.True(t, errors.Is(err, jobs.ErrIntegrityViolation))

	err = job.Handle(context.Background(), asynq.NewTask(jobs.TaskGLIntegrity, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestGLIntegrityJobRejectsBadPayload(t *testing.T) {
	l := ledgertest.NewLedger(t)
	job, _ := newJob(t, l)

	_, err := job.Run(context.Background(), jobs.GLIntegrityPayload{EntityID: "not-a-uuid"})
	assert.Error(t, err)
	_, err = job.Run(context.Background(), jobs.GLIntegrityPayload{EntityID: "all", AsOf: "31/03/2024"})
	assert.Error(t, err)

	var empty *jobs.GLIntegrityJob
	_, err = empty.Run(context.Background(), jobs.GLIntegrityPayload{})
	assert.Error(t, err)
}
