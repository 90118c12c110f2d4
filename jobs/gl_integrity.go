package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/entities"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	jobmetrics "github.com/odyssey-erp/odyssey-books/internal/jobs"
)

// TaskGLIntegrity schedules the ledger integrity scan.
const TaskGLIntegrity = "ledger:gl_integrity"

// ErrIntegrityViolation is returned when at least one entity failed the scan.
var ErrIntegrityViolation = errors.New("gl integrity: violations found")

// GLIntegrityPayload selects the entities and cut-off date of a scan. An
// empty or "all" entity scans every entity; an empty date means today.
type GLIntegrityPayload struct {
	EntityID string `json:"entity_id"`
	AsOf     string `json:"as_of,omitempty"`
}

// EntityLister enumerates ledger entities.
type EntityLister interface {
	List(ctx context.Context) ([]entities.Entity, error)
}

// IntegrityChecker recomputes the balances of one entity.
type IntegrityChecker interface {
	CheckIntegrity(ctx context.Context, entityID uuid.UUID, asOf time.Time) (reports.Integrity, error)
}

// GLIntegrityResult summarises one run.
type GLIntegrityResult struct {
	Scanned  int
	Failures []reports.Integrity
}

// GLIntegrityJob checks the trial balance identity and the per journal balance
// of posted journals for every entity.
type GLIntegrityJob struct {
	Entities EntityLister
	Checker  IntegrityChecker
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewGLIntegrityJob constructs the job handler.
func NewGLIntegrityJob(lister EntityLister, checker IntegrityChecker, logger *slog.Logger, metrics *jobmetrics.Metrics) *GLIntegrityJob {
	return &GLIntegrityJob{
		Entities: lister,
		Checker:  checker,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewGLIntegrityTask creates an Asynq task for the integrity scan.
func NewGLIntegrityTask(entityID, asOf string) (*asynq.Task, error) {
	if entityID == "" {
		entityID = "all"
	}
	body, err := json.Marshal(GLIntegrityPayload{EntityID: entityID, AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrity, body, asynq.Queue(QueueDefault), asynq.MaxRetry(1)), nil
}

// Handle executes the integrity scan for an Asynq task.
func (j *GLIntegrityJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload GLIntegrityPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	_, err := j.Run(ctx, payload)
	if errors.Is(err, ErrIntegrityViolation) {
		// Violations are not retried.
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	return err
}

// Run scans the entities selected by payload.
func (j *GLIntegrityJob) Run(ctx context.Context, payload GLIntegrityPayload) (result GLIntegrityResult, resultErr error) {
	if j == nil || j.Entities == nil || j.Checker == nil {
		return result, errors.New("gl integrity: dependencies not configured")
	}
	tracker := j.metrics().Track(TaskGLIntegrity)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	asOf := j.now()
	if payload.AsOf != "" {
		parsed, err := shared.ParseDate(payload.AsOf)
		if err != nil {
			return result, fmt.Errorf("gl integrity: as_of: %w", err)
		}
		asOf = parsed
	}
	ids, err := j.resolveEntities(ctx, payload.EntityID)
	if err != nil {
		j.log().Error("resolve entities", slog.String("entity", payload.EntityID), slog.Any("error", err))
		return result, err
	}

	start := time.Now()
	for _, id := range ids {
		report, err := j.Checker.CheckIntegrity(ctx, id, asOf)
		if err != nil {
			j.log().Error("check entity", slog.String("entity_id", id.String()), slog.Any("error", err))
			return result, err
		}
		result.Scanned++
		if report.OK() {
			continue
		}
		result.Failures = append(result.Failures, report)
		if !report.Difference.IsZero() {
			j.metrics().AddViolations("trial_balance", 1)
		}
		j.metrics().AddViolations("unbalanced_journal", len(report.Unbalanced))
		for _, ji := range report.Unbalanced {
			j.log().Error("posted journal out of balance",
				slog.String("entity_id", id.String()),
				slog.String("journal_id", ji.JournalID.String()),
				slog.String("debit", ji.Debit.String()),
				slog.String("credit", ji.Credit.String()))
		}
	}

	j.log().Info("gl integrity scan finished",
		slog.Int("entities", result.Scanned),
		slog.Int("failures", len(result.Failures)),
		slog.Duration("duration", time.Since(start)))
	if len(result.Failures) > 0 {
		return result, ErrIntegrityViolation
	}
	return result, nil
}

func (j *GLIntegrityJob) resolveEntities(ctx context.Context, raw string) ([]uuid.UUID, error) {
	if raw == "" || raw == "all" {
		list, err := j.Entities.List(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]uuid.UUID, 0, len(list))
		for _, e := range list {
			ids = append(ids, e.ID)
		}
		return ids, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid entity id %s", raw)
	}
	return []uuid.UUID{id}, nil
}

func (j *GLIntegrityJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *GLIntegrityJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskGLIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskGLIntegrity))
}

func (j *GLIntegrityJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *GLIntegrityJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
