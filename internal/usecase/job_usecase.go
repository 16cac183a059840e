package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"crm_pipeline/internal/domain/entities"
	"crm_pipeline/internal/infrastructure/logger"
	"crm_pipeline/internal/infrastructure/metrics"
	"crm_pipeline/internal/usecase/changes"
	"crm_pipeline/internal/usecase/interfaces"

	"github.com/google/uuid"
)

// IJobUseCase exposes the job lifecycle.
//
// Every mutating operation takes the acting user explicitly; resolving a
// fallback author is the caller's job (see ActorResolver).
//   - MoveStage: stage state machine, one stage_change activity per move
//   - ApplyUpdate: field updates with job_updated / stage_change / job_scheduled / note activities
//   - ArchiveJob, UnarchiveJob, DeleteJob: manual lifecycle flags
type IJobUseCase interface {
	CreateJob(ctx context.Context, in CreateJobInput, actor string) (entities.Job, error)
	GetJob(ctx context.Context, id string) (entities.Job, error)
	ListJobs(ctx context.Context, filter interfaces.JobFilter) ([]entities.Job, error)
	MoveStage(ctx context.Context, jobID string, to entities.Stage, note string, actor string) (entities.Job, error)
	ApplyUpdate(ctx context.Context, jobID string, patch JobPatch, actor string) (entities.Job, error)
	ArchiveJob(ctx context.Context, jobID string, actor string) (entities.Job, error)
	UnarchiveJob(ctx context.Context, jobID string, actor string) (entities.Job, error)
	DeleteJob(ctx context.Context, jobID string, actor string) error
	ListActivities(ctx context.Context, filter interfaces.ActivityFilter) ([]entities.Activity, error)
}

// CreateJobInput carries the client-supplied fields of a new job.
type CreateJobInput struct {
	CustomerID      string
	Stage           entities.Stage
	ValueEstimated  float64
	ValueContracted float64
	Appointment     *entities.Appointment
	Estimate        *entities.Estimate
	Contract        *entities.Contract
	Takeoff         *entities.Takeoff
	Schedule        *entities.Schedule
	Notes           []string
}

// JobPatch is a partial update. A nil field was not supplied. Sub-documents
// replace the stored one as a whole. Notes is the client's full notes array;
// only entries that are new to the job are kept.
type JobPatch struct {
	CustomerID      *string
	Stage           *entities.Stage
	ValueEstimated  *float64
	ValueContracted *float64
	Appointment     *entities.Appointment
	Estimate        *entities.Estimate
	Contract        *entities.Contract
	Takeoff         *entities.Takeoff
	Schedule        *entities.Schedule
	Calendar        *entities.Calendar
	FinalPayment    *entities.FinalPayment
	Notes           []entities.Note
}

type JobUseCase struct {
	jobs      interfaces.IJobRepository
	customers interfaces.ICustomerRepository
	audit     auditTrail
	log       logger.Logger
	now       func() time.Time
}

var _ IJobUseCase = (*JobUseCase)(nil)

func NewJobUseCase(
	jobs interfaces.IJobRepository,
	customers interfaces.ICustomerRepository,
	activities interfaces.IActivityRepository,
	log logger.Logger,
	m *metrics.Metrics,
) *JobUseCase {
	if log == nil {
		log = logger.NewNop()
	}
	return &JobUseCase{
		jobs:      jobs,
		customers: customers,
		audit:     newAuditTrail(activities, log, m),
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (u *JobUseCase) CreateJob(ctx context.Context, in CreateJobInput, actor string) (entities.Job, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return entities.Job{}, err
	}
	in.CustomerID = strings.TrimSpace(in.CustomerID)
	if in.CustomerID == "" {
		return entities.Job{}, ErrInvalidCustomerID
	}
	if in.Stage == "" {
		in.Stage = entities.DefaultStage
	}
	if !in.Stage.Valid() {
		return entities.Job{}, ErrInvalidStage
	}
	if in.ValueEstimated < 0 || in.ValueContracted < 0 {
		return entities.Job{}, ErrInvalidValue
	}

	customer, err := u.customers.GetByID(ctx, in.CustomerID)
	if err != nil {
		return entities.Job{}, err
	}
	if customer.ID == "" {
		return entities.Job{}, ErrCustomerNotFound
	}

	now := u.now()
	j := entities.Job{
		ID:              uuid.NewString(),
		CustomerID:      customer.ID,
		Stage:           in.Stage,
		ValueEstimated:  in.ValueEstimated,
		ValueContracted: in.ValueContracted,
		Appointment:     in.Appointment,
		Estimate:        in.Estimate,
		Contract:        in.Contract,
		Takeoff:         in.Takeoff,
		Schedule:        in.Schedule,
		Notes:           []entities.Note{},
		CreatedBy:       actor,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
	for _, content := range in.Notes {
		if content = strings.TrimSpace(content); content != "" {
			j.Notes = append(j.Notes, newNote(content, actor, now))
		}
	}

	created, err := u.jobs.Create(ctx, j.UTC())
	if err != nil {
		return entities.Job{}, err
	}
	u.log.Info("job created",
		logger.String("job_id", created.ID),
		logger.String("customer_id", created.CustomerID),
		logger.String("stage", string(created.Stage)),
	)

	u.audit.record(ctx, entities.Activity{
		Type:       entities.ActivityJobCreated,
		JobID:      created.ID,
		CustomerID: created.CustomerID,
		ToStage:    created.Stage,
		Note:       fmt.Sprintf("Job created in %s", created.Stage.Label()),
		CreatedBy:  actor,
	}, now)
	return created, nil
}

func (u *JobUseCase) GetJob(ctx context.Context, id string) (entities.Job, error) {
	return u.load(ctx, id)
}

func (u *JobUseCase) ListJobs(ctx context.Context, filter interfaces.JobFilter) ([]entities.Job, error) {
	if filter.Stage != "" && !filter.Stage.Valid() {
		return nil, ErrInvalidStage
	}
	jobs, err := u.jobs.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(jobs, func(i, k int) bool { return jobs[i].CreatedAt.After(jobs[k].CreatedAt) })
	return jobs, nil
}

// MoveStage moves a job to another stage. Any stage may follow any other;
// moving to the current stage is rejected without touching the job.
func (u *JobUseCase) MoveStage(ctx context.Context, jobID string, to entities.Stage, note string, actor string) (entities.Job, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return entities.Job{}, err
	}
	if !to.Valid() {
		return entities.Job{}, ErrInvalidStage
	}
	j, err := u.load(ctx, jobID)
	if err != nil {
		return entities.Job{}, err
	}
	if j.Stage == to {
		return entities.Job{}, ErrAlreadyInStage
	}

	now := u.now()
	from := j.Stage
	note = strings.TrimSpace(note)
	applyStageMove(&j, to, stageNote(from, to), actor, now)
	if note != "" {
		j.Notes = append(j.Notes, newNote(note, actor, now))
	}

	saved, err := u.jobs.Save(ctx, j)
	if err != nil {
		return entities.Job{}, err
	}
	u.log.Info("job stage moved",
		logger.String("job_id", saved.ID),
		logger.String("from", string(from)),
		logger.String("to", string(to)),
		logger.String("actor", actor),
	)

	if note == "" {
		note = movedNote(from, to)
	}
	u.audit.record(ctx, stageChangeActivity(saved, from, to, note, actor), now)
	return saved, nil
}

// ApplyUpdate merges patch onto the stored job, saves it and records what changed.
// Once the save succeeds the call succeeds; activity writes are best effort.
func (u *JobUseCase) ApplyUpdate(ctx context.Context, jobID string, patch JobPatch, actor string) (entities.Job, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return entities.Job{}, err
	}
	j, err := u.load(ctx, jobID)
	if err != nil {
		return entities.Job{}, err
	}
	if err := patch.validate(j); err != nil {
		return entities.Job{}, err
	}

	before := j.Clone()
	oldDoc, err := changes.ToDocument(before)
	if err != nil {
		return entities.Job{}, err
	}

	now := u.now()
	added := appendNewNotes(&j, patch.Notes, actor, now)
	patch.applyTo(&j)
	j = j.UTC()
	j.UpdatedAt = now
	j.Version++

	saved, err := u.jobs.Save(ctx, j)
	if err != nil {
		return entities.Job{}, err
	}

	newDoc, err := changes.ToDocument(saved)
	if err != nil {
		u.log.Warn("job saved but diff failed", logger.String("job_id", saved.ID), logger.Error(err))
		return saved, nil
	}
	diff := changes.Diff(oldDoc, newDoc)
	u.log.Info("job updated",
		logger.String("job_id", saved.ID),
		logger.Strings("changed", diff.Paths()),
		logger.Int("new_notes", len(added)),
	)

	u.recordUpdate(ctx, before, saved, diff, added, actor, now)
	return saved, nil
}

func (u *JobUseCase) recordUpdate(ctx context.Context, before, after entities.Job, diff changes.Changes, added []entities.Note, actor string, now time.Time) {
	scheduled := scheduleMoved(before.Schedule, after.Schedule)
	generic := diff
	if scheduled {
		generic = diff.Without("schedule")
	}

	if len(generic) > 0 {
		u.audit.record(ctx, entities.Activity{
			Type:       entities.ActivityJobUpdated,
			JobID:      after.ID,
			CustomerID: after.CustomerID,
			Changes:    generic,
			Note:       generic.Note(),
			CreatedBy:  actor,
		}, now)
	}

	if before.Stage != after.Stage {
		u.audit.record(ctx, stageChangeActivity(after, before.Stage, after.Stage, movedNote(before.Stage, after.Stage), actor), now)
	}

	if scheduled {
		u.audit.record(ctx, entities.Activity{
			Type:       entities.ActivityJobScheduled,
			JobID:      after.ID,
			CustomerID: after.CustomerID,
			Note:       scheduledNote(after.Schedule),
			CreatedBy:  actor,
		}, now)
	}

	for _, n := range added {
		u.audit.record(ctx, entities.Activity{
			Type:       entities.ActivityNote,
			JobID:      after.ID,
			CustomerID: after.CustomerID,
			Note:       n.Content,
			CreatedBy:  actor,
		}, now)
	}
}

func (u *JobUseCase) ArchiveJob(ctx context.Context, jobID string, actor string) (entities.Job, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return entities.Job{}, err
	}
	j, err := u.load(ctx, jobID)
	if err != nil {
		return entities.Job{}, err
	}
	if j.IsArchived {
		return entities.Job{}, ErrAlreadyArchived
	}

	now := u.now()
	j.IsArchived = true
	j.ArchivedAt = &now
	j.ArchivedBy = actor
	j.UpdatedAt = now
	j.Version++

	saved, err := u.jobs.Save(ctx, j)
	if err != nil {
		return entities.Job{}, err
	}
	u.audit.record(ctx, entities.Activity{
		Type:       entities.ActivityJobArchived,
		JobID:      saved.ID,
		CustomerID: saved.CustomerID,
		Note:       "Job archived",
		CreatedBy:  actor,
	}, now)
	return saved, nil
}

func (u *JobUseCase) UnarchiveJob(ctx context.Context, jobID string, actor string) (entities.Job, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return entities.Job{}, err
	}
	j, err := u.load(ctx, jobID)
	if err != nil {
		return entities.Job{}, err
	}
	if !j.IsArchived {
		return entities.Job{}, ErrNotArchived
	}

	now := u.now()
	j.IsArchived = false
	j.ArchivedAt = nil
	j.ArchivedBy = ""
	j.UpdatedAt = now
	j.Version++

	saved, err := u.jobs.Save(ctx, j)
	if err != nil {
		return entities.Job{}, err
	}
	u.audit.record(ctx, entities.Activity{
		Type:       entities.ActivityJobUnarchived,
		JobID:      saved.ID,
		CustomerID: saved.CustomerID,
		Note:       "Job restored from archive",
		CreatedBy:  actor,
	}, now)
	return saved, nil
}

// DeleteJob writes the job_deleted activity first so the trail survives the job.
func (u *JobUseCase) DeleteJob(ctx context.Context, jobID string, actor string) error {
	actor, err := requireActor(actor)
	if err != nil {
		return err
	}
	j, err := u.load(ctx, jobID)
	if err != nil {
		return err
	}

	now := u.now()
	u.audit.record(ctx, entities.Activity{
		Type:       entities.ActivityJobDeleted,
		JobID:      j.ID,
		CustomerID: j.CustomerID,
		FromStage:  j.Stage,
		Note:       fmt.Sprintf("Job deleted from %s", j.Stage.Label()),
		CreatedBy:  actor,
	}, now)

	if err := u.jobs.DeleteByID(ctx, j.ID); err != nil {
		return err
	}
	u.log.Info("job deleted", logger.String("job_id", j.ID), logger.String("actor", actor))
	return nil
}

// ListActivities returns the audit trail of a job or a customer, newest first.
func (u *JobUseCase) ListActivities(ctx context.Context, filter interfaces.ActivityFilter) ([]entities.Activity, error) {
	filter.JobID = strings.TrimSpace(filter.JobID)
	filter.CustomerID = strings.TrimSpace(filter.CustomerID)
	if filter.JobID == "" && filter.CustomerID == "" {
		return nil, NewValidationError("jobId", "or customerId is required")
	}
	if u.audit.repo == nil {
		return []entities.Activity{}, nil
	}
	acts, err := u.audit.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(acts, func(i, k int) bool { return acts[i].CreatedAt.After(acts[k].CreatedAt) })
	if filter.Limit > 0 && len(acts) > filter.Limit {
		acts = acts[:filter.Limit]
	}
	return acts, nil
}

func (u *JobUseCase) load(ctx context.Context, id string) (entities.Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return entities.Job{}, ErrInvalidJobID
	}
	j, err := u.jobs.GetByID(ctx, id)
	if err != nil {
		return entities.Job{}, err
	}
	if j.ID == "" {
		return entities.Job{}, ErrJobNotFound
	}
	return j, nil
}

func (p JobPatch) validate(current entities.Job) error {
	if p.CustomerID != nil && strings.TrimSpace(*p.CustomerID) != current.CustomerID {
		return ErrCustomerImmutable
	}
	if p.Stage != nil && !p.Stage.Valid() {
		return ErrInvalidStage
	}
	if p.ValueEstimated != nil && *p.ValueEstimated < 0 {
		return NewValidationError("valueEstimated", "must not be negative")
	}
	if p.ValueContracted != nil && *p.ValueContracted < 0 {
		return NewValidationError("valueContracted", "must not be negative")
	}
	return nil
}

func (p JobPatch) applyTo(j *entities.Job) {
	if p.Stage != nil {
		j.Stage = *p.Stage
	}
	if p.ValueEstimated != nil {
		j.ValueEstimated = *p.ValueEstimated
	}
	if p.ValueContracted != nil {
		j.ValueContracted = *p.ValueContracted
	}
	if p.Appointment != nil {
		v := *p.Appointment
		j.Appointment = &v
	}
	if p.Estimate != nil {
		v := *p.Estimate
		j.Estimate = &v
	}
	if p.Contract != nil {
		v := *p.Contract
		j.Contract = &v
	}
	if p.Takeoff != nil {
		v := *p.Takeoff
		j.Takeoff = &v
	}
	if p.Schedule != nil {
		v := *p.Schedule
		j.Schedule = &v
	}
	if p.Calendar != nil {
		v := *p.Calendar
		j.Calendar = &v
	}
	if p.FinalPayment != nil {
		v := *p.FinalPayment
		j.FinalPayment = &v
	}
}

// appendNewNotes appends the incoming notes the job does not know yet and
// returns them. Author and timestamp are always set here, never by the client.
func appendNewNotes(j *entities.Job, incoming []entities.Note, actor string, now time.Time) []entities.Note {
	if len(incoming) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(j.Notes))
	for _, n := range j.Notes {
		known[n.ID] = struct{}{}
	}

	var added []entities.Note
	for _, n := range incoming {
		if n.ID != "" {
			if _, ok := known[n.ID]; ok {
				continue
			}
		}
		content := strings.TrimSpace(n.Content)
		if content == "" {
			continue
		}
		nn := entities.Note{
			ID:            n.ID,
			Content:       content,
			CreatedBy:     actor,
			CreatedAt:     now,
			IsStageChange: n.IsStageChange,
			IsAppointment: n.IsAppointment,
		}
		if nn.ID == "" {
			nn.ID = uuid.NewString()
		}
		known[nn.ID] = struct{}{}
		added = append(added, nn)
	}
	j.Notes = append(j.Notes, added...)
	return added
}

// applyStageMove sets the stage and appends a stage-change note with content.
func applyStageMove(j *entities.Job, to entities.Stage, content, author string, now time.Time) {
	n := newNote(content, author, now)
	n.IsStageChange = true

	j.Stage = to
	j.Notes = append(j.Notes, n)
	j.UpdatedAt = now
	j.Version++
}

func stageNote(from, to entities.Stage) string {
	return fmt.Sprintf("Stage updated: %s → %s", from.Label(), to.Label())
}

func stageChangeActivity(j entities.Job, from, to entities.Stage, note, actor string) entities.Activity {
	return entities.Activity{
		Type:       entities.ActivityStageChange,
		JobID:      j.ID,
		CustomerID: j.CustomerID,
		FromStage:  from,
		ToStage:    to,
		Note:       note,
		CreatedBy:  actor,
	}
}

func movedNote(from, to entities.Stage) string {
	return fmt.Sprintf("Moved from %s to %s", from.Label(), to.Label())
}

func newNote(content, author string, now time.Time) entities.Note {
	return entities.Note{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedBy: author,
		CreatedAt: now,
	}
}

// scheduleMoved compares start and end as instants, so a zone change alone is not a move.
func scheduleMoved(before, after *entities.Schedule) bool {
	var bs, be, as, ae *time.Time
	if before != nil {
		bs, be = before.StartDate, before.EndDate
	}
	if after != nil {
		as, ae = after.StartDate, after.EndDate
	}
	return !sameInstant(bs, as) || !sameInstant(be, ae)
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

const scheduleLayout = "Mon Jan 2, 2006 3:04 PM MST"

func scheduledNote(s *entities.Schedule) string {
	start, end := "TBD", "TBD"
	if s != nil && s.StartDate != nil {
		start = s.StartDate.Format(scheduleLayout)
	}
	if s != nil && s.EndDate != nil {
		end = s.EndDate.Format(scheduleLayout)
	}
	return fmt.Sprintf("Job scheduled: %s - %s", start, end)
}

func requireActor(actor string) (string, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return "", ErrMissingActor
	}
	return actor, nil
}
