package lifecycle

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"bidtrack/models"
)

// ProjectStore is the primary write path. The implementation must persist the
// project row and, when asked, the dependent contract row in one transaction.
type ProjectStore interface {
	UpdateProjectTransition(ctx context.Context, p *models.Project, ensureContract bool) error
}

// AuditStore is the append-only side channel. Writes here are best-effort:
// the engine logs failures and carries on with the primary transition.
type AuditStore interface {
	CreateSnapshot(ctx context.Context, s *models.Snapshot) error
	CreateBidTypeHistory(ctx context.Context, h *models.BidTypeHistory) error
	CreateStatusHistory(ctx context.Context, h *models.StatusHistory) error
	CreateChangeLog(ctx context.Context, c *models.ChangeLog) error
}

// Change describes a requested status and/or bid type transition. Explicit
// milestone dates take precedence over automatic stamping.
type Change struct {
	Status  *string
	BidType *string

	SubmissionDate *time.Time
	AwardDate      *time.Time
	LostDate       *time.Time

	// ClientName feeds the internal ID rebuild; the project row only holds
	// the client reference.
	ClientName string

	Actor *string
	Notes *string
}

// TransitionResult reports the side effects a transition performed, so
// callers and tests see them instead of guessing at persistence hooks.
type TransitionResult struct {
	StatusChanged     bool
	BidTypeChanged    bool
	StampedSubmission *time.Time
	StampedAward      *time.Time
	StampedLost       *time.Time
	ContractEnsured   bool
	SnapshotsWritten  int
	HistoryWritten    int
	ChangeLogWritten  int

	// AuditErrs collects non-fatal audit sink failures. The transition
	// itself succeeded whenever Apply returned a nil error.
	AuditErrs []error
}

// Engine owns status and bid type writes. Transitions on the same project are
// serialized on a per-project lock; different projects proceed in parallel.
type Engine struct {
	store ProjectStore
	audit AuditStore
	log   *zap.Logger
	now   func() time.Time

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewEngine(store ProjectStore, audit AuditStore, log *zap.Logger) *Engine {
	return &Engine{
		store: store,
		audit: audit,
		log:   log,
		now:   time.Now,
		locks: make(map[int]*sync.Mutex),
	}
}

// SetNow overrides the clock used for automatic milestone dates.
func (e *Engine) SetNow(now func() time.Time) { e.now = now }

func (e *Engine) lockFor(projectID int) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[projectID] = l
	}
	return l
}

// Apply performs a status/bid type transition on a persisted project:
// stamps milestone dates, rebuilds the internal ID, ensures the contract row
// for wins, persists the primary write atomically and records the audit
// trail (snapshot before the change, history and changelog after).
//
// Milestone dates are assigned forward-only: a date already set is never
// overwritten, and an explicit date in the change wins over "today".
func (e *Engine) Apply(ctx context.Context, p *models.Project, ch Change) (*TransitionResult, error) {
	l := e.lockFor(p.ID)
	l.Lock()
	defer l.Unlock()

	prev := *p
	res := &TransitionResult{}

	newStatus := p.Status
	if ch.Status != nil {
		newStatus = *ch.Status
	}
	newBidType := p.BidType
	if ch.BidType != nil {
		newBidType = *ch.BidType
	}

	res.StatusChanged = newStatus != prev.Status
	res.BidTypeChanged = newBidType != prev.BidType

	// Explicit dates first, never overwriting what is already set.
	if ch.SubmissionDate != nil && p.SubmissionDate == nil {
		p.SubmissionDate = ch.SubmissionDate
	}
	if ch.AwardDate != nil && p.AwardDate == nil {
		p.AwardDate = ch.AwardDate
	}
	if ch.LostDate != nil && p.LostDate == nil {
		p.LostDate = ch.LostDate
	}

	today := dateOnly(e.now())

	// Automatic milestone stamping for the known transitions.
	if newStatus == models.StatusSubmitted && prev.Status != models.StatusSubmitted {
		if p.SubmissionDate == nil {
			p.SubmissionDate = &today
			res.StampedSubmission = &today
		}
	}
	if prev.Status == models.StatusSubmitted && newStatus == models.StatusWon {
		if p.AwardDate == nil {
			p.AwardDate = &today
			res.StampedAward = &today
		}
	}
	if prev.Status == models.StatusSubmitted && newStatus == models.StatusLost {
		if p.LostDate == nil {
			p.LostDate = &today
			res.StampedLost = &today
		}
	}

	p.Status = newStatus
	p.BidType = newBidType

	// Pre-change snapshots, tagged by change category.
	if res.BidTypeChanged {
		e.writeSnapshot(ctx, &prev, models.ChangeBid, ch, res)
	}
	if res.StatusChanged {
		e.writeSnapshot(ctx, &prev, models.ChangeStatus, ch, res)
	}

	if res.StatusChanged {
		p.InternalID = InternalID(p, ch.ClientName, true)
	}

	ensureContract := res.StatusChanged && newStatus == models.StatusWon
	res.ContractEnsured = ensureContract

	if err := e.store.UpdateProjectTransition(ctx, p, ensureContract); err != nil {
		// Primary write failed; roll the in-memory record back.
		*p = prev
		return nil, err
	}

	if res.BidTypeChanged {
		h := &models.BidTypeHistory{
			ProjectID:       p.ID,
			PreviousBidType: strPtr(prev.BidType),
			NewBidType:      newBidType,
			Notes:           ch.Notes,
		}
		if err := e.audit.CreateBidTypeHistory(ctx, h); err != nil {
			e.auditFailed(res, "bid type history", p.ID, err)
		} else {
			res.HistoryWritten++
		}

		cl := &models.ChangeLog{
			ProjectID:     p.ID,
			ChangeType:    models.ChangeBid,
			FieldName:     "bid_type",
			PreviousValue: strPtr(prev.BidType),
			NewValue:      strPtr(newBidType),
			ChangedBy:     ch.Actor,
			Notes:         ch.Notes,
		}
		if err := e.audit.CreateChangeLog(ctx, cl); err != nil {
			e.auditFailed(res, "changelog", p.ID, err)
		} else {
			res.ChangeLogWritten++
		}
	}

	if res.StatusChanged {
		h := &models.StatusHistory{
			ProjectID:      p.ID,
			PreviousStatus: strPtr(prev.Status),
			NewStatus:      newStatus,
			Notes:          ch.Notes,
		}
		if err := e.audit.CreateStatusHistory(ctx, h); err != nil {
			e.auditFailed(res, "status history", p.ID, err)
		} else {
			res.HistoryWritten++
		}

		cl := &models.ChangeLog{
			ProjectID:     p.ID,
			ChangeType:    models.ChangeStatus,
			FieldName:     "status",
			PreviousValue: strPtr(prev.Status),
			NewValue:      strPtr(newStatus),
			EventDate:     eventDate(p),
			ChangedBy:     ch.Actor,
			Notes:         ch.Notes,
		}
		if err := e.audit.CreateChangeLog(ctx, cl); err != nil {
			e.auditFailed(res, "changelog", p.ID, err)
		} else {
			res.ChangeLogWritten++
		}
	}

	return res, nil
}

func (e *Engine) writeSnapshot(ctx context.Context, prev *models.Project, changeType string, ch Change, res *TransitionResult) {
	data, err := json.Marshal(prev)
	if err != nil {
		e.auditFailed(res, "snapshot marshal", prev.ID, err)
		return
	}
	name := prev.InternalID
	if name == "" {
		name = prev.Name
	}
	s := &models.Snapshot{
		ProjectID:    prev.ID,
		ChangeType:   changeType,
		Snapshot:     data,
		SnapshotName: &name,
		CreatedBy:    ch.Actor,
	}
	if err := e.audit.CreateSnapshot(ctx, s); err != nil {
		e.auditFailed(res, "snapshot", prev.ID, err)
		return
	}
	res.SnapshotsWritten++
}

func (e *Engine) auditFailed(res *TransitionResult, what string, projectID int, err error) {
	res.AuditErrs = append(res.AuditErrs, err)
	e.log.Warn("audit write failed",
		zap.String("record", what),
		zap.Int("project_id", projectID),
		zap.Error(err))
}

// eventDate picks the milestone date relevant to the new status, for the
// unified changelog entry.
func eventDate(p *models.Project) *time.Time {
	switch p.Status {
	case models.StatusSubmitted:
		return p.SubmissionDate
	case models.StatusWon:
		return p.AwardDate
	case models.StatusLost:
		return p.LostDate
	default:
		return nil
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }
