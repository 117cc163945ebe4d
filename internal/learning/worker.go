package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/futureyou/futureyou-os/internal/config"
	"github.com/futureyou/futureyou-os/internal/domain"
	"github.com/futureyou/futureyou-os/internal/service"
	"golang.org/x/time/rate"
)

// minFingerprintGhosts is how many ghost and return cycles a fingerprint
// needs.
const minFingerprintGhosts = 2

// EventSource is the read side of the event log the worker needs.
// repository.EventRepo satisfies it.
type EventSource interface {
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]domain.Event, error)
	ListActiveUserIDs(ctx context.Context, since time.Time) ([]string, error)
}

// ModelStore is where learned inferences are merged. usermodel.LearnedStore
// satisfies it.
type ModelStore interface {
	Get(ctx context.Context, userID string) (*domain.LearnedUserModel, error)
	Update(ctx context.Context, userID string, u domain.LearnedUpdate) (*domain.LearnedUserModel, error)
	ResolveCommitment(ctx context.Context, userID, id string, kept bool, evidenceEventID string) error
}

// Report summarizes one worker run.
type Report struct {
	Scanned   int
	Processed int
	Skipped   int
	Failed    int
	Duration  time.Duration
	Users     []UserResult
}

// UserResult is what happened to one user.
type UserResult struct {
	UserID  string
	Events  int
	Skipped bool
	Updated []string
	// StepErrors lists steps that failed; the other steps were still merged.
	StepErrors []string
	Err        error
}

// Worker re-derives the learned model for recently active users. Users are
// processed one at a time, paced by a limiter.
type Worker struct {
	events   EventSource
	store    ModelStore
	cfg      config.WorkerConfig
	limiter  *rate.Limiter
	observer service.UseCaseObserver
	log      *slog.Logger
	now      func() time.Time
}

type WorkerOption func(*Worker)

func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) { w.log = l }
}

func WithWorkerObserver(o service.UseCaseObserver) WorkerOption {
	return func(w *Worker) { w.observer = o }
}

func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(w *Worker) { w.now = now }
}

// NewWorker builds a Worker. A zero UserDelayMs disables pacing.
func NewWorker(events EventSource, store ModelStore, cfg config.WorkerConfig, opts ...WorkerOption) *Worker {
	limit := rate.Inf
	if cfg.UserDelayMs > 0 {
		limit = rate.Every(time.Duration(cfg.UserDelayMs) * time.Millisecond)
	}
	w := &Worker{
		events:   events,
		store:    store,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 1),
		observer: service.NoopUseCaseObserver{},
		log:      slog.New(slog.DiscardHandler),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run processes every user active within the configured window. A failing
// user is recorded and skipped. Run only returns an error when the user list
// cannot be read or ctx ends.
func (w *Worker) Run(ctx context.Context) (report Report, err error) {
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
		w.observer.ObserveUseCase(ctx, service.UseCaseEvent{
			Name:      "learn-patterns",
			StartedAt: start,
			Duration:  report.Duration,
			Success:   err == nil,
			Err:       err,
			Fields: map[string]any{
				"scanned":   report.Scanned,
				"processed": report.Processed,
				"skipped":   report.Skipped,
				"failed":    report.Failed,
			},
		})
	}()

	since := w.now().AddDate(0, 0, -w.cfg.ActiveWindowDays)
	ids, err := w.events.ListActiveUserIDs(ctx, since)
	if err != nil {
		return report, fmt.Errorf("listing active users: %w", err)
	}
	w.log.InfoContext(ctx, "learning run starting", "users", len(ids))

	for _, id := range ids {
		if err := w.limiter.Wait(ctx); err != nil {
			return report, err
		}
		report.Scanned++

		res := w.processSafely(ctx, id)
		report.Users = append(report.Users, res)
		switch {
		case res.Err != nil:
			report.Failed++
			w.log.WarnContext(ctx, "learning failed", "user_id", id, "error", res.Err)
		case res.Skipped:
			report.Skipped++
			w.log.DebugContext(ctx, "learning skipped", "user_id", id, "events", res.Events)
		default:
			report.Processed++
			w.log.InfoContext(ctx, "learning updated", "user_id", id, "events", res.Events,
				"updated", res.Updated, "step_errors", res.StepErrors)
		}
	}

	w.log.InfoContext(ctx, "learning run complete",
		"scanned", report.Scanned, "processed", report.Processed,
		"skipped", report.Skipped, "failed", report.Failed,
		"duration", time.Since(start))
	return report, nil
}

func (w *Worker) processSafely(ctx context.Context, userID string) (res UserResult) {
	defer func() {
		if r := recover(); r != nil {
			res = UserResult{UserID: userID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return w.ProcessUser(ctx, userID)
}

// ProcessUser re-derives one user's learned model from the lookback window
// and merges it. Users below the event minimum are left untouched.
func (w *Worker) ProcessUser(ctx context.Context, userID string) UserResult {
	res := UserResult{UserID: userID}
	now := w.now()
	events, err := w.events.ListByUser(ctx, userID, now.AddDate(0, 0, -w.cfg.LookbackDays), now)
	if err != nil {
		res.Err = fmt.Errorf("loading events: %w", err)
		return res
	}
	res.Events = len(events)
	if len(events) < w.cfg.MinEvents {
		res.Skipped = true
		return res
	}

	existing, err := w.store.Get(ctx, userID)
	if err != nil {
		res.Err = err
		return res
	}
	if existing == nil {
		existing = domain.EmptyLearnedModel()
	}

	ghosts := DetectGhostPeriods(events)
	var u domain.LearnedUpdate

	w.step(ctx, &res, "fingerprint", func() error {
		if len(ghosts) < minFingerprintGhosts {
			return nil
		}
		u.Fingerprint = &domain.BehavioralFingerprint{
			RecoveryStyle:     InferRecoveryStyle(events, ghosts),
			ChallengeResponse: InferChallengeResponse(events),
			CelebrationTrap:   InferCelebrationTrap(events, w.cfg.LookbackDays),
			SlipSignature:     InferSlipSignature(events, ghosts, existing.Excuses),
			MotivationProfile: InferMotivation(events),
			DataPoints:        len(events),
			LastUpdated:       now,
		}
		return nil
	})
	w.step(ctx, &res, "shameSensitivity", func() error {
		s := InferShameSensitivity(events, ghosts)
		u.ShameSensitivity = &s
		return nil
	})
	w.step(ctx, &res, "triggerChains", func() error {
		if chains := DetectTriggerChains(events, ghosts, now); len(chains) > 0 {
			u.TriggerChains = chains
		}
		return nil
	})
	w.step(ctx, &res, "messagePatterns", func() error {
		if patterns := AnalyzeMessageEffectiveness(events); len(patterns) > 0 {
			u.MessagePatterns = patterns
		}
		return nil
	})

	n := len(events)
	tier := ConfidenceTier(n)
	u.DataPointsUsed = &n
	u.ConfidenceLevel = &tier

	if _, err := w.store.Update(ctx, userID, u); err != nil {
		res.Err = fmt.Errorf("merging learned model: %w", err)
		return res
	}
	res.Updated = append(res.Updated, updatedFields(u)...)

	ok := w.step(ctx, &res, "commitments", func() error {
		var errs []error
		for _, r := range ResolveCommitments(existing.Commitments, events, now) {
			errs = append(errs, w.store.ResolveCommitment(ctx, userID, r.CommitmentID, r.Kept, r.EvidenceEventID))
		}
		return errors.Join(errs...)
	})
	if ok {
		res.Updated = append(res.Updated, "commitments")
	}
	return res
}

// step runs one inference step, turning errors and panics into a recorded
// step failure. It reports whether the step succeeded.
func (w *Worker) step(ctx context.Context, res *UserResult, name string, fn func() error) bool {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err != nil {
		res.StepErrors = append(res.StepErrors, name)
		w.log.WarnContext(ctx, "learning step failed", "user_id", res.UserID, "step", name, "error", err)
		return false
	}
	return true
}

func updatedFields(u domain.LearnedUpdate) []string {
	var out []string
	if u.Fingerprint != nil {
		out = append(out, "fingerprint")
	}
	if u.ShameSensitivity != nil {
		out = append(out, "shameSensitivity")
	}
	if u.TriggerChains != nil {
		out = append(out, "triggerChains")
	}
	if u.MessagePatterns != nil {
		out = append(out, "messagePatterns")
	}
	return append(out, "confidenceLevel")
}
