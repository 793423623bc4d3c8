package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"announcebot/internal/announce"
	"announcebot/internal/eventbus"
	"announcebot/internal/notifier"
	"announcebot/internal/store"
	"announcebot/internal/trigger"
)

// Service is the scheduler engine. It owns the cron runner, keeps the
// job table consistent with the store, and runs the firing callbacks.
type Service struct {
	log      *slog.Logger
	st       store.Store
	notif    notifier.Notifier
	resolver notifier.AudienceResolver
	bus      eventbus.Bus

	mu     sync.Mutex // guards cfg, loc, c, runCtx and recovery counters
	cfg    Config
	loc    *time.Location
	c      *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc

	rescheduled int
	skipped     int

	jobs *jobTable

	// storeMu serializes every load→replace sequence. Two firings (or a
	// delete racing a create) would otherwise interleave their
	// read-modify-write and lose an update.
	storeMu sync.Mutex
}

func New(cfg Config, st store.Store, notif notifier.Notifier, resolver notifier.AudienceResolver, bus eventbus.Bus, log *slog.Logger) *Service {
	return &Service{
		log:      log,
		st:       st,
		notif:    notif,
		resolver: resolver,
		bus:      bus,
		cfg:      cfg,
		jobs:     newJobTable(),
	}
}

// Initialize starts the cron runner and performs recovery: every stored
// announcement is either re-registered or, for one-shots whose moment
// has already passed, left in the store unscheduled. Per-announcement
// scheduling errors are logged and do not abort the rest.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return errors.New("scheduler already initialized")
	}

	loc := s.loadLocationLocked()
	s.loc = loc
	s.c = cron.New(cron.WithLocation(loc))
	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.c.Start()

	s.recoverLocked()
	return nil
}

// recoverLocked reconciles the job table against the store. Call with
// s.mu held and the cron runner started.
func (s *Service) recoverLocked() {
	all, err := s.st.Load(context.Background())
	if err != nil {
		s.log.Error("recovery load failed; starting empty", slog.Any("err", err))
		all = nil
	}

	now := time.Now().In(s.loc)
	rescheduled, skipped := 0, 0
	for _, a := range all {
		if a.Repeating == announce.RepeatNone && s.anchorLocked(a.At.Time()).Before(now) {
			skipped++
			s.log.Info("skipping missed announcement", slog.String("id", a.ID), slog.Time("at", s.anchorLocked(a.At.Time())))
			s.publish(eventbus.TypeMissed, a.ID, a)
			continue
		}
		if err := s.scheduleLocked(a); err != nil {
			s.log.Error("recovery schedule failed", slog.String("id", a.ID), slog.Any("err", err))
			continue
		}
		rescheduled++
	}
	s.rescheduled, s.skipped = rescheduled, skipped
	s.log.Info("recovery complete", slog.Int("rescheduled", rescheduled), slog.Int("skipped", skipped))
}

// Stop halts the cron runner. In-flight firings are allowed to finish;
// Stop waits for them until ctx expires.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	cancel := s.cancel
	s.c = nil
	s.cancel = nil
	s.runCtx = nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	s.jobs.reset()
	stopped := c.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}
	if cancel != nil {
		cancel()
	}
	s.log.Info("scheduler stopped")
}

// Apply installs a new config. A timezone change restarts the cron
// runner and re-registers everything from the store.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	oldTZ := strings.TrimSpace(s.cfg.Timezone)
	newTZ := strings.TrimSpace(cfg.Timezone)
	s.cfg = cfg
	c := s.c
	if c == nil || oldTZ == newTZ {
		s.mu.Unlock()
		return
	}
	s.c = nil
	s.mu.Unlock()

	// Wait for in-flight firings without holding s.mu; they take it
	// briefly on their way through.
	s.jobs.reset()
	<-c.Stop().Done()

	s.mu.Lock()
	loc := s.loadLocationLocked()
	s.loc = loc
	s.c = cron.New(cron.WithLocation(loc))
	s.c.Start()
	s.recoverLocked()
	s.mu.Unlock()
	s.log.Info("scheduler restarted", slog.String("tz", loc.String()))
}

// Snapshot reports the current engine state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	running := s.c != nil
	c := s.c
	loc := s.loc
	rescheduled := s.rescheduled
	skipped := s.skipped
	s.mu.Unlock()

	tz := "Local"
	if loc != nil {
		tz = loc.String()
	}

	var jobs []JobInfo
	for id, eid := range s.jobs.snapshot() {
		info := JobInfo{ID: id}
		if c != nil {
			info.Next = c.Entry(eid).Next
		}
		jobs = append(jobs, info)
	}

	return Snapshot{
		Running:     running,
		Timezone:    tz,
		Jobs:        jobs,
		Rescheduled: rescheduled,
		Skipped:     skipped,
	}
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", slog.String("tz", tz), slog.Any("err", err))
		return time.Local
	}
	return loc
}

// anchorLocked re-interprets a persisted naive datetime in the engine's
// location. The store parses datetimes in the process-local zone, but
// the wall-clock fields are what the operator meant; every schedule
// kind must see the same instant for the same datetime. Call with s.mu
// held.
func (s *Service) anchorLocked(t time.Time) time.Time {
	loc := s.loc
	if loc == nil {
		loc = time.Local
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// scheduleLocked registers a live timer for a, replacing any existing
// timer under the same id. Call with s.mu held and s.c non-nil.
func (s *Service) scheduleLocked(a announce.Announcement) error {
	at := s.anchorLocked(a.At.Time())
	sched, err := trigger.Build(at, a.Repeating)
	if err != nil {
		return err
	}

	if prev, ok := s.jobs.unregister(a.ID); ok {
		s.c.Remove(prev)
		s.log.Debug("replaced existing timer", slog.String("id", a.ID))
	}

	id := a.ID
	eid := s.c.Schedule(sched, cron.FuncJob(func() {
		s.mu.Lock()
		ctx := s.runCtx
		s.mu.Unlock()
		if ctx == nil {
			return
		}
		s.fire(ctx, id)
	}))
	s.jobs.register(id, eid)
	s.log.Debug("timer registered", slog.String("id", id), slog.String("repeating", string(a.Repeating)), slog.Time("at", at))
	return nil
}

func (s *Service) publish(typ, id string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, ID: id, Data: data})
}
