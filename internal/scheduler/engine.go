package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"announcebot/internal/announce"
	"announcebot/internal/eventbus"
)

// Create persists a new announcement and registers its timer. The
// fields in p are assumed validated by the caller.
//
// A store write failure is returned and nothing is scheduled. A
// scheduling failure after a successful write is logged, not returned:
// the record is durable and recovery will retry it on the next start.
func (s *Service) Create(ctx context.Context, p CreateParams) (announce.Announcement, error) {
	a := announce.Announcement{
		ID:           uuid.NewString(),
		Kind:         p.Kind,
		Text:         p.Text,
		Location:     p.Location,
		PracticeTime: p.PracticeTime,
		At:           announce.NewLocalTime(p.FireAt),
		Repeating:    p.Repeating,
		Audience:     p.Audience,
		CreatedBy:    p.CreatedBy,
		CreatedAt:    announce.NewLocalTime(time.Now()),
	}

	s.storeMu.Lock()
	all, err := s.st.Load(ctx)
	if err == nil {
		err = s.st.Replace(ctx, append(all, a))
	}
	s.storeMu.Unlock()
	if err != nil {
		return announce.Announcement{}, fmt.Errorf("persist announcement: %w", err)
	}

	s.mu.Lock()
	if s.c != nil {
		if err := s.scheduleLocked(a); err != nil {
			s.log.Error("schedule failed; stored but inert until restart", slog.String("id", a.ID), slog.Any("err", err))
		}
	} else {
		s.log.Debug("engine not running; announcement will be scheduled on initialize", slog.String("id", a.ID))
	}
	s.mu.Unlock()

	s.log.Info("announcement created", slog.String("id", a.ID), slog.Time("at", p.FireAt), slog.String("repeating", string(p.Repeating)))
	s.publish(eventbus.TypeCreated, a.ID, a)
	return a, nil
}

// Delete removes the announcement with the given id. It reports false
// when no record matched; storage is then left untouched. Timer
// cancellation is best-effort: the store is the source of truth, so a
// missing timer is only logged.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	s.storeMu.Lock()
	all, err := s.st.Load(ctx)
	if err != nil {
		s.storeMu.Unlock()
		return false, err
	}
	kept := all[:0:0]
	for _, a := range all {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(all) {
		s.storeMu.Unlock()
		return false, nil
	}
	err = s.st.Replace(ctx, kept)
	s.storeMu.Unlock()
	if err != nil {
		return false, fmt.Errorf("persist removal: %w", err)
	}

	s.mu.Lock()
	if eid, ok := s.jobs.unregister(id); ok {
		if s.c != nil {
			s.c.Remove(eid)
		}
	} else {
		s.log.Warn("timer not found; treating as already cancelled", slog.String("id", id))
	}
	s.mu.Unlock()

	s.log.Info("announcement deleted", slog.String("id", id))
	s.publish(eventbus.TypeDeleted, id, nil)
	return true, nil
}

// ListAll returns every stored announcement.
func (s *Service) ListAll(ctx context.Context) ([]announce.Announcement, error) {
	return s.st.Load(ctx)
}

// fire runs one firing: reload the record fresh, resolve the audience,
// render, deliver, and for one-shots remove the record synchronously so
// it can never fire twice. Every failure is logged and contained; a
// firing must not take down the runner or other jobs.
func (s *Service) fire(ctx context.Context, id string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in firing", slog.String("id", id), slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
		}
	}()

	// Always reload: the stored record, not any cached copy, decides
	// what goes out and whether this id still exists at all.
	all, err := s.st.Load(ctx)
	if err != nil {
		s.log.Error("firing load failed", slog.String("id", id), slog.Any("err", err))
		return
	}
	var rec *announce.Announcement
	for i := range all {
		if all[i].ID == id {
			rec = &all[i]
			break
		}
	}
	if rec == nil {
		s.log.Warn("announcement vanished before firing", slog.String("id", id))
		return
	}

	mention, err := s.resolver.Resolve(ctx, rec.Audience)
	if err != nil {
		s.log.Error("audience resolution failed; firing aborted", slog.String("id", id), slog.String("audience", rec.Audience), slog.Any("err", err))
		return
	}

	s.mu.Lock()
	channel := s.cfg.Channel
	s.mu.Unlock()

	if err := s.notif.Deliver(ctx, channel, rec.Render(mention)); err != nil {
		// One-shots are deliberately kept on delivery failure so a
		// missed send stays visible for manual cleanup.
		s.log.Error("delivery failed", slog.String("id", id), slog.String("channel", channel), slog.Any("err", err))
		return
	}
	s.log.Info("announcement sent", slog.String("id", id), slog.String("channel", channel))
	s.publish(eventbus.TypeFired, id, *rec)

	if rec.Repeating == announce.RepeatNone {
		if ok, err := s.Delete(ctx, id); err != nil {
			s.log.Error("one-shot cleanup failed", slog.String("id", id), slog.Any("err", err))
		} else if !ok {
			s.log.Warn("one-shot already removed", slog.String("id", id))
		}
	}
}
