package repositories

import (
	"context"
	"errors"

	"sketchroom/internal/core/domain"
	"sketchroom/internal/core/ports"
	"sketchroom/pkg/circuitbreaker"
)

// guard runs repository calls through a circuit breaker. Domain outcomes
// such as not-found are answers from a healthy backend and do not count as
// failures.
type guard struct {
	cb *circuitbreaker.CircuitBreaker
}

func (g guard) run(fn func() error) error {
	var outcome error
	err := g.cb.Execute(func() error {
		err := fn()
		if isDomainOutcome(err) {
			outcome = err
			return nil
		}
		return err
	})
	if outcome != nil {
		return outcome
	}
	return err
}

func isDomainOutcome(err error) bool {
	return errors.Is(err, domain.ErrUserNotFound) ||
		errors.Is(err, domain.ErrUserExists) ||
		errors.Is(err, domain.ErrWhiteboardNotFound) ||
		errors.Is(err, domain.ErrSnapshotNotFound) ||
		errors.Is(err, domain.ErrSessionNotFound)
}

type guardedUsers struct {
	guard
	next ports.UserRepository
}

func (r *guardedUsers) Create(ctx context.Context, user *domain.User) error {
	return r.run(func() error { return r.next.Create(ctx, user) })
}

func (r *guardedUsers) GetByID(ctx context.Context, id domain.UserID) (user *domain.User, err error) {
	err = r.run(func() error {
		user, err = r.next.GetByID(ctx, id)
		return err
	})
	return user, err
}

func (r *guardedUsers) GetByUsername(ctx context.Context, username string) (user *domain.User, err error) {
	err = r.run(func() error {
		user, err = r.next.GetByUsername(ctx, username)
		return err
	})
	return user, err
}

type guardedWhiteboards struct {
	guard
	next ports.WhiteboardRepository
}

func (r *guardedWhiteboards) Create(ctx context.Context, wb *domain.Whiteboard) error {
	return r.run(func() error { return r.next.Create(ctx, wb) })
}

func (r *guardedWhiteboards) GetByID(ctx context.Context, id domain.WhiteboardID) (wb *domain.Whiteboard, err error) {
	err = r.run(func() error {
		wb, err = r.next.GetByID(ctx, id)
		return err
	})
	return wb, err
}

func (r *guardedWhiteboards) Update(ctx context.Context, wb *domain.Whiteboard) error {
	return r.run(func() error { return r.next.Update(ctx, wb) })
}

func (r *guardedWhiteboards) Delete(ctx context.Context, id domain.WhiteboardID) error {
	return r.run(func() error { return r.next.Delete(ctx, id) })
}

func (r *guardedWhiteboards) ListAccessible(ctx context.Context, userID domain.UserID) (list []*domain.Whiteboard, err error) {
	err = r.run(func() error {
		list, err = r.next.ListAccessible(ctx, userID)
		return err
	})
	return list, err
}

type guardedSnapshots struct {
	guard
	next ports.SnapshotRepository
}

func (r *guardedSnapshots) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	return r.run(func() error { return r.next.Save(ctx, snapshot) })
}

func (r *guardedSnapshots) Get(ctx context.Context, id domain.WhiteboardID) (snapshot *domain.Snapshot, err error) {
	err = r.run(func() error {
		snapshot, err = r.next.Get(ctx, id)
		return err
	})
	return snapshot, err
}

func (r *guardedSnapshots) Delete(ctx context.Context, id domain.WhiteboardID) error {
	return r.run(func() error { return r.next.Delete(ctx, id) })
}

type guardedSessions struct {
	guard
	next ports.SessionRepository
}

func (r *guardedSessions) Create(ctx context.Context, session *domain.Session) error {
	return r.run(func() error { return r.next.Create(ctx, session) })
}

func (r *guardedSessions) GetByID(ctx context.Context, id domain.SessionID) (session *domain.Session, err error) {
	err = r.run(func() error {
		session, err = r.next.GetByID(ctx, id)
		return err
	})
	return session, err
}

func (r *guardedSessions) Delete(ctx context.Context, id domain.SessionID) error {
	return r.run(func() error { return r.next.Delete(ctx, id) })
}

func guardUsers(cb *circuitbreaker.CircuitBreaker, next ports.UserRepository) ports.UserRepository {
	if cb == nil {
		return next
	}
	return &guardedUsers{guard: guard{cb: cb}, next: next}
}

func guardWhiteboards(cb *circuitbreaker.CircuitBreaker, next ports.WhiteboardRepository) ports.WhiteboardRepository {
	if cb == nil {
		return next
	}
	return &guardedWhiteboards{guard: guard{cb: cb}, next: next}
}

func guardSnapshots(cb *circuitbreaker.CircuitBreaker, next ports.SnapshotRepository) ports.SnapshotRepository {
	if cb == nil {
		return next
	}
	return &guardedSnapshots{guard: guard{cb: cb}, next: next}
}

func guardSessions(cb *circuitbreaker.CircuitBreaker, next ports.SessionRepository) ports.SessionRepository {
	if cb == nil {
		return next
	}
	return &guardedSessions{guard: guard{cb: cb}, next: next}
}
