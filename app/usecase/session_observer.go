package usecase

import (
	"context"
	"log/slog"
	"sync"

	"account-service/app/domain"
	"account-service/app/metrics"
	"account-service/app/port"
)

// SessionObserver keeps the single shared view of the current session in sync
// with the identity gateway. One goroutine owns every write; readers get
// copies through Snapshot and Watch.
type SessionObserver struct {
	gateway port.IdentityGateway
	logger  *slog.Logger

	mu       sync.RWMutex
	snapshot domain.SessionSnapshot
	watchers map[uint64]chan domain.SessionSnapshot
	nextID   uint64

	startOnce sync.Once
	ready     chan struct{}
	done      chan struct{}
}

// NewSessionObserver creates an observer in the loading state
func NewSessionObserver(gateway port.IdentityGateway, logger *slog.Logger) *SessionObserver {
	return &SessionObserver{
		gateway:  gateway,
		logger:   logger.With("component", "session_observer"),
		snapshot: domain.SessionSnapshot{Loading: true},
		watchers: make(map[uint64]chan domain.SessionSnapshot),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start subscribes to gateway events and resolves the current session in the
// background. It returns immediately; the snapshot stays Loading until the
// first resolution completes. Subsequent calls are no-ops.
func (o *SessionObserver) Start(ctx context.Context) {
	o.startOnce.Do(func() {
		// Subscribe before resolving so no change between the two is lost.
		events := o.gateway.Subscribe(ctx)
		go o.run(ctx, events)
	})
}

// Done is closed when the observer has stopped
func (o *SessionObserver) Done() <-chan struct{} {
	return o.done
}

// WaitReady blocks until the initial resolution is applied or ctx is done
func (o *SessionObserver) WaitReady(ctx context.Context) error {
	select {
	case <-o.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current session state
func (o *SessionObserver) Snapshot() domain.SessionSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshot
}

// Watch delivers the current snapshot and then every change until ctx is done.
// A slow reader only ever misses intermediate states, never the latest one.
func (o *SessionObserver) Watch(ctx context.Context) <-chan domain.SessionSnapshot {
	ch := make(chan domain.SessionSnapshot, 1)

	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.watchers[id] = ch
	ch <- o.snapshot
	o.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-o.done:
		}
		o.mu.Lock()
		if _, ok := o.watchers[id]; ok {
			delete(o.watchers, id)
			close(ch)
		}
		o.mu.Unlock()
	}()

	return ch
}

func (o *SessionObserver) run(ctx context.Context, events <-chan domain.AuthEvent) {
	defer func() {
		o.mu.Lock()
		for id, ch := range o.watchers {
			delete(o.watchers, id)
			close(ch)
		}
		o.mu.Unlock()
		close(o.done)
	}()

	session, err := o.gateway.CurrentSession(ctx)
	if err != nil {
		o.logger.Warn("failed to resolve current session, treating as signed out", "error", err)
		session = nil
	}
	o.apply(domain.EventInitialSession, session)
	close(o.ready)

	o.logger.Info("session observer started",
		"authenticated", session != nil)

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("session observer stopped")
			return
		case event, ok := <-events:
			if !ok {
				o.logger.Info("session event stream closed")
				return
			}
			o.apply(event.Type, event.Session)
		}
	}
}

// apply is only called from the run goroutine
func (o *SessionObserver) apply(eventType domain.AuthEventType, session *domain.Session) {
	if eventType == domain.EventSignedOut {
		session = nil
	}

	o.mu.Lock()
	next := domain.SessionSnapshot{Version: o.snapshot.Version + 1}
	if session != nil {
		identity := session.Identity
		next.Identity = &identity
		next.Scope = session.Scope
		next.ExpiresAt = session.ExpiresAt
	}
	o.snapshot = next

	for _, ch := range o.watchers {
		publishLatest(ch, next)
	}
	o.mu.Unlock()

	metrics.RecordAuthEvent(string(eventType))
	metrics.SetSessionAuthenticated(next.Authenticated())

	o.logger.Debug("session state changed",
		"event", eventType,
		"authenticated", next.Authenticated(),
		"recovery_only", next.RecoveryOnly(),
		"version", next.Version)
}

// publishLatest replaces any undelivered snapshot with the newest one
func publishLatest(ch chan domain.SessionSnapshot, snapshot domain.SessionSnapshot) {
	select {
	case ch <- snapshot:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snapshot:
	default:
	}
}
