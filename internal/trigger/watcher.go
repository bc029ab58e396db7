package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/eternisai/social-push/internal/dispatch"
	"github.com/eternisai/social-push/internal/logger"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Watcher turns Firestore snapshot listeners into change events, for
// deployments without a hosted trigger mechanism.
//
// Firestore listeners only report the current document, so the watcher keeps
// the last seen data of every user to build the before state of updates.
// Message documents are never updated by the app and are not cached.
// The first snapshot of each listener only primes state.
type Watcher struct {
	client *firestore.Client
	router *Router
	logger *logger.Logger
}

// NewWatcher creates a watcher over the users collection and the messages
// collection group.
func NewWatcher(client *firestore.Client, router *Router, logger *logger.Logger) *Watcher {
	return &Watcher{
		client: client,
		router: router,
		logger: logger.WithComponent("firestore-watcher"),
	}
}

// Run listens until ctx is cancelled or a listener fails.
func (w *Watcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	listeners := []struct {
		name  string
		query firestore.Query
		track bool
	}{
		{"users", w.client.Collection(dispatch.UsersCollection).Query, true},
		{"messages", w.client.CollectionGroup(dispatch.MessagesCollection).Query, false},
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for _, l := range listeners {
		wg.Add(1)
		go func(name string, query firestore.Query, track bool) {
			defer wg.Done()
			if err := w.listen(ctx, name, query, newSnapshotState(track)); err != nil {
				errOnce.Do(func() {
					firstErr = err
					cancel()
				})
			}
		}(l.name, l.query, l.track)
	}

	wg.Wait()
	return firstErr
}

func (w *Watcher) listen(ctx context.Context, name string, query firestore.Query, state *snapshotState) error {
	it := query.Snapshots(ctx)
	defer it.Stop()

	log := w.logger.With(slog.String("listener", name))
	log.Info("firestore listener started")

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
				log.Info("firestore listener stopped")
				return nil
			}
			return fmt.Errorf("%s listener: %w", name, err)
		}

		changes := make([]docChange, 0, len(snap.Changes))
		for _, ch := range snap.Changes {
			changes = append(changes, toDocChange(ch))
		}

		for _, event := range state.apply(changes) {
			w.router.Dispatch(logger.WithTransport(ctx, "firestore"), event)
		}
	}
}

type docChange struct {
	Kind    firestore.DocumentChangeKind
	Path    []string
	Data    map[string]any
	Version string
}

func toDocChange(ch firestore.DocumentChange) docChange {
	return docChange{
		Kind:    ch.Kind,
		Path:    refSegments(ch.Doc.Ref),
		Data:    ch.Doc.Data(),
		Version: fmt.Sprintf("%d", ch.Doc.UpdateTime.UnixNano()),
	}
}

// refSegments renders a document reference as collection/doc/... segments
// relative to the database root.
func refSegments(ref *firestore.DocumentRef) []string {
	var segments []string
	for ref != nil {
		segments = append([]string{ref.ID}, segments...)
		if ref.Parent == nil {
			break
		}
		segments = append([]string{ref.Parent.ID}, segments...)
		ref = ref.Parent.Parent
	}
	return segments
}

// snapshotState turns successive snapshot diffs into change events.
type snapshotState struct {
	track  bool
	primed bool
	docs   map[string]map[string]any
}

func newSnapshotState(track bool) *snapshotState {
	return &snapshotState{
		track: track,
		docs:  make(map[string]map[string]any),
	}
}

func (s *snapshotState) apply(changes []docChange) []dispatch.ChangeEvent {
	primed := s.primed
	s.primed = true

	var events []dispatch.ChangeEvent
	for _, ch := range changes {
		key := dispatch.ChangeEvent{Path: ch.Path}.PathString()
		previous := s.docs[key]

		switch ch.Kind {
		case firestore.DocumentAdded, firestore.DocumentModified:
			if s.track {
				s.docs[key] = ch.Data
			}
		case firestore.DocumentRemoved:
			delete(s.docs, key)
		}

		if !primed {
			continue
		}

		event := dispatch.ChangeEvent{ID: key + "@" + ch.Version, Path: ch.Path}
		switch ch.Kind {
		case firestore.DocumentAdded:
			event.After = ch.Data
		case firestore.DocumentModified:
			if previous == nil {
				previous = map[string]any{}
			}
			event.Before = previous
			event.After = ch.Data
		case firestore.DocumentRemoved:
			if previous == nil {
				previous = ch.Data
			}
			event.Before = previous
		}
		events = append(events, event)
	}

	return events
}
