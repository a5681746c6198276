// Package reconcile syncs Timewarrior sessions to Kimai timesheets.
//
// Every session is handled by its own task. Remote calls of different tasks
// overlap; console output and the write-back of record ids to Timewarrior
// are serialized through the gates of a sequencer.Sequencer.
package reconcile

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	kerrors "github.com/harrisonrobin/kimai-report/pkg/errors"
	"github.com/harrisonrobin/kimai-report/pkg/journal"
	"github.com/harrisonrobin/kimai-report/pkg/kimai"
	"github.com/harrisonrobin/kimai-report/pkg/metrics"
	"github.com/harrisonrobin/kimai-report/pkg/sequencer"
	"github.com/harrisonrobin/kimai-report/pkg/tags"
	"github.com/harrisonrobin/kimai-report/pkg/timew"
)

// Remote is the timesheet service.
type Remote interface {
	Fetch(ctx context.Context, id int) (*kimai.Timesheet, error)
	// Log creates the timesheet when its ID is 0.
	Log(ctx context.Context, ts kimai.Timesheet) (*kimai.Timesheet, error)
}

// Store is the local tracker that receives the record id tags.
type Store interface {
	Tag(ctx context.Context, sessionID, tag string) error
}

// Recorder keeps track of created records.
type Recorder interface {
	Record(key string, e journal.Entry) error
}

const conflictMenu = "something is different! [(l)ocal|(r)emote|(s)kip]"

// Engine reconciles sessions concurrently.
type Engine struct {
	classifier *tags.Classifier
	remote     Remote
	store      Store
	console    *sequencer.Console
	seq        *sequencer.Sequencer
	recorder   Recorder
	metrics    *metrics.Metrics
	workers    int
	logger     zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of sessions handled at once.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithRecorder journals every created record before it is written back.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l.With().Str("component", "reconcile").Logger() }
}

// New creates an engine. console must print under seq.Print.
func New(classifier *tags.Classifier, remote Remote, store Store, console *sequencer.Console, seq *sequencer.Sequencer, opts ...Option) *Engine {
	e := &Engine{
		classifier: classifier,
		remote:     remote,
		store:      store,
		console:    console,
		seq:        seq,
		workers:    runtime.NumCPU(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run reconciles all sessions and waits for every task to settle. A failing
// session does not stop the others; the first failure is returned once all
// are done. Records created before a failure are kept.
func (e *Engine) Run(ctx context.Context, sessions []timew.Session) (Summary, error) {
	var (
		g       errgroup.Group
		mu      sync.Mutex
		summary Summary
	)
	g.SetLimit(e.workers)

	for _, s := range sessions {
		s := s
		g.Go(func() error {
			outcome, err := e.reconcileSafe(ctx, s)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				e.observeError(err)
				e.logger.Error().Err(err).Str("session", s.ID).Msg("session failed")
				return err
			}
			summary.add(outcome)
			e.observeOutcome(outcome)
			return nil
		})
	}

	err := g.Wait()
	return summary, err
}

// reconcileSafe turns a panic in a task into an error for that session.
func (e *Engine) reconcileSafe(ctx context.Context, s timew.Session) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = kerrors.New(kerrors.KindConcurrency, s.ID, fmt.Errorf("task panicked: %v", r))
		}
	}()
	return e.Reconcile(ctx, s)
}

// Reconcile handles a single session.
func (e *Engine) Reconcile(ctx context.Context, s timew.Session) (Outcome, error) {
	ids, err := e.classifier.Classify(s.Tags)
	if err != nil {
		return 0, kerrors.New(kerrors.KindMalformedIdentifier, s.ID, err)
	}
	log := e.logger.With().Str("session", s.ID).Logger()

	if s.Open() {
		log.Debug().Msg("interval still open")
		return Unresolvable, e.say(ctx, s.ID, "still running, skipped")
	}

	switch {
	case ids.RecordID != nil:
		return e.compare(ctx, s, ids, log)
	case ids.Complete():
		return e.create(ctx, s, ids, log)
	default:
		log.Debug().Strs("tags", s.Tags).Msg("missing project or activity id")
		return Unresolvable, e.say(ctx, s.ID, "required IDs not found!")
	}
}

// compare fetches the existing record and checks it against the session.
func (e *Engine) compare(ctx context.Context, s timew.Session, ids tags.Identifiers, log zerolog.Logger) (Outcome, error) {
	id := *ids.RecordID

	start := time.Now()
	record, err := e.remote.Fetch(ctx, id)
	e.observeRequest("fetch", start)
	if err != nil {
		return 0, kerrors.New(kerrors.KindRemote, s.ID, err)
	}

	// Project and activity tags are optional once the record id is known.
	project, activity := record.Project, record.Activity
	if ids.ProjectID != nil {
		project = *ids.ProjectID
	}
	if ids.ActivityID != nil {
		activity = *ids.ActivityID
	}

	if record.Matches(project, activity, s.Start, s.End, s.Annotation, ids.Residual) {
		return AlreadySynced, e.say(ctx, s.ID, "already got logged with ID %d", id)
	}

	answer, err := e.console.Ask(ctx, s.ID, conflictMenu)
	if err != nil {
		return 0, kerrors.New(kerrors.KindUncategorized, s.ID, err)
	}
	choice := parseChoice(answer)

	// TODO: apply KeepLocal with remote.Log(ID: id) and KeepRemote by
	// retagging the interval once the expected semantics are settled.
	log.Warn().Int("record", id).Str("choice", choice.String()).Msg("conflict left unresolved")
	return Conflict, e.say(ctx, s.ID, "resolving conflicts is not supported yet, left unchanged (%s)", choice)
}

// create logs the session as a new record and tags the session with its id.
func (e *Engine) create(ctx context.Context, s timew.Session, ids tags.Identifiers, log zerolog.Logger) (Outcome, error) {
	start := time.Now()
	record, err := e.remote.Log(ctx, kimai.Timesheet{
		ID:          0,
		Project:     *ids.ProjectID,
		Activity:    *ids.ActivityID,
		Begin:       s.Start,
		End:         s.End,
		Description: s.Annotation,
		Tags:        ids.Residual,
	})
	e.observeRequest("create", start)
	if err != nil {
		return 0, kerrors.New(kerrors.KindRemote, s.ID, err)
	}
	log.Debug().Int("record", record.ID).Msg("timesheet created")

	tag, err := e.classifier.Format(tags.Record, record.ID)
	if err != nil {
		return 0, kerrors.New(kerrors.KindUncategorized, s.ID, err)
	}

	// The record exists in Kimai now, so the write-back runs even when the
	// journal cannot be written.
	err = e.seq.Mutation.Do(ctx, func() error {
		if e.recorder != nil {
			entry := journal.Entry{SessionID: s.ID, RecordID: record.ID, Start: s.Start, End: s.End}
			if err := e.recorder.Record(s.Key(), entry); err != nil {
				log.Warn().Err(err).Int("record", record.ID).Msg("failed to journal record")
			}
		}
		return e.store.Tag(ctx, s.ID, tag)
	})
	if err != nil {
		return 0, kerrors.New(kerrors.KindLocalStore, s.ID, err)
	}

	return Created, e.say(ctx, s.ID, "logged to Kimai")
}

func (e *Engine) say(ctx context.Context, sessionID, format string, args ...interface{}) error {
	if err := e.console.Say(ctx, sessionID, format, args...); err != nil {
		return kerrors.New(kerrors.KindUncategorized, sessionID, err)
	}
	return nil
}

func (e *Engine) observeOutcome(o Outcome) {
	if e.metrics != nil {
		e.metrics.ObserveOutcome(o.String())
	}
}

func (e *Engine) observeError(err error) {
	if e.metrics != nil {
		e.metrics.ObserveError(kerrors.KindOf(err).String())
	}
}

func (e *Engine) observeRequest(op string, start time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveRequest(op, start)
	}
}
