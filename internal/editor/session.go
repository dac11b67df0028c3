// Package editor runs editing sessions: one open theme, its live document,
// the chat transcript, the element selection and the fork writes that follow
// every change.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/themestudio/internal/audit"
	"github.com/ziadkadry99/themestudio/internal/forks"
	"github.com/ziadkadry99/themestudio/internal/markup"
	"github.com/ziadkadry99/themestudio/internal/metrics"
	"github.com/ziadkadry99/themestudio/internal/protocol"
	"github.com/ziadkadry99/themestudio/internal/rewrite"
	"github.com/ziadkadry99/themestudio/internal/selection"
	"github.com/ziadkadry99/themestudio/internal/themes"
)

var (
	// ErrBusy is returned when an instruction is submitted while an AI edit
	// is still running.
	ErrBusy = errors.New("editor: an AI edit is already in progress")
	// ErrEmptyInstruction is returned for blank instructions.
	ErrEmptyInstruction = errors.New("editor: instruction is empty")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("editor: session closed")
)

// DefaultSaveTimeout bounds a single fork write.
const DefaultSaveTimeout = 15 * time.Second

// Resolver loads the version of a theme a user edits.
type Resolver interface {
	Resolve(ctx context.Context, userID, themeID string) (*forks.Resolved, error)
}

// ForkWriter persists a user's fork.
type ForkWriter interface {
	UpsertFork(ctx context.Context, userID, themeID, markup, title, description string) (*themes.Fork, bool, error)
}

// Auditor records persisted writes.
type Auditor interface {
	Record(ctx context.Context, actorID string, action audit.Action, themeID, summary string)
}

// Config holds a session's collaborators.
type Config struct {
	UserID   string
	ThemeID  string
	Resolver Resolver
	Forks    ForkWriter
	Rewriter rewrite.Rewriter

	// Optional.
	Metrics     metrics.Recorder
	Audit       Auditor
	Seed        string // identifier seed; random when empty
	SaveTimeout time.Duration
}

// Session is one open editor. All state changes run on a single event loop
// goroutine; AI calls and fork writes run elsewhere and report back to it.
// Every exported method is safe for concurrent use.
type Session struct {
	id          string
	cfg         Config
	metrics     metrics.Recorder
	saveTimeout time.Duration

	inbox     chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	writes    *persister

	// Owned by the event loop.
	norm        *markup.Normalizer
	doc         *markup.Document
	source      string
	dirty       bool
	version     uint64
	busy        bool
	title       string
	description string
	isFork      bool
	sel         *selection.Controller
	transcript  []Entry
	pending     int
	flushers    []chan struct{}
	sandboxOut  chan []byte
	subs        map[int]chan Update
	nextSub     int
}

// Open resolves the theme for the user and starts a session on it. It fails
// with an error wrapping forks.ErrNotFound when the theme does not exist.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Resolver == nil || cfg.Forks == nil || cfg.Rewriter == nil {
		return nil, errors.New("editor: resolver, fork writer and rewriter are required")
	}
	if cfg.UserID == "" {
		return nil, errors.New("editor: a user is required")
	}
	res, err := cfg.Resolver.Resolve(ctx, cfg.UserID, cfg.ThemeID)
	if err != nil {
		return nil, fmt.Errorf("opening theme %s: %w", cfg.ThemeID, err)
	}

	s := &Session{
		id:          uuid.New().String(),
		cfg:         cfg,
		metrics:     cfg.Metrics,
		saveTimeout: cfg.SaveTimeout,
		inbox:       make(chan func()),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		norm:        markup.NewNormalizer(cfg.Seed),
		title:       res.Title,
		description: res.Description,
		isFork:      res.IsFork,
		transcript:  []Entry{newEntry(SpeakerAssistant, msgGreeting)},
		subs:        make(map[int]chan Update),
	}
	if s.metrics == nil {
		s.metrics = metrics.Noop{}
	}
	if s.saveTimeout <= 0 {
		s.saveTimeout = DefaultSaveTimeout
	}
	s.doc = s.norm.Prepare(res.Markup)
	s.sel = selection.NewController(s.sendSandbox)
	s.writes = newPersister()

	go s.loop()
	go s.writes.run(s.persist)
	s.metrics.SessionOpened()
	log.Printf("editor: session %s opened theme %s for user %s (fork=%t)", s.id, cfg.ThemeID, cfg.UserID, res.IsFork)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// ThemeID returns the original theme the session edits.
func (s *Session) ThemeID() string { return s.cfg.ThemeID }

// UserID returns the session owner.
func (s *Session) UserID() string { return s.cfg.UserID }

// Close stops the session. Fork writes already queued are still carried out
// before Close returns; results of AI calls still running are discarded.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
		s.writes.close()
		s.metrics.SessionClosed()
		log.Printf("editor: session %s closed", s.id)
	})
	return nil
}

func (s *Session) loop() {
	defer close(s.done)
	defer func() {
		for id, ch := range s.subs {
			delete(s.subs, id)
			close(ch)
		}
	}()
	for {
		select {
		case fn := <-s.inbox:
			fn()
		case <-s.quit:
			return
		}
	}
}

// do runs fn on the event loop and waits for it to finish.
func (s *Session) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case s.inbox <- func() { defer close(finished); fn() }:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// post queues fn on the event loop without waiting for it to run. It
// reports false once the session is closed.
func (s *Session) post(fn func()) bool {
	select {
	case s.inbox <- fn:
		return true
	case <-s.quit:
		return false
	}
}

// Submit starts an AI edit. The instruction is added to the transcript at
// once; the rewritten document and the assistant's reply follow when the AI
// call finishes.
func (s *Session) Submit(ctx context.Context, instruction string) error {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return ErrEmptyInstruction
	}
	busy := false
	err := s.do(ctx, func() {
		if s.busy {
			busy = true
			return
		}
		s.appendEntry(newEntry(SpeakerUser, instruction))
		s.setBusy(true)
		s.pending++

		var hint string
		if c := s.sel.Context(); c != nil {
			hint = rewrite.ElementHint(c.ElementID, c.TagName, c.VisibleText)
		}
		go s.rewrite(s.currentMarkup(), instruction, hint, s.version)
	})
	if err != nil {
		return err
	}
	if busy {
		return ErrBusy
	}
	return nil
}

func (s *Session) rewrite(current, instruction, hint string, base uint64) {
	start := time.Now()
	out, err := s.cfg.Rewriter.Rewrite(context.Background(), current, instruction, hint)
	s.metrics.ObserveRewrite(time.Since(start), err)
	s.post(func() { s.applyRewrite(out, err, base) })
}

func (s *Session) applyRewrite(out string, err error, base uint64) {
	s.pending--
	defer s.settle()
	s.setBusy(false)

	if err != nil {
		log.Printf("editor: session %s: rewrite failed: %v", s.id, err)
		s.appendEntry(failureEntry(msgAIFailed))
		return
	}
	if s.version != base {
		log.Printf("editor: warning: session %s: AI result replaces changes made while it was running", s.id)
		s.metrics.IncOverwrite()
	}
	s.replaceDocument(s.norm.Prepare(out))
	s.clearSelection()
	s.enqueueWrite(s.doc.Render(), true, nil)
}

// ApplyText replaces the text of the identified element. An identifier that
// no longer exists is ignored.
func (s *Session) ApplyText(ctx context.Context, elementID, text string) error {
	return s.do(ctx, func() {
		if s.dirty {
			s.replaceDocument(s.norm.Prepare(s.source))
		}
		n, ok := s.doc.Lookup(elementID)
		if !ok || !s.doc.SetText(elementID, text) {
			s.metrics.IncManualEdit(metrics.ResultNoop)
			return
		}
		s.version++
		s.publish(Update{Kind: UpdateDocument, Markup: s.doc.Render()})
		s.metrics.IncManualEdit(metrics.ResultSuccess)
		s.appendEntry(newEntry(SpeakerAssistant, fmt.Sprintf(msgManualEdit, n.Tag)))
		s.clearSelection()
		s.enqueueWrite(s.doc.Render(), false, nil)
	})
}

// Reset reloads the last saved markup: the user's fork if there is one,
// otherwise the original. The fork itself is kept.
func (s *Session) Reset(ctx context.Context) error {
	res, err := s.cfg.Resolver.Resolve(ctx, s.cfg.UserID, s.cfg.ThemeID)
	if err != nil {
		return fmt.Errorf("resetting theme %s: %w", s.cfg.ThemeID, err)
	}
	return s.do(ctx, func() {
		s.isFork = res.IsFork
		s.replaceDocument(s.norm.Prepare(res.Markup))
		s.clearSelection()
	})
}

// SetSource replaces the document with hand-edited markup. The markup is
// shown as is and only normalized by the next AI or manual edit.
func (s *Session) SetSource(ctx context.Context, raw string) error {
	return s.do(ctx, func() {
		s.source = raw
		s.dirty = true
		s.version++
		s.publish(Update{Kind: UpdateDocument, Markup: raw, Dirty: true})
		s.clearSelection()
	})
}

// SaveSource writes the current markup, hand-edited source included, to the
// user's fork and waits for the write.
func (s *Session) SaveSource(ctx context.Context) error {
	result := make(chan error, 1)
	if err := s.do(ctx, func() { s.enqueueWrite(s.currentMarkup(), false, result) }); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Export returns the download filename and the markup stripped of editor
// scaffolding. Unsaved hand-edited source is written to the fork first.
func (s *Session) Export(ctx context.Context) (filename, content string, err error) {
	var (
		raw, title string
		saved      chan error
	)
	err = s.do(ctx, func() {
		raw, title = s.currentMarkup(), s.title
		if s.dirty {
			saved = make(chan error, 1)
			s.enqueueWrite(raw, false, saved)
		}
	})
	if err != nil {
		return "", "", err
	}
	if saved != nil {
		select {
		case err := <-saved:
			if err != nil {
				return "", "", fmt.Errorf("saving source before export: %w", err)
			}
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}
	if s.cfg.Audit != nil {
		s.cfg.Audit.Record(ctx, s.cfg.UserID, audit.ActionExported, s.cfg.ThemeID, "exported from editor")
	}
	return markup.ExportFilename(title), markup.Sanitize(raw), nil
}

// EnableSelection arms element picking in the sandbox.
func (s *Session) EnableSelection(ctx context.Context) error {
	return s.do(ctx, func() {
		if s.sel.Enable() {
			s.publishSelection()
		}
	})
}

// CancelSelection disarms picking without choosing an element.
func (s *Session) CancelSelection(ctx context.Context) error {
	return s.do(ctx, func() {
		if s.sel.Cancel() {
			s.publishSelection()
		}
	})
}

// DismissSelection drops the current selection.
func (s *Session) DismissSelection(ctx context.Context) error {
	return s.do(ctx, s.clearSelection)
}

// ScrollTo asks the sandbox to bring an element into view.
func (s *Session) ScrollTo(ctx context.Context, elementID string) error {
	return s.do(ctx, func() { s.sel.ScrollTo(elementID) })
}

// HandleSandbox processes one frame sent by the sandbox. Frames that do not
// decode, and picks of elements the document does not contain, are dropped.
func (s *Session) HandleSandbox(frame []byte) {
	p, err := protocol.DecodeFromSandbox(frame)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, protocol.ErrUnrecognized) {
			reason = "unrecognized"
		}
		s.metrics.IncSandboxDropped(reason)
		return
	}
	s.post(func() {
		if !s.dirty {
			if _, ok := s.doc.Lookup(p.ElementID); !ok {
				s.metrics.IncSandboxDropped("unknown_element")
				return
			}
		}
		s.sel.Pick(p)
		s.publishSelection()
	})
}

// AttachSandbox serves a sandbox transport until ctx ends or the transport
// closes. Commands go to the most recently attached sandbox only.
func (s *Session) AttachSandbox(ctx context.Context, conn protocol.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan []byte, 16)
	err := s.do(ctx, func() {
		s.sandboxOut = out
		if s.sel.State() == selection.Armed {
			s.sendSandbox(protocol.SetSelectionMode{Active: true})
		}
	})
	if err != nil {
		return err
	}
	defer s.post(func() {
		if s.sandboxOut == out {
			s.sandboxOut = nil
		}
	})

	go func() {
		for {
			select {
			case frame := <-out:
				if err := conn.Send(ctx, frame); err != nil {
					if !errors.Is(err, protocol.ErrClosed) && ctx.Err() == nil {
						log.Printf("editor: session %s: sending to sandbox: %v", s.id, err)
					}
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		frame, err := conn.Receive(ctx)
		if err != nil {
			if errors.Is(err, protocol.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receiving from sandbox: %w", err)
		}
		s.HandleSandbox(frame)
	}
}

// Flush waits until no AI call and no fork write is pending.
func (s *Session) Flush(ctx context.Context) error {
	idle := make(chan struct{})
	err := s.do(ctx, func() {
		if s.pending == 0 {
			close(idle)
			return
		}
		s.flushers = append(s.flushers, idle)
	})
	if err != nil {
		return err
	}
	select {
	case <-idle:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a stream of session updates. The channel is closed by
// the returned cancel function or when the session closes. Updates are
// dropped for subscribers that fall behind.
func (s *Session) Subscribe(ctx context.Context) (<-chan Update, func(), error) {
	ch := make(chan Update, 64)
	var id int
	err := s.do(ctx, func() {
		id = s.nextSub
		s.nextSub++
		s.subs[id] = ch
	})
	if err != nil {
		return nil, nil, err
	}
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.post(func() {
				if c, ok := s.subs[id]; ok {
					delete(s.subs, id)
					close(c)
				}
			})
		})
	}
	return ch, cancel, nil
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, func() {
		snap = Snapshot{
			SessionID:   s.id,
			ThemeID:     s.cfg.ThemeID,
			Title:       s.title,
			Description: s.description,
			IsFork:      s.isFork,
			Markup:      s.currentMarkup(),
			Dirty:       s.dirty,
			Busy:        s.busy,
			State:       s.sel.State().String(),
			Selection:   s.sel.Context(),
			Transcript:  append([]Entry(nil), s.transcript...),
			Version:     s.version,
		}
	})
	return snap, err
}

// Loop helpers. Everything below runs on the event loop.

func (s *Session) currentMarkup() string {
	if s.dirty {
		return s.source
	}
	return s.doc.Render()
}

func (s *Session) replaceDocument(d *markup.Document) {
	s.doc = d
	s.source = ""
	s.dirty = false
	s.version++
	s.publish(Update{Kind: UpdateDocument, Markup: d.Render()})
}

func (s *Session) clearSelection() {
	if s.sel.Clear() {
		s.publishSelection()
	}
}

func (s *Session) setBusy(b bool) {
	s.busy = b
	s.publish(Update{Kind: UpdateBusy, Busy: b})
}

func (s *Session) appendEntry(e Entry) {
	s.transcript = append(s.transcript, e)
	s.publish(Update{Kind: UpdateTranscript, Entry: &e})
}

func (s *Session) publishSelection() {
	s.publish(Update{Kind: UpdateSelection, State: s.sel.State().String(), Selection: s.sel.Context()})
}

func (s *Session) publish(u Update) {
	for _, ch := range s.subs {
		select {
		case ch <- u:
		default:
			log.Printf("editor: session %s: subscriber behind, dropping %s update", s.id, u.Kind)
		}
	}
}

func (s *Session) settle() {
	if s.pending > 0 {
		return
	}
	for _, ch := range s.flushers {
		close(ch)
	}
	s.flushers = nil
}

func (s *Session) sendSandbox(m protocol.Message) {
	if s.sandboxOut == nil {
		return
	}
	frame, err := protocol.Encode(m)
	if err != nil {
		log.Printf("editor: session %s: encoding %s: %v", s.id, m.Type(), err)
		return
	}
	select {
	case s.sandboxOut <- frame:
	default:
		log.Printf("editor: session %s: sandbox queue full, dropping %s", s.id, m.Type())
	}
}

// enqueueWrite hands markup to the persister. Writes happen in the order
// they are enqueued. announce adds the AI success reply once the write
// lands; result, when set, receives the write's error.
func (s *Session) enqueueWrite(markup string, announce bool, result chan<- error) {
	s.pending++
	s.writes.enqueue(writeJob{
		markup:      markup,
		title:       s.title,
		description: s.description,
		announce:    announce,
		result:      result,
	})
}

// persist runs on the persister goroutine.
func (s *Session) persist(j writeJob) {
	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()

	fork, created, err := s.cfg.Forks.UpsertFork(ctx, s.cfg.UserID, s.cfg.ThemeID, j.markup, j.title, j.description)
	if err != nil {
		log.Printf("editor: session %s: saving fork: %v", s.id, err)
		s.metrics.IncForkWrite(metrics.ResultFailure)
	} else {
		s.metrics.IncForkWrite(metrics.ResultSuccess)
		if s.cfg.Audit != nil {
			action := audit.ActionForkUpdated
			if created {
				action = audit.ActionForkCreated
			}
			s.cfg.Audit.Record(ctx, s.cfg.UserID, action, s.cfg.ThemeID, fork.Title)
		}
	}
	if j.result != nil {
		j.result <- err
	}
	s.post(func() { s.saved(j, created, err) })
}

func (s *Session) saved(j writeJob, created bool, err error) {
	s.pending--
	defer s.settle()

	if err != nil {
		s.appendEntry(failureEntry(saveFailedMessage(err)))
		s.publish(Update{Kind: UpdateSaveFailed, Error: err.Error()})
		return
	}
	s.isFork = true
	if j.announce {
		s.appendEntry(newEntry(SpeakerAssistant, msgUpdated))
	}
	s.publish(Update{Kind: UpdateSaved, Created: created})
}
