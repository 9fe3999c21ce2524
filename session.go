package longpoll

import (
	"context"
	"time"

	"github.com/arloliu/longpoll/types"
)

// tickSource identifies which timer produced a tick input.
type tickSource int

const (
	tickCommit tickSource = iota + 1
	tickGrace
	tickKeepAlive
)

func (t tickSource) String() string {
	switch t {
	case tickCommit:
		return "commit"
	case tickGrace:
		return "grace"
	case tickKeepAlive:
		return "keep-alive"
	default:
		return "unknown"
	}
}

// inputKind classifies entries on a session's serialized input queue.
type inputKind int

const (
	inputMessage inputKind = iota + 1
	inputTick
	inputShutdown
)

// sessionInput is one entry on the session's mailbox. Messages, timer ticks
// and shutdown requests all flow through the same queue, so no two inputs
// for the same session are ever processed concurrently.
type sessionInput struct {
	kind  inputKind
	msg   types.Message
	reply types.ReplyFunc
	tick  tickSource
	epoch uint64
}

// session is the per-stream coalescing state machine.
//
// The state lives in two fields: pending (buffered, not-yet-delivered event
// IDs) and waiter (the single outstanding poll reply, nil in Idle). All
// mutation happens on the run goroutine, which drains the input channel;
// timer callbacks enqueue tick inputs rather than touching state, so no
// locks are needed.
//
// Timer cancellation is best-effort: a fire already in flight when Stop is
// called still enqueues its tick. Every arming therefore increments a
// per-timer epoch, and a tick whose epoch does not match the current arming
// is stale and ignored.
type session struct {
	id      string
	access  types.AccessContext
	cfg     Config
	filter  types.VisibilityFilter
	logger  types.Logger
	metrics types.MetricsCollector
	hooks   types.Hooks

	// lifecycle context of the owning coordinator, passed to the filter and
	// hooks; cancelled on coordinator shutdown.
	lifecycle context.Context

	// onTerminate is invoked exactly once after the run loop exits, with
	// expired=true only for keep-alive termination.
	onTerminate func(s *session, expired bool)

	binding types.Binding

	inputs chan sessionInput
	done   chan struct{}

	// State below is owned exclusively by the run goroutine.
	pending []string
	waiter  types.ReplyFunc

	commitTimer *time.Timer
	commitEpoch uint64
	graceTimer  *time.Timer
	graceEpoch  uint64
	keepTimer   *time.Timer
	keepEpoch   uint64
}

// Compile-time assertion that session implements Inbox.
var _ types.Inbox = (*session)(nil)

// newSession creates a session for one stream ID. The caller registers it
// in the registry, assigns the binding, and then starts run in a goroutine.
func newSession(
	id string,
	access types.AccessContext,
	cfg Config,
	filter types.VisibilityFilter,
	logger types.Logger,
	collector types.MetricsCollector,
	hooks types.Hooks,
	lifecycle context.Context,
	onTerminate func(s *session, expired bool),
) *session {
	return &session{
		id:          id,
		access:      access,
		cfg:         cfg,
		filter:      filter,
		logger:      logger,
		metrics:     collector,
		hooks:       hooks,
		lifecycle:   lifecycle,
		onTerminate: onTerminate,
		inputs:      make(chan sessionInput, cfg.SessionBuffer),
		done:        make(chan struct{}),
	}
}

// Deliver enqueues a registry message onto the serialized input queue.
//
// It blocks only while the bounded buffer is full; once the session has
// terminated the message is dropped and the sender's own timeout applies.
func (s *session) Deliver(msg types.Message, reply types.ReplyFunc) {
	select {
	case s.inputs <- sessionInput{kind: inputMessage, msg: msg, reply: reply}:
	case <-s.done:
	}
}

// shutdown asks the run loop to exit without the expiry side effects.
// Used by coordinator Stop; keep-alive expiry is the session's own path.
func (s *session) shutdown() {
	select {
	case s.inputs <- sessionInput{kind: inputShutdown}:
	case <-s.done:
	}
}

// terminated returns a channel closed when the run loop has exited.
func (s *session) terminated() <-chan struct{} {
	return s.done
}

// run drains the input queue until the keep-alive timer fires or shutdown
// is requested. It must only be started after the registry binding is set.
func (s *session) run() {
	s.armKeepAlive()

	expired := false

loop:
	for in := range s.inputs {
		switch in.kind {
		case inputMessage:
			s.handleMessage(in.msg, in.reply)
		case inputTick:
			if s.handleTick(in.tick, in.epoch) {
				expired = true
				break loop
			}
		case inputShutdown:
			break loop
		}
	}

	// Unblock pending deliveries first, then withdraw the registration so
	// subsequent resolves discover the absence.
	close(s.done)
	s.stopTimers()

	if s.binding != nil {
		if err := s.binding.Close(); err != nil {
			s.logger.Warn("failed to withdraw binding", "stream", s.id, "error", err)
		}
	}

	if expired {
		s.logger.Info("session expired", "stream", s.id, "pendingDiscarded", len(s.pending))
		s.metrics.RecordSessionExpired()
		go func() {
			if err := s.hooks.OnSessionExpired(s.lifecycle, s.id); err != nil {
				s.logger.Warn("OnSessionExpired hook failed", "stream", s.id, "error", err)
			}
		}()
	}

	s.onTerminate(s, expired)
}

// handleMessage processes a Poll or Notify input.
func (s *session) handleMessage(msg types.Message, reply types.ReplyFunc) {
	switch msg.Kind {
	case types.KindPoll:
		if reply == nil {
			// A broadcast poll has nobody to answer; nothing to do.
			s.logger.Debug("ignoring poll without reply channel", "stream", s.id)
			return
		}
		s.handlePoll(reply)
	case types.KindNotify:
		s.handleNotify(msg.EventIDs)
	default:
		// Out-of-band wire traffic (e.g. a transmitted commit marker) is
		// best-effort: logged, never surfaced, fatal to nothing.
		s.logger.Debug("ignoring out-of-band message", "stream", s.id, "kind", msg.Kind.String())
	}
}

// handlePoll applies the Poll transition in either state.
//
// Idle: arm the refresh ceiling and record the waiter. Awaiting: identical,
// except the displaced waiter receives no reply (its request-level timeout
// covers it). Either way the keep-alive clock restarts and the grace timer
// tracks whether a batch is already pending.
func (s *session) handlePoll(reply types.ReplyFunc) {
	if s.waiter != nil {
		s.logger.Debug("poll superseded outstanding waiter", "stream", s.id)
	}

	s.armKeepAlive()
	s.armCommit(s.cfg.RefreshInterval)

	if len(s.pending) > 0 {
		s.armGrace()
	} else {
		s.cancelGrace()
	}

	s.waiter = reply
}

// handleNotify filters the broadcast IDs and appends the visible subset.
//
// The append is all-or-nothing: a filter error aborts the transition with
// pending and every timer untouched. An empty visible subset changes
// nothing either. Otherwise grace restarts, and if this was the first
// visible event since the last delivery the commit ceiling extends from
// RefreshInterval to MaxWait.
func (s *session) handleNotify(ids []string) {
	start := time.Now()
	visible, err := s.filter.FilterVisible(s.lifecycle, s.access, ids)
	s.metrics.ObserveFilterLatency(time.Since(start).Seconds())

	if err != nil {
		s.metrics.RecordFilterError()
		s.logger.Error("visibility filter failed", "stream", s.id, "rawCount", len(ids), "error", err)

		return
	}

	s.metrics.RecordNotify(len(ids), len(visible))

	if len(visible) == 0 {
		return
	}

	wasEmpty := len(s.pending) == 0
	s.pending = append(s.pending, visible...)

	if s.waiter == nil {
		// Idle: buffer only, no waiter to satisfy yet.
		return
	}

	s.armGrace()
	if wasEmpty {
		s.armCommit(s.cfg.MaxWait)
	}
}

// handleTick processes a timer tick, returning true when the session must
// terminate (keep-alive expiry).
func (s *session) handleTick(source tickSource, epoch uint64) bool {
	switch source {
	case tickKeepAlive:
		if epoch != s.keepEpoch {
			return false
		}

		return true
	case tickCommit:
		if epoch != s.commitEpoch {
			s.logger.Debug("ignoring stale commit tick", "stream", s.id)
			return false
		}
	case tickGrace:
		if epoch != s.graceEpoch {
			s.logger.Debug("ignoring stale grace tick", "stream", s.id)
			return false
		}
	}

	if s.waiter == nil {
		// Valid epochs imply a waiter, but an input enqueued just before
		// cancellation can still arrive after delivery; drop it.
		return false
	}

	s.deliver(source)

	return false
}

// deliver sends the pending batch (possibly empty) to the waiter and
// returns to Idle. Keep-alive stays armed.
func (s *session) deliver(source tickSource) {
	s.cancelCommit()
	s.cancelGrace()

	batch := s.pending
	if batch == nil {
		batch = []string{}
	}
	waiter := s.waiter
	s.pending = nil
	s.waiter = nil

	if err := waiter(types.NewNotify(batch)); err != nil {
		s.logger.Warn("failed to deliver batch", "stream", s.id, "batchSize", len(batch), "error", err)
		return
	}

	s.logger.Debug("delivered batch", "stream", s.id, "batchSize", len(batch), "trigger", source.String())
	s.metrics.ObserveBatchSize(len(batch))

	go func() {
		if err := s.hooks.OnBatchDelivered(s.lifecycle, s.id, batch); err != nil {
			s.logger.Warn("OnBatchDelivered hook failed", "stream", s.id, "error", err)
		}
	}()
}

// Timer management. Each arming increments the timer's epoch so stale
// fires are recognized; cancellation bumps the epoch as well because
// stopping a timer cannot recall a callback already in flight.

func (s *session) armCommit(d time.Duration) {
	if s.commitTimer != nil {
		s.commitTimer.Stop()
	}
	s.commitEpoch++
	epoch := s.commitEpoch
	s.commitTimer = time.AfterFunc(d, func() {
		s.enqueueTick(tickCommit, epoch)
	})
}

func (s *session) cancelCommit() {
	if s.commitTimer != nil {
		s.commitTimer.Stop()
		s.commitTimer = nil
	}
	s.commitEpoch++
}

func (s *session) armGrace() {
	if s.graceTimer != nil {
		s.graceTimer.Stop()
	}
	s.graceEpoch++
	epoch := s.graceEpoch
	s.graceTimer = time.AfterFunc(s.cfg.GracePeriod, func() {
		s.enqueueTick(tickGrace, epoch)
	})
}

func (s *session) cancelGrace() {
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
	s.graceEpoch++
}

func (s *session) armKeepAlive() {
	if s.keepTimer != nil {
		s.keepTimer.Stop()
	}
	s.keepEpoch++
	epoch := s.keepEpoch
	s.keepTimer = time.AfterFunc(s.cfg.KeepAliveTTL, func() {
		s.enqueueTick(tickKeepAlive, epoch)
	})
}

func (s *session) stopTimers() {
	if s.commitTimer != nil {
		s.commitTimer.Stop()
	}
	if s.graceTimer != nil {
		s.graceTimer.Stop()
	}
	if s.keepTimer != nil {
		s.keepTimer.Stop()
	}
}

// enqueueTick feeds a timer fire back into the serialized input queue.
func (s *session) enqueueTick(source tickSource, epoch uint64) {
	select {
	case s.inputs <- sessionInput{kind: inputTick, tick: source, epoch: epoch}:
	case <-s.done:
	}
}
