// Package dispatchloop implements the single cooperative scheduling thread
// spec.md §4.4 describes: drain pending-reply work, publish a snapshot,
// block in the driver's ReadIo, and route whatever comes back through
// internal/dispatch. It also runs the input-monitor side channel that wakes
// a blocked ReadIo when pending-reply work becomes serviceable again.
package dispatchloop

import (
	"context"
	"errors"
	"log"
	"sync/atomic"

	"github.com/oconsole/condrvhost/internal/dispatch"
	"github.com/oconsole/condrvhost/internal/drivertransport"
	"github.com/oconsole/condrvhost/internal/hostio"
	"github.com/oconsole/condrvhost/internal/iopacket"
	"github.com/oconsole/condrvhost/internal/serverstate"
)

// maxRetries bounds completeWithRetry's retry loop on transient cancellation
// of a direct completion. Releasing a message's buffers is an in-memory step
// that returns no error and is not retried.
const maxRetries = 8

// SnapshotPublisher is implemented by internal/snapshot's Publisher. Kept as
// a narrow interface here so the loop doesn't need to import that package,
// and so tests can drive the loop without a real publisher.
type SnapshotPublisher interface {
	PublishIfChanged()
}

type pendingEntry struct {
	fn  dispatch.Function
	msg *iopacket.Message
}

// Loop is the dispatch thread described in spec.md §5: it owns ServerState
// and is the only thing that mutates it once Run starts.
type Loop struct {
	Table    *dispatch.Table
	State    *serverstate.ServerState
	Driver   drivertransport.Driver
	Bridge   *hostio.Bridge
	Snapshot SnapshotPublisher

	hasPendingReplies atomic.Bool
	inDriverReadIO    atomic.Bool

	pending []pendingEntry
}

// Run executes the scheduling loop until the driver reports graceful
// disconnect, the state's stop flag is observed, or a fatal transport error
// occurs. It does not return until teardown has completed.
func (l *Loop) Run(ctx context.Context) error {
	stopCtx, cancelMonitor := context.WithCancel(ctx)
	defer cancelMonitor()
	go l.runStopWatcher(stopCtx)

	var staged *iopacket.Message

	for {
		if l.State.StopRequested() {
			l.teardown(staged)
			return nil
		}

		if completed := l.drainPending(); completed != nil {
			staged = completed
		}

		if l.Snapshot != nil {
			l.Snapshot.PublishIfChanged()
		}

		l.hasPendingReplies.Store(len(l.pending) > 0)

		var replyArg *iopacket.Completion
		if staged != nil {
			c := staged.AsCompletion()
			replyArg = &c
		}

		l.inDriverReadIO.Store(true)
		packet, err := l.Driver.ReadIo(replyArg)
		l.inDriverReadIO.Store(false)

		switch {
		case err == nil:
			if staged != nil {
				staged.ReleaseBuffers()
			}
			staged = l.dispatchNew(packet)

		case errors.Is(err, drivertransport.ErrOperationAborted):
			// The driver pairs a completion with the read it piggybacks onto;
			// if that read was cancelled we still treat the completion as
			// delivered rather than resubmitting it.
			if staged != nil {
				staged.ReleaseBuffers()
				staged = nil
			}
			if l.State.StopRequested() {
				l.teardown(nil)
				return nil
			}

		case errors.Is(err, drivertransport.ErrPipeNotConnected):
			l.teardown(staged)
			return nil

		default:
			l.teardown(staged)
			return err
		}
	}
}

// runStopWatcher cancels a blocked ReadIo when the caller's context ends,
// playing the role spec.md §5 assigns the signal monitor: observing an
// external stop condition and waking the dispatch thread so it can exit.
func (l *Loop) runStopWatcher(ctx context.Context) {
	<-ctx.Done()
	l.State.RequestStop()
	if l.Driver != nil {
		l.Driver.Cancel()
	}
}

// RunInputMonitor wakes a blocked ReadIo when host input becomes available
// while pending-reply work exists, so input-dependent handlers (ReadConsole,
// ReadConsoleInput) get a chance to retry instead of waiting for the next
// unrelated driver request. It returns when ctx is cancelled.
func (l *Loop) RunInputMonitor(ctx context.Context) {
	if l.Bridge == nil || l.Bridge.Input == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.Bridge.Input.Available():
			if l.hasPendingReplies.Load() && l.inDriverReadIO.Load() {
				l.Driver.Cancel()
			}
		}
	}
}

// drainPending retries each pending-reply entry once, in order, rotating
// still-pending ones to the back. It stops at the first entry that
// completes and returns it as the message to stage onto the next ReadIo;
// retries are bounded to one pass over the queue's current length so a
// stuck entry cannot starve the driver of new requests.
func (l *Loop) drainPending() *iopacket.Message {
	attempts := len(l.pending)
	for i := 0; i < attempts; i++ {
		entry := l.pending[0]
		l.pending = l.pending[1:]

		out, err := l.Table.Dispatch(l.State, l.Bridge, entry.fn, entry.msg)
		if err != nil {
			log.Printf("dispatchloop: pending retry for %s failed: %v", entry.msg.ID, err)
			entry.msg.Complete(iopacket.Completion{Status: iopacket.StatusUnsuccessful})
			return entry.msg
		}
		if out.RequestExit {
			l.State.RequestStop()
		}
		if out.ReplyPending {
			l.pending = append(l.pending, entry)
			continue
		}
		return entry.msg
	}
	return nil
}

// dispatchNew routes a freshly read packet to its handler. A handler that
// reports reply-pending is queued rather than staged, and dispatchNew
// returns nil in that case.
func (l *Loop) dispatchNew(p iopacket.Packet) *iopacket.Message {
	fn := dispatch.Function(p.Descriptor.Function)
	msg := iopacket.NewMessage(p)

	out, err := l.Table.Dispatch(l.State, l.Bridge, fn, msg)
	if err != nil {
		msg.Complete(iopacket.Completion{Status: iopacket.StatusInvalidParameter})
		return msg
	}
	if out.RequestExit {
		l.State.RequestStop()
	}
	if out.ReplyPending {
		l.pending = append(l.pending, pendingEntry{fn: fn, msg: msg})
		return nil
	}
	return msg
}

// teardown directly completes any staged reply and fails every remaining
// pending-reply entry with a generic unsuccessful status and zero
// information, per spec.md §4.4's teardown rule.
func (l *Loop) teardown(staged *iopacket.Message) {
	if staged != nil {
		l.completeWithRetry(staged)
	}
	for _, entry := range l.pending {
		entry.msg.Complete(iopacket.Completion{Status: iopacket.StatusUnsuccessful})
		l.completeWithRetry(entry.msg)
	}
	l.pending = nil
	if l.Bridge != nil && l.Bridge.Input != nil {
		l.Bridge.Input.MarkDisconnected()
	}
}

// completeWithRetry submits msg's reply directly via CompleteIo, retrying a
// bounded number of times on transient cancellation — the only path that
// can race with an in-flight Cancel() from the stop watcher during
// teardown.
func (l *Loop) completeWithRetry(msg *iopacket.Message) {
	defer msg.ReleaseBuffers()
	if l.Driver == nil {
		return
	}
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := l.Driver.CompleteIo(msg.Packet.Descriptor.Identifier, msg.AsCompletion())
		if err == nil {
			return
		}
		if !errors.Is(err, drivertransport.ErrOperationAborted) {
			log.Printf("dispatchloop: complete io for %s failed: %v", msg.ID, err)
			return
		}
	}
	log.Printf("dispatchloop: complete io for %s exhausted retries", msg.ID)
}
