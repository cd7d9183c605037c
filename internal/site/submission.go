package site

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"cybat.ai/cybat-web/internal/observability"
)

// Status is the partner form submission state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSending Status = "sending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

func (s Status) String() string { return string(s) }

// ErrNoSender is reported when a controller has nothing to relay drafts to.
var ErrNoSender = errors.New("site: no sender configured")

var submissions = observability.Counter("cybat_web.form.submissions", "Partner form submissions by outcome.")

// Submission is one in-flight attempt to relay the draft.
type Submission struct {
	seq    uint64
	done   chan struct{}
	status Status
	err    error
}

// Done is closed once the attempt has finished.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the attempt finishes and returns its outcome. A
// superseded attempt still reports its own outcome, though it no longer
// changes the controller.
func (s *Submission) Wait() (Status, error) {
	<-s.done
	return s.status, s.err
}

func (s *Submission) finish(status Status, err error) {
	s.status = status
	s.err = err
	close(s.done)
}

// StartSubmit moves the form to sending and relays the draft in the
// background. The status is already sending when StartSubmit returns unless
// validation rejected the draft, in which case the returned submission is
// already finished with StatusError.
func (c *Controller) StartSubmit(ctx context.Context) *Submission {
	logger := observability.FromContext(ctx)

	c.mu.Lock()
	c.attempt++
	sub := &Submission{seq: c.attempt, done: make(chan struct{})}
	draft := c.draft
	c.fieldErrors = nil
	c.lastErr = nil

	if c.validate {
		if err := ValidateDraft(draft); err != nil {
			var vErr *ValidationError
			if errors.As(err, &vErr) {
				c.fieldErrors = vErr.Fields
			}
			c.status = StatusError
			c.lastErr = err
			c.mu.Unlock()
			recordSubmission(ctx, "invalid")
			sub.finish(StatusError, err)
			return sub
		}
	}
	c.status = StatusSending
	c.mu.Unlock()

	// The relay outlives the request that triggered it; the client enforces
	// its own timeout.
	relayCtx := context.WithoutCancel(ctx)
	go func() {
		var err error
		if c.sender == nil {
			err = ErrNoSender
		} else {
			err = c.sender.Send(relayCtx, draft)
		}
		status := StatusSuccess
		if err != nil {
			status = StatusError
		}
		applied := c.complete(sub.seq, status, err)

		outcome := string(status)
		if !applied {
			outcome = "stale"
		}
		recordSubmission(relayCtx, outcome)
		if err != nil {
			logger.Warn("partner form relay failed", zap.Error(err), zap.Uint64("attempt", sub.seq))
			sub.finish(status, err)
			return
		}
		logger.Info("partner form relayed", zap.Uint64("attempt", sub.seq))
		// Waiters get the outcome before the notifier is contacted.
		sub.finish(status, nil)
		c.notify(relayCtx, draft)
	}()
	return sub
}

// Submit relays the draft and waits for the outcome.
func (c *Controller) Submit(ctx context.Context) (Status, error) {
	return c.StartSubmit(ctx).Wait()
}

// complete applies an attempt's result if no newer attempt has started.
func (c *Controller) complete(seq uint64, status Status, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.attempt {
		return false
	}
	c.status = status
	c.lastErr = err
	if status == StatusSuccess {
		c.draft = Draft{}
	}
	return true
}

// notify publishes a delivered draft after the submission has finished.
// Failures only get logged.
func (c *Controller) notify(ctx context.Context, d Draft) {
	if c.notifier == nil {
		return
	}
	id, err := c.notifier.Publish(ctx, d)
	logger := observability.FromContext(ctx)
	if err != nil {
		logger.Warn("lead notification failed", zap.Error(err))
		return
	}
	logger.Debug("lead notification published", zap.String("message_id", id))
}

func recordSubmission(ctx context.Context, outcome string) {
	submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
