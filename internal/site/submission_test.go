package site

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybat.ai/cybat-web/internal/relay"
)

var validDraft = Draft{
	Name:    "Ada Lovelace",
	Email:   "ada@example.com",
	Company: "Analytical Engines",
	Message: "We run 40 GKE clusters.",
}

// blockingSender parks each Send until the test resolves it.
type blockingSender struct {
	started chan *pendingSend
}

type pendingSend struct {
	draft  Draft
	result chan error
}

func newBlockingSender() *blockingSender {
	return &blockingSender{started: make(chan *pendingSend, 4)}
}

func (s *blockingSender) Send(ctx context.Context, d Draft) error {
	p := &pendingSend{draft: d, result: make(chan error, 1)}
	s.started <- p
	select {
	case err := <-p.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestSubmitSuccessClearsDraft(t *testing.T) {
	var got relay.Draft
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	c := NewController(nil, relay.NewClient(srv.URL))
	c.SetDraft(validDraft)

	status, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, StatusSuccess, c.Status())
	require.Equal(t, Draft{}, c.Draft())
	require.Equal(t, validDraft, got)
}

func TestSubmitNon2xxKeepsDraft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"form disabled"}`, http.StatusUnprocessableEntity)
	}))
	t.Cleanup(srv.Close)

	c := NewController(nil, relay.NewClient(srv.URL))
	c.SetDraft(validDraft)

	status, err := c.Submit(context.Background())
	require.Equal(t, StatusError, status)
	var statusErr *relay.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusUnprocessableEntity, statusErr.Code)
	require.Equal(t, StatusError, c.Status())
	require.Equal(t, validDraft, c.Draft())
	require.ErrorAs(t, c.LastError(), &statusErr)
}

func TestSubmitNetworkErrorKeepsDraft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewController(nil, relay.NewClient(url))
	c.SetDraft(validDraft)

	status, err := c.Submit(context.Background())
	require.Error(t, err)
	require.Equal(t, StatusError, status)
	require.Equal(t, validDraft, c.Draft())
}

func TestSendingIsObservableWhileInFlight(t *testing.T) {
	sender := newBlockingSender()
	c := NewController(nil, sender)
	c.SetDraft(validDraft)

	sub := c.StartSubmit(context.Background())
	require.Equal(t, StatusSending, c.Status())
	pending := <-sender.started
	require.Equal(t, validDraft, pending.draft)
	require.Equal(t, StatusSending, c.Status())

	pending.result <- nil
	status, err := sub.Wait()
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, StatusSuccess, c.Status())
}

func TestSubmitAfterErrorAndSuccessReentersSending(t *testing.T) {
	sender := newBlockingSender()
	c := NewController(nil, sender)

	c.SetDraft(validDraft)
	sub := c.StartSubmit(context.Background())
	(<-sender.started).result <- errors.New("boom")
	status, _ := sub.Wait()
	require.Equal(t, StatusError, status)

	sub = c.StartSubmit(context.Background())
	require.Equal(t, StatusSending, c.Status())
	(<-sender.started).result <- nil
	status, _ = sub.Wait()
	require.Equal(t, StatusSuccess, status)

	c.SetDraft(validDraft)
	sub = c.StartSubmit(context.Background())
	require.Equal(t, StatusSending, c.Status())
	(<-sender.started).result <- nil
	_, _ = sub.Wait()
}

func TestStaleAttemptDoesNotOverwriteNewer(t *testing.T) {
	sender := newBlockingSender()
	c := NewController(nil, sender)
	c.SetDraft(validDraft)

	first := c.StartSubmit(context.Background())
	firstSend := <-sender.started
	second := c.StartSubmit(context.Background())
	secondSend := <-sender.started

	secondSend.result <- nil
	status, err := second.Wait()
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, status)

	firstSend.result <- errors.New("late failure")
	status, err = first.Wait()
	require.Error(t, err)
	require.Equal(t, StatusError, status)

	require.Equal(t, StatusSuccess, c.Status(), "superseded attempt must not change the status")
	require.Equal(t, Draft{}, c.Draft())
	require.NoError(t, c.LastError())
}

func TestSubmitValidationFailureSkipsRelay(t *testing.T) {
	sender := newBlockingSender()
	c := NewController(nil, sender)
	c.SetDraft(Draft{Email: "not-an-email"})

	sub := c.StartSubmit(context.Background())
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("validation failure should finish immediately")
	}
	status, err := sub.Wait()
	require.Equal(t, StatusError, status)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Contains(t, vErr.Fields, "name")
	require.Contains(t, vErr.Fields, "email")
	require.Contains(t, vErr.Fields, "message")
	require.Len(t, sender.started, 0)

	v := c.View()
	require.Equal(t, StatusError, v.Status)
	require.Equal(t, vErr.Fields, v.FieldErrors)
	require.Equal(t, "not-an-email", v.Draft.Email)
}

func TestSubmitWithoutValidationRelaysEmptyDraft(t *testing.T) {
	sender := newBlockingSender()
	c := NewController(nil, sender, WithValidation(false))

	sub := c.StartSubmit(context.Background())
	pending := <-sender.started
	require.Equal(t, Draft{}, pending.draft)
	pending.result <- nil
	status, err := sub.Wait()
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, status)
}

func TestSubmitWithoutSender(t *testing.T) {
	c := NewController(nil, nil)
	c.SetDraft(validDraft)

	status, err := c.Submit(context.Background())
	require.ErrorIs(t, err, ErrNoSender)
	require.Equal(t, StatusError, status)
}

func TestSubmitSurvivesCanceledRequestContext(t *testing.T) {
	sender := newBlockingSender()
	c := NewController(nil, sender)
	c.SetDraft(validDraft)

	ctx, cancel := context.WithCancel(context.Background())
	sub := c.StartSubmit(ctx)
	pending := <-sender.started
	cancel()
	pending.result <- nil

	status, err := sub.Wait()
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, status)
}

type recordingNotifier struct {
	published chan Draft
	err       error
}

func newRecordingNotifier(err error) *recordingNotifier {
	return &recordingNotifier{published: make(chan Draft, 4), err: err}
}

func (n *recordingNotifier) Publish(_ context.Context, d Draft) (string, error) {
	n.published <- d
	return "msg-1", n.err
}

func TestNotifierSeesOnlyDeliveredDrafts(t *testing.T) {
	sender := newBlockingSender()
	notifier := newRecordingNotifier(nil)
	c := NewController(nil, sender, WithNotifier(notifier))
	c.SetDraft(validDraft)

	sub := c.StartSubmit(context.Background())
	(<-sender.started).result <- errors.New("down")
	_, _ = sub.Wait()

	sub = c.StartSubmit(context.Background())
	(<-sender.started).result <- nil
	_, _ = sub.Wait()

	select {
	case d := <-notifier.published:
		require.Equal(t, validDraft, d)
	case <-time.After(2 * time.Second):
		t.Fatal("delivered draft was not published")
	}
	require.Empty(t, notifier.published)
}

func TestNotifierFailureDoesNotChangeOutcome(t *testing.T) {
	sender := newBlockingSender()
	notifier := newRecordingNotifier(errors.New("pubsub down"))
	c := NewController(nil, sender, WithNotifier(notifier))
	c.SetDraft(validDraft)

	sub := c.StartSubmit(context.Background())
	(<-sender.started).result <- nil
	status, err := sub.Wait()
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, status)
	<-notifier.published
	require.Equal(t, StatusSuccess, c.Status())
}

// stalledNotifier never returns until released.
type stalledNotifier struct {
	release chan struct{}
	called  chan struct{}
}

func (n *stalledNotifier) Publish(context.Context, Draft) (string, error) {
	close(n.called)
	<-n.release
	return "", nil
}

func TestSlowNotifierDoesNotDelayOutcome(t *testing.T) {
	sender := newBlockingSender()
	notifier := &stalledNotifier{release: make(chan struct{}), called: make(chan struct{})}
	t.Cleanup(func() { close(notifier.release) })
	c := NewController(nil, sender, WithNotifier(notifier))
	c.SetDraft(validDraft)

	sub := c.StartSubmit(context.Background())
	(<-sender.started).result <- nil

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("submission outcome waited for the notifier")
	}
	status, err := sub.Wait()
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, status)
	require.Equal(t, StatusSuccess, c.Status())
	require.Equal(t, Draft{}, c.Draft())

	select {
	case <-notifier.called:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was never called")
	}
}
