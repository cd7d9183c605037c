package site

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"cybat.ai/cybat-web/internal/observability"
	"cybat.ai/cybat-web/internal/partners"
	"cybat.ai/cybat-web/internal/relay"
)

// Draft is the partner enquiry being edited.
type Draft = relay.Draft

// PartnerSource supplies the partner list.
type PartnerSource interface {
	Load(ctx context.Context) ([]partners.Partner, error)
}

// Sender relays a submitted draft.
type Sender interface {
	Send(ctx context.Context, d Draft) error
}

// Notifier is told about every enquiry the relay accepted.
type Notifier interface {
	Publish(ctx context.Context, d Draft) (string, error)
}

// Controller holds the UI state of one visitor session: the mobile menu,
// the expanded FAQ entry, the partner list and the partner form.
type Controller struct {
	partnerSrc PartnerSource
	sender     Sender
	notifier   Notifier
	faqs       []FAQEntry
	validate   bool

	mountOnce sync.Once

	mu          sync.Mutex
	menuOpen    bool
	activeFAQ   int
	partners    []partners.Partner
	draft       Draft
	status      Status
	fieldErrors map[string]string
	lastErr     error
	attempt     uint64
}

// Option customises a Controller.
type Option func(*Controller)

// WithFAQs replaces the default FAQ entries.
func WithFAQs(entries []FAQEntry) Option {
	return func(c *Controller) {
		c.faqs = append([]FAQEntry(nil), entries...)
	}
}

// WithValidation toggles draft validation before relaying.
func WithValidation(enabled bool) Option {
	return func(c *Controller) {
		c.validate = enabled
	}
}

// WithNotifier publishes delivered enquiries to n.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

// NewController builds a controller in its initial state: menu closed, no
// FAQ expanded, empty draft, status idle.
func NewController(src PartnerSource, sender Sender, opts ...Option) *Controller {
	c := &Controller{
		partnerSrc: src,
		sender:     sender,
		faqs:       DefaultFAQs,
		validate:   true,
		activeFAQ:  -1,
		partners:   []partners.Partner{},
		status:     StatusIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mount performs the one-time partner load. Failures leave the list empty.
func (c *Controller) Mount(ctx context.Context) {
	c.mountOnce.Do(func() {
		if c.partnerSrc == nil {
			return
		}
		list, err := c.partnerSrc.Load(ctx)
		if err != nil {
			observability.FromContext(ctx).Warn("partners unavailable", zap.Error(err))
			return
		}
		if list == nil {
			list = []partners.Partner{}
		}
		c.mu.Lock()
		c.partners = list
		c.mu.Unlock()
	})
}

// ToggleMobileMenu flips the mobile menu.
func (c *Controller) ToggleMobileMenu() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.menuOpen = !c.menuOpen
}

// CloseMobileMenu closes the mobile menu. Navigation always calls it.
func (c *Controller) CloseMobileMenu() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.menuOpen = false
}

// MenuOpen reports whether the mobile menu is open.
func (c *Controller) MenuOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.menuOpen
}

// ToggleFAQ collapses entry i if it is expanded, otherwise expands it and
// collapses any other. Indices outside the FAQ list are ignored.
func (c *Controller) ToggleFAQ(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.faqs) {
		return
	}
	if c.activeFAQ == i {
		c.activeFAQ = -1
		return
	}
	c.activeFAQ = i
}

// ActiveFAQ returns the expanded entry, if any.
func (c *Controller) ActiveFAQ() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeFAQ, c.activeFAQ >= 0
}

// FAQs returns the entries with their expanded state.
func (c *Controller) FAQs() []FAQView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.faqViews()
}

func (c *Controller) faqViews() []FAQView {
	out := make([]FAQView, len(c.faqs))
	for i, entry := range c.faqs {
		out[i] = FAQView{
			Index:    i,
			Question: entry.Question,
			Answer:   sanitizeAnswer(entry.Answer),
			Open:     i == c.activeFAQ,
		}
	}
	return out
}

// Partners returns the loaded partners; empty until a load succeeds.
func (c *Controller) Partners() []partners.Partner {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]partners.Partner{}, c.partners...)
}

// SetDraft replaces the form draft.
func (c *Controller) SetDraft(d Draft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = d
}

// Draft returns the form draft.
func (c *Controller) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Status returns the submission status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastError returns the error behind the current error status.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// View is a consistent snapshot of the controller for rendering.
type View struct {
	MenuOpen    bool
	FAQs        []FAQView
	Partners    []partners.Partner
	Draft       Draft
	Status      Status
	FieldErrors map[string]string
}

// View snapshots the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	fieldErrors := make(map[string]string, len(c.fieldErrors))
	for k, v := range c.fieldErrors {
		fieldErrors[k] = v
	}
	return View{
		MenuOpen:    c.menuOpen,
		FAQs:        c.faqViews(),
		Partners:    append([]partners.Partner{}, c.partners...),
		Draft:       c.draft,
		Status:      c.status,
		FieldErrors: fieldErrors,
	}
}
