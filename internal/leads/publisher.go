// Package leads publishes delivered partner enquiries to Pub/Sub so other
// systems (CRM sync, notifications) can pick them up.
package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"

	"cybat.ai/cybat-web/internal/relay"
)

// Event is the message body published for each delivered enquiry.
type Event struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Company     string    `json:"company,omitempty"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Publisher publishes lead events to a Pub/Sub topic.
type Publisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
	now     func() time.Time
}

// NewPublisher constructs a Pub/Sub backed lead publisher.
func NewPublisher(topic *pubsub.Topic) (*Publisher, error) {
	if topic == nil {
		return nil, errors.New("leads publisher: topic is required")
	}
	return &Publisher{
		topic:   topic,
		marshal: json.Marshal,
		now:     time.Now,
	}, nil
}

// Publish enqueues d and waits for the server to acknowledge it.
func (p *Publisher) Publish(ctx context.Context, d relay.Draft) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("leads publisher: not initialised")
	}
	data, err := p.marshal(Event{
		Name:        d.Name,
		Email:       d.Email,
		Company:     d.Company,
		Message:     d.Message,
		SubmittedAt: p.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal lead: %w", err)
	}

	attrs := map[string]string{"source": "partner-form"}
	if domain := emailDomain(d.Email); domain != "" {
		attrs["emailDomain"] = domain
	}

	id, err := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish lead: %w", err)
	}
	return id, nil
}

func emailDomain(email string) string {
	_, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok {
		return ""
	}
	return strings.ToLower(domain)
}
