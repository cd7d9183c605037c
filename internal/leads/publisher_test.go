package leads

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"cybat.ai/cybat-web/internal/relay"
)

func TestPublisherPublishesLead(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "leads")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	defer topic.Stop()

	publisher, err := NewPublisher(topic)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	submittedAt := time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC)
	publisher.now = func() time.Time { return submittedAt }

	draft := relay.Draft{Name: "Ada", Email: "ada@Example.com", Company: "AE", Message: "hi"}
	if _, err := publisher.Publish(ctx, draft); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	msg := messages[0]
	if got := msg.Attributes["emailDomain"]; got != "example.com" {
		t.Fatalf("unexpected emailDomain attribute %q", got)
	}
	if got := msg.Attributes["source"]; got != "partner-form" {
		t.Fatalf("unexpected source attribute %q", got)
	}

	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if event.Name != "Ada" || event.Email != "ada@Example.com" || event.Company != "AE" || event.Message != "hi" {
		t.Fatalf("unexpected event %+v", event)
	}
	if !event.SubmittedAt.Equal(submittedAt) {
		t.Fatalf("unexpected submittedAt %s", event.SubmittedAt)
	}
}

func TestNewPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPublisher(nil); err == nil {
		t.Fatal("expected error for nil topic")
	}
}
