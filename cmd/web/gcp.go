package main

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"cybat.ai/cybat-web/internal/config"
	"cybat.ai/cybat-web/internal/leads"
	"cybat.ai/cybat-web/internal/relay"
	"cybat.ai/cybat-web/internal/secrets"
)

// resolveSecrets replaces secret:// references in cfg with their payloads.
func resolveSecrets(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if !secrets.IsReference(cfg.Session.SigningKey) {
		return nil
	}
	resolver := secrets.NewResolver(ctx,
		secrets.WithProject(cfg.GCP.ProjectID),
		secrets.WithLogger(logger.Named("secrets")),
	)
	defer func() {
		if err := resolver.Close(); err != nil {
			logger.Warn("secret manager close error", zap.Error(err))
		}
	}()
	key, err := resolver.Resolve(ctx, cfg.Session.SigningKey)
	if err != nil {
		return fmt.Errorf("resolve session signing key: %w", err)
	}
	cfg.Session.SigningKey = key
	return nil
}

// leadNotifier publishes with a bounded wait so a slow broker cannot hold
// the submission open.
type leadNotifier struct {
	publisher *leads.Publisher
	timeout   time.Duration
}

func (n *leadNotifier) Publish(ctx context.Context, d relay.Draft) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.publisher.Publish(ctx, d)
}

// newLeadNotifier connects to Pub/Sub when a leads topic is configured. The
// returned close func is never nil.
func newLeadNotifier(ctx context.Context, cfg config.Config, logger *zap.Logger) (*leadNotifier, func(), error) {
	noop := func() {}
	if cfg.Leads.Topic == "" {
		return nil, noop, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.GCP.ProjectID)
	if err != nil {
		return nil, noop, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(cfg.Leads.Topic)
	publisher, err := leads.NewPublisher(topic)
	if err != nil {
		_ = client.Close()
		return nil, noop, err
	}
	closeFn := func() {
		topic.Stop()
		if err := client.Close(); err != nil {
			logger.Warn("pubsub close error", zap.Error(err))
		}
	}
	logger.Info("publishing leads", zap.String("topic", cfg.Leads.Topic))
	return &leadNotifier{publisher: publisher, timeout: cfg.Leads.PublishTimeout}, closeFn, nil
}
