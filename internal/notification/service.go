package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	emaildto "github.com/tgrozenski/agent-email/internal/email/dto"
	"github.com/tgrozenski/agent-email/internal/email/usecase"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// Processor handles one mailbox notification.
type Processor interface {
	Process(ctx context.Context, emailAddress string) usecase.ProcessResult
}

// Service pulls Gmail notifications from a Pub/Sub subscription and feeds
// them to the processor. It is the pull-mode alternative to the push endpoint.
type Service struct {
	pubsubClient *pubsub.Client
	processor    Processor
	topicName    string
	subName      string
}

func NewService(ctx context.Context, projectID, topicName, subName, credentialsFile string, processor Processor) (*Service, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	if subName == "" {
		subName = topicName + "-sub" // Convention: topic-sub
	}

	return &Service{
		pubsubClient: client,
		processor:    processor,
		topicName:    topicName,
		subName:      subName,
	}, nil
}

// Start blocks receiving messages until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Printf("[PubSub] Starting notification service with topic: %s, subscription: %s", s.topicName, s.subName)

	sub, err := s.ensureSubscription(ctx)
	if err != nil {
		return err
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if s.handleMessage(ctx, msg.ID, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
	if err != nil {
		return fmt.Errorf("error receiving messages: %w", err)
	}
	return nil
}

func (s *Service) Close() error {
	return s.pubsubClient.Close()
}

func (s *Service) ensureSubscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("error checking subscription existence: %w", err)
	}
	if exists {
		return sub, nil
	}

	topic := s.pubsubClient.Topic(s.topicName)
	topicExists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("error checking topic existence: %w", err)
	}
	if !topicExists {
		return nil, fmt.Errorf("topic %s does not exist, cannot create subscription", s.topicName)
	}

	sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	log.Printf("[PubSub] Created subscription: %s", s.subName)
	return sub, nil
}

// handleMessage processes one payload and reports whether to ack it.
// Undecodable payloads are acked: redelivery cannot fix them.
func (s *Service) handleMessage(ctx context.Context, id string, data []byte) bool {
	notification, err := emaildto.ParseNotification(data)
	if err != nil {
		log.Printf("[PubSub] Dropping message %s: %v", id, err)
		return true
	}

	log.Printf("[PubSub] Received notification for: %s (historyId: %s)", notification.EmailAddress, notification.HistoryID)
	result := s.processor.Process(ctx, notification.EmailAddress)
	if result.Err != nil {
		log.Printf("[PubSub] Message %s finished with %s: %v", id, result.Outcome, result.Err)
	}
	return usecase.ShouldAck(result.Outcome)
}
