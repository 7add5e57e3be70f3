package consumers

import (
	"context"
	"fmt"
	"strings"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	"github.com/padbank/padbank-backend/pkg/logger"
	"github.com/padbank/padbank-backend/pkg/messaging"
	"github.com/padbank/padbank-backend/pkg/metrics"
)

const userEventsQueue = "inventory-service.user-events"

// StudentWriter maintains the student projection
type StudentWriter interface {
	Upsert(ctx context.Context, s *domain.Student) error
	Delete(ctx context.Context, userID string) error
}

// UserEventConsumer keeps the student projection in step with the
// registration service
type UserEventConsumer struct {
	consumer *messaging.Consumer
	students StudentWriter
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

// NewUserEventConsumer creates a new user event consumer
func NewUserEventConsumer(rmq *messaging.RabbitMQ, students StudentWriter, m *metrics.Metrics, log *logger.Logger) (*UserEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, userEventsQueue, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeUserEvents, "user.#"); err != nil {
		return nil, err
	}

	c := newUserEventConsumer(students, m, log)
	c.consumer = consumer

	consumer.RegisterHandler(messaging.EventUserCreated, c.handleUserUpserted)
	consumer.RegisterHandler(messaging.EventUserUpdated, c.handleUserUpserted)
	consumer.RegisterHandler(messaging.EventUserDeleted, c.handleUserDeleted)

	return c, nil
}

func newUserEventConsumer(students StudentWriter, m *metrics.Metrics, log *logger.Logger) *UserEventConsumer {
	return &UserEventConsumer{
		students: students,
		metrics:  m,
		logger:   log.WithComponent("user-consumer"),
	}
}

// Start starts consuming messages
func (c *UserEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *UserEventConsumer) handleUserUpserted(ctx context.Context, event *messaging.Event) (err error) {
	defer func() { c.metrics.RecordEventConsumed(event.Type, err == nil) }()

	var data messaging.UserEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}
	if data.UserID == "" {
		return fmt.Errorf("%s event without user_id", event.Type)
	}

	c.logger.Info().
		Str("student_id", data.UserID).
		Str("event_type", event.Type).
		Msg("projecting student")

	return c.students.Upsert(ctx, &domain.Student{
		UserID:         data.UserID,
		Names:          strings.TrimSpace(data.Names),
		Age:            optional(data.Age),
		Sex:            optional(data.Sex),
		Disability:     strings.ToLower(strings.TrimSpace(data.Disability)),
		DisabilityType: strings.TrimSpace(data.DisabilityType),
	})
}

func (c *UserEventConsumer) handleUserDeleted(ctx context.Context, event *messaging.Event) (err error) {
	defer func() { c.metrics.RecordEventConsumed(event.Type, err == nil) }()

	var data messaging.UserDeletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("student_id", data.UserID).
		Msg("removing student")

	return c.students.Delete(ctx, data.UserID)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
