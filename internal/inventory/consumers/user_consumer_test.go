package consumers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	"github.com/padbank/padbank-backend/pkg/logger"
	"github.com/padbank/padbank-backend/pkg/messaging"
)

type memStudents struct {
	students map[string]*domain.Student
}

func (m *memStudents) Upsert(_ context.Context, s *domain.Student) error {
	m.students[s.UserID] = s
	return nil
}

func (m *memStudents) Delete(_ context.Context, userID string) error {
	delete(m.students, userID)
	return nil
}

func event(t *testing.T, eventType string, data interface{}) *messaging.Event {
	t.Helper()
	e, err := messaging.NewEvent(eventType, "user-service", "corr-1", data)
	require.NoError(t, err)
	return e
}

func TestUserEventConsumer_ProjectsStudents(t *testing.T) {
	store := &memStudents{students: map[string]*domain.Student{}}
	c := newUserEventConsumer(store, nil, logger.Nop())
	ctx := context.Background()

	require.NoError(t, c.handleUserUpserted(ctx, event(t, messaging.EventUserCreated, messaging.UserEvent{
		UserID:         "STU001",
		Names:          " Amina Otieno ",
		Age:            "15",
		Disability:     "Yes",
		DisabilityType: "Visual",
	})))

	s := store.students["STU001"]
	require.NotNil(t, s)
	assert.Equal(t, "Amina Otieno", s.Names)
	require.NotNil(t, s.Age)
	assert.Equal(t, "15", *s.Age)
	assert.Nil(t, s.Sex)
	assert.Equal(t, "yes", s.Disability)
	assert.Equal(t, "Visual", domain.DisabilityLabel(s))
	assert.Equal(t, "14-16", domain.AgeGroup(s.Age))

	require.NoError(t, c.handleUserUpserted(ctx, event(t, messaging.EventUserUpdated, messaging.UserEvent{
		UserID:     "STU001",
		Names:      "Amina Otieno",
		Disability: "no",
	})))
	assert.Equal(t, domain.LabelNoDisability, domain.DisabilityLabel(store.students["STU001"]))
	assert.Nil(t, store.students["STU001"].Age)

	require.NoError(t, c.handleUserDeleted(ctx, event(t, messaging.EventUserDeleted, messaging.UserDeletedEvent{UserID: "STU001"})))
	assert.Empty(t, store.students)
}

func TestUserEventConsumer_RejectsMissingUserID(t *testing.T) {
	store := &memStudents{students: map[string]*domain.Student{}}
	c := newUserEventConsumer(store, nil, logger.Nop())

	err := c.handleUserUpserted(context.Background(), event(t, messaging.EventUserCreated, messaging.UserEvent{Names: "Nobody"}))

	assert.Error(t, err)
	assert.Empty(t, store.students)
}
