package outbox_poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/exchange"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/outbox"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockOutboxRepo for testing
type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	args := m.Called(tx)
	return args.Get(0).(outbox.Repository)
}

// MockProducer for testing
type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockHistory for testing
type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) Append(ctx context.Context, record *exchange.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func newPendingMessage(t *testing.T, eventType exchange.EventType, id int64) *outbox.Message {
	t.Helper()
	req, err := exchange.NewRequest(uuid.New(), uuid.New(), uuid.New(), 107, "", 72*time.Hour)
	assert.NoError(t, err)
	message, err := outbox.NewMessage(exchange.NewEvent(eventType, req))
	assert.NoError(t, err)
	message.ID = id
	return message
}

func TestEventPublisher_PublishEvent(t *testing.T) {
	logger := slog.Default()

	createdMessage := newPendingMessage(t, exchange.EventCreated, 1)
	acceptedMessage := newPendingMessage(t, exchange.EventAccepted, 2)

	tests := []struct {
		name          string
		message       *outbox.Message
		setupMocks    func(outboxRepo *MockOutboxRepo, producer *MockProducer, history *MockHistory)
		expectedError error
	}{
		{
			name:    "successful publish",
			message: createdMessage,
			setupMocks: func(outboxRepo *MockOutboxRepo, producer *MockProducer, history *MockHistory) {
				producer.On("Publish", mock.Anything, createdMessage.ExchangeID.String(), mock.MatchedBy(func(e *exchange.Event) bool {
					return e.Type == exchange.EventCreated && e.ExchangeID == createdMessage.ExchangeID
				})).Return(nil).Once()

				outboxRepo.On("UpdateStatus", mock.Anything, int64(1), outbox.StatusProcessed).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name:    "accepted event appends history record",
			message: acceptedMessage,
			setupMocks: func(outboxRepo *MockOutboxRepo, producer *MockProducer, history *MockHistory) {
				producer.On("Publish", mock.Anything, acceptedMessage.ExchangeID.String(), mock.Anything).Return(nil).Once()

				history.On("Append", mock.Anything, mock.MatchedBy(func(r *exchange.Record) bool {
					return r.ExchangeID == acceptedMessage.ExchangeID
				})).Return(nil).Once()

				outboxRepo.On("UpdateStatus", mock.Anything, int64(2), outbox.StatusProcessed).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "error unmarshalling payload",
			message: &outbox.Message{
				ID:         3,
				ExchangeID: uuid.New(),
				Status:     outbox.StatusPending,
				Payload:    []byte("invalid json"),
				CreatedAt:  time.Now(),
			},
			setupMocks: func(outboxRepo *MockOutboxRepo, producer *MockProducer, history *MockHistory) {
				outboxRepo.On("UpdateStatus", mock.Anything, int64(3), outbox.StatusFailedToPublish).Return(nil).Once()
			},
			expectedError: errors.New("unmarshal payload"),
		},
		{
			name:    "error publishing to kafka",
			message: createdMessage,
			setupMocks: func(outboxRepo *MockOutboxRepo, producer *MockProducer, history *MockHistory) {
				producer.On("Publish", mock.Anything, createdMessage.ExchangeID.String(), mock.Anything).Return(errors.New("kafka down")).Once()
			},
			expectedError: errors.New("failed to publish event"),
		},
		{
			name:    "error appending history record",
			message: acceptedMessage,
			setupMocks: func(outboxRepo *MockOutboxRepo, producer *MockProducer, history *MockHistory) {
				producer.On("Publish", mock.Anything, acceptedMessage.ExchangeID.String(), mock.Anything).Return(nil).Once()

				history.On("Append", mock.Anything, mock.Anything).Return(errors.New("mongo down")).Once()
			},
			expectedError: errors.New("failed to append history record"),
		},
		{
			name:    "error updating outbox status",
			message: createdMessage,
			setupMocks: func(outboxRepo *MockOutboxRepo, producer *MockProducer, history *MockHistory) {
				producer.On("Publish", mock.Anything, createdMessage.ExchangeID.String(), mock.Anything).Return(nil).Once()

				outboxRepo.On("UpdateStatus", mock.Anything, int64(1), outbox.StatusProcessed).Return(errors.New("db error")).Once()
			},
			expectedError: errors.New("failed to mark as PROCESSED"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOutboxRepo := &MockOutboxRepo{}
			mockProducer := &MockProducer{}
			mockHistory := &MockHistory{}
			publisher := NewEventPublisher(mockOutboxRepo, mockProducer, mockHistory, logger)

			tt.setupMocks(mockOutboxRepo, mockProducer, mockHistory)
			ctx := context.Background()

			err := publisher.PublishEvent(ctx, tt.message)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockOutboxRepo.AssertExpectations(t)
			mockProducer.AssertExpectations(t)
			mockHistory.AssertExpectations(t)
		})
	}
}
