package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-client/internal/mocks"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, "audit.chat-client", mock.MatchedBy(func(event any) bool {
		envelope, ok := event.(AuditEnvelope)
		if !ok {
			return false
		}
		return envelope.EventType == "audit_log" &&
			envelope.Service == "chat-client" &&
			envelope.SessionID == "session-1" &&
			envelope.Payload.Level == "warn" &&
			envelope.Payload.Text == "send failed"
	})).Return(nil).Once()

	emitter := NewAuditEmitter(publisher, "audit.chat-client", "chat-client", "test")
	userID := 7
	emitter.Emit(context.Background(), "warn", "send failed", "session-1", &userID)

	publisher.AssertExpectations(t)
}

func TestEmitPublishFailureIsSwallowed(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, "audit.chat-client", mock.Anything).Return(assert.AnError).Once()

	emitter := NewAuditEmitter(publisher, "audit.chat-client", "chat-client", "test")
	require.NotPanics(t, func() {
		emitter.Emit(context.Background(), "info", "hello", "session-1", nil)
	})
	publisher.AssertExpectations(t)
}

func TestEmitNilEmitterAndPublisher(t *testing.T) {
	var emitter *AuditEmitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), "info", "noop", "s", nil)
	})

	emitter = NewAuditEmitter(nil, "", "", "")
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), "info", "noop", "s", nil)
	})
}
