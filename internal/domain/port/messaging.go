package port

import (
	"context"

	"github.com/clipstream/clipstream-extraction-service/internal/domain/entity"
)

// StatusPublisher emits job status updates to the media.status queue.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg *entity.ExtractionStatusMessage) error
}

// DLQPublisher parks poisoned or exhausted messages with a reason header.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg []byte, reason string) error
}
