package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/tabula/backend/internal/report"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger"
	"github.com/OFFIS-RIT/tabula/backend/pkg/profile"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrInvalidMessage marks deliveries that can never succeed.
var ErrInvalidMessage = errors.New("invalid summary message")

type SummaryMessage struct {
	CorrelationID string `json:"correlation_id"`
	Key           string `json:"key"`
	Mode          string `json:"mode,omitempty"`
	Samples       int    `json:"samples,omitempty"`
}

// Processor summarizes a stored object.
type Processor interface {
	Process(ctx context.Context, key string, opts report.Options) (*report.Result, error)
}

// PublishSummary enqueues a summary job for key and returns its
// correlation id.
func PublishSummary(ch Channel, msg SummaryMessage) (string, error) {
	if msg.Key == "" {
		return "", fmt.Errorf("summary message without key")
	}
	if msg.CorrelationID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return "", fmt.Errorf("failed to generate correlation id: %w", err)
		}
		msg.CorrelationID = id
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	if err := PublishFIFO(ch, SummaryQueue, data); err != nil {
		return "", fmt.Errorf("failed to publish summary job: %w", err)
	}
	logger.Info("[Queue] Enqueued summary", "key", msg.Key, "correlation_id", msg.CorrelationID)
	return msg.CorrelationID, nil
}

func ProcessSummaryMessage(ctx context.Context, p Processor, body []byte) error {
	var msg SummaryMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if msg.Key == "" {
		return fmt.Errorf("%w: missing key", ErrInvalidMessage)
	}
	mode, err := profile.ParseMode(msg.Mode)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	res, err := p.Process(ctx, msg.Key, report.Options{Mode: mode, Samples: msg.Samples})
	if err != nil {
		return fmt.Errorf("summary of %s failed: %w", msg.Key, err)
	}
	logger.Info(
		"[Queue] Summary finished",
		"key", msg.Key,
		"correlation_id", msg.CorrelationID,
		"metadata_file", res.MetadataFile,
	)
	return nil
}
