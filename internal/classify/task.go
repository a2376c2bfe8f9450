package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ofarooq21/AI-Fitness-Tracker/internal/queue"
)

// TaskName is the queue task that runs a Classifier.
const TaskName = "classify_meal"

type taskPayload struct {
	FileKey string `json:"file_key"`
}

type taskHandler struct {
	classifier Classifier
}

// NewTaskHandler returns the worker-side handler for classify_meal tasks.
func NewTaskHandler(c Classifier) queue.Handler {
	return &taskHandler{classifier: c}
}

func (h *taskHandler) Name() string { return TaskName }

func (h *taskHandler) Handle(ctx context.Context, payload json.RawMessage) (any, error) {
	var p taskPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, queue.Permanent(fmt.Errorf("decode %s payload: %w", TaskName, err))
	}
	if strings.TrimSpace(p.FileKey) == "" {
		return nil, queue.Permanent(ErrEmptyFileKey)
	}

	result, err := h.classifier.Classify(ctx, p.FileKey)
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", p.FileKey, err)
	}
	return result, nil
}
