package audit

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
)

// Handler writes queued entries on the worker side.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var e Entry
	if err := json.Unmarshal(t.Payload(), &e); err != nil {
		return fmt.Errorf("bad audit payload: %v: %w", err, asynq.SkipRetry)
	}
	if e.RequestUUID == "" {
		return fmt.Errorf("audit payload without request uuid: %w", asynq.SkipRetry)
	}
	return h.store.Write(ctx, e)
}
