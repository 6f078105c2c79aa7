// Package walker abstracts the step walker, the external collaborator that
// advances an execution through its automation graph one node at a time.
package walker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/funnelworks/journeyd/pkg/eventbus"
	"github.com/funnelworks/journeyd/pkg/events"
	"github.com/google/uuid"
)

// StepWalker advances one execution. Callers treat failures as best-effort:
// they log and keep the execution in a recoverable state rather than
// propagating the error.
type StepWalker interface {
	Advance(ctx context.Context, executionID string) error
}

const defaultTimeout = 10 * time.Second

// HTTPWalker invokes the walker endpoint directly. This preserves the
// original best-effort semantics: one awaited POST per execution, no retry.
type HTTPWalker struct {
	endpoint   string
	authToken  string
	httpClient *http.Client
}

// NewHTTPWalker creates a walker client against the given endpoint. A
// bounded timeout applies to every invocation.
func NewHTTPWalker(endpoint, authToken string) *HTTPWalker {
	return &HTTPWalker{
		endpoint:  endpoint,
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

func (w *HTTPWalker) Advance(ctx context.Context, executionID string) error {
	payload, err := json.Marshal(map[string]string{"execution_id": executionID})
	if err != nil {
		return fmt.Errorf("failed to marshal walker payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build walker request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")
	if w.authToken != "" {
		request.Header.Set("Authorization", "Bearer "+w.authToken)
	}

	response, err := w.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("walker invocation failed: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("walker returned status %d", response.StatusCode)
	}

	return nil
}

// BusWalker hands the advance request to the event bus instead of calling
// the walker directly, trading immediacy for durable delivery.
type BusWalker struct {
	bus eventbus.EventBus
}

func NewBusWalker(bus eventbus.EventBus) *BusWalker {
	return &BusWalker{bus: bus}
}

func (w *BusWalker) Advance(ctx context.Context, executionID string) error {
	event := events.ExecutionActivated{
		BaseEvent: events.BaseEvent{
			ID:        uuid.New().String(),
			Type:      events.ExecutionActivatedEvent,
			Timestamp: time.Now().UTC(),
		},
		ExecutionID: executionID,
	}

	return w.bus.Publish(ctx, executionID, event)
}

// NoopWalker does nothing; used in tests and dry runs.
type NoopWalker struct{}

func (NoopWalker) Advance(ctx context.Context, executionID string) error {
	return nil
}
