package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/prodsheet/internal/resilience"
	"github.com/sells-group/prodsheet/internal/sheet"
	"github.com/sells-group/prodsheet/pkg/anthropic"
)

// mockClient replays queued responses and records requests.
type mockClient struct {
	responses []*anthropic.MessageResponse
	errs      []error
	calls     int
	requests  []anthropic.MessageRequest
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	i := m.calls
	m.calls++
	m.requests = append(m.requests, req)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return nil, assert.AnError
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content:    []anthropic.ContentBlock{{Type: "text", Text: text}},
		StopReason: "end_turn",
	}
}

func newTestExtractor(client anthropic.Client) *Extractor {
	e := New(client, Config{Model: "claude-sonnet-4-5-20250929"})
	e.retry = resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	return e
}

func testGrid() *sheet.Grid {
	return &sheet.Grid{
		Header: []string{"IO Number", "Style", "Fabric", "Color", "Qty", "Shipping"},
		Rows:   [][]string{{"PO-1", "ST-1", "Cotton", "Navy", "100", "01/03/2024"}},
	}
}

func TestExtract_Success(t *testing.T) {
	client := &mockClient{responses: []*anthropic.MessageResponse{
		textResponse(`{"items":[{"order_number":"PO-1","style":"ST-1","fabric":"Cotton","color":"Navy","quantity":100,"dates":{"shipping":"2024-03-01"}}]}`),
	}}

	items, err := newTestExtractor(client).Extract(context.Background(), testGrid(), "plan.xlsx")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "PO-1", items[0].OrderNumber)
	assert.Equal(t, "2024-03-01", items[0].Dates.Shipping)

	// The grid travels as CSV in the user message, instructions in system.
	require.Len(t, client.requests, 1)
	req := client.requests[0]
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "IO Number,Style,Fabric,Color,Qty,Shipping")
	require.Len(t, req.System, 1)
	assert.Contains(t, req.System[0].Text, "order_number")
	require.NotNil(t, req.System[0].CacheControl)
}

func TestExtract_RefusalIsValidationError(t *testing.T) {
	client := &mockClient{responses: []*anthropic.MessageResponse{
		{StopReason: "refusal"},
	}}

	_, err := newTestExtractor(client).Extract(context.Background(), testGrid(), "plan.xlsx")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestExtract_TruncatedIsValidationError(t *testing.T) {
	client := &mockClient{responses: []*anthropic.MessageResponse{
		{StopReason: "max_tokens", Content: []anthropic.ContentBlock{{Type: "text", Text: `{"items":[`}}},
	}}

	_, err := newTestExtractor(client).Extract(context.Background(), testGrid(), "plan.xlsx")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestExtract_NonConformantResponse(t *testing.T) {
	client := &mockClient{responses: []*anthropic.MessageResponse{
		textResponse(`{"items":[{"style":"ST-1"}]}`),
	}}

	_, err := newTestExtractor(client).Extract(context.Background(), testGrid(), "plan.xlsx")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestExtract_RetriesTransientErrors(t *testing.T) {
	client := &mockClient{
		errs: []error{resilience.NewTransientError(assert.AnError, 529), nil},
		responses: []*anthropic.MessageResponse{
			nil,
			textResponse(`{"items":[]}`),
		},
	}

	items, err := newTestExtractor(client).Extract(context.Background(), testGrid(), "plan.xlsx")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 2, client.calls)
}

func TestExtract_RetriedAttemptsArePaced(t *testing.T) {
	client := &mockClient{
		errs: []error{resilience.NewTransientError(assert.AnError, 503), nil},
		responses: []*anthropic.MessageResponse{
			nil,
			textResponse(`{"items":[]}`),
		},
	}

	e := newTestExtractor(client)
	start := time.Now()
	// Burst of one: the first attempt is immediate, the retry must wait for
	// the next token.
	e.limiter = rate.NewLimiter(rate.Every(20*time.Millisecond), 1)

	_, err := e.Extract(context.Background(), testGrid(), "plan.xlsx")
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestExtract_DoesNotRetryPermanentErrors(t *testing.T) {
	client := &mockClient{errs: []error{assert.AnError, assert.AnError}}

	_, err := newTestExtractor(client).Extract(context.Background(), testGrid(), "plan.xlsx")
	require.Error(t, err)
	assert.Equal(t, 1, client.calls)
}
