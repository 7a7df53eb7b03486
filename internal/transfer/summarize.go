package transfer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lorehq/lore/internal/config"
	"github.com/lorehq/lore/internal/types"
)

const (
	defaultSummaryModel = "claude-3-5-haiku-20241022"
	maxRetries          = 3
	initialBackoff      = 1 * time.Second
)

// ErrAPIKeyRequired is returned when an API key is needed but not provided.
var ErrAPIKeyRequired = errors.New("API key required")

// Summarizer rewrites a session into a short essence summary. Compress
// treats failures as non-fatal and keeps the original text.
type Summarizer interface {
	Summarize(ctx context.Context, sess *types.Session) (string, error)
}

// HaikuSummarizer uses the Anthropic API to compress session summaries.
type HaikuSummarizer struct {
	client         anthropic.Client
	model          anthropic.Model
	tmpl           *template.Template
	maxRetries     int
	initialBackoff time.Duration
}

// NewHaikuSummarizer creates a summarizer client. ANTHROPIC_API_KEY takes
// precedence over the explicit key.
func NewHaikuSummarizer(apiKey string) (*HaikuSummarizer, error) {
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or configure summarize.api-key", ErrAPIKeyRequired)
	}
	model := config.GetString("summarize.model")
	if model == "" {
		model = defaultSummaryModel
	}
	tmpl, err := template.New("essence").Parse(essencePromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing essence template: %w", err)
	}
	return &HaikuSummarizer{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:          anthropic.Model(model),
		tmpl:           tmpl,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
	}, nil
}

// Summarize produces a compressed summary for a session.
func (h *HaikuSummarizer) Summarize(ctx context.Context, sess *types.Session) (string, error) {
	var buf strings.Builder
	data := essenceData{
		Summary:       sess.Summary,
		DecisionsMade: strings.Join(sess.DecisionsMade, "\n- "),
		OpenThreads:   strings.Join(sess.OpenThreads, "\n- "),
	}
	if sess.Handoff != nil {
		data.Handoff = sess.Handoff.Message
	}
	if err := h.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return h.callWithRetry(ctx, buf.String())
}

func (h *HaikuSummarizer) callWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	params := anthropic.MessageNewParams{
		Model:     h.model,
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := h.initialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		message, err := h.client.Messages.New(ctx, params)
		if err == nil {
			if len(message.Content) > 0 && message.Content[0].Type == "text" {
				return message.Content[0].Text, nil
			}
			return "", fmt.Errorf("unexpected response format: no text block")
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isRetryable(err) {
			return "", fmt.Errorf("non-retryable error: %w", err)
		}
	}
	return "", fmt.Errorf("failed after %d retries: %w", h.maxRetries+1, lastErr)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

type essenceData struct {
	Summary       string
	DecisionsMade string
	OpenThreads   string
	Handoff       string
}

const essencePromptTemplate = `You are compressing a finished work session for long-term storage. The output MUST be significantly shorter than the input while preserving decisions and unresolved work.

**Session summary:**
{{.Summary}}

{{if .DecisionsMade}}**Decisions made:**
- {{.DecisionsMade}}
{{end}}

{{if .OpenThreads}}**Open threads:**
- {{.OpenThreads}}
{{end}}

{{if .Handoff}}**Handoff note:**
{{.Handoff}}
{{end}}

Reply with 2-3 concise sentences capturing what was done, what was decided, and what remains open. No headers, no bullets.`
