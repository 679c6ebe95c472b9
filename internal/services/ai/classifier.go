package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"stashbot/internal/models"
	"stashbot/internal/request"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout bounds every oracle call
	DefaultTimeout = 30 * time.Second
	// DeadlineLayout is the calendar-date format the oracle must use
	DeadlineLayout = "2006-01-02"
)

const classificationSchema = `{
  "type": "task | idea | note",
  "task": {"title": "", "details": "", "deadline": "YYYY-MM-DD or null", "tags": [], "estimated_minutes": null},
  "idea": {"title": "", "details": "", "tags": []},
  "note": {"title": "", "content": "", "tags": []}
}`

// OpenAIClassifier implements Classifier using OpenAI's API
type OpenAIClassifier struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
	now       func() time.Time
}

// NewOpenAIClassifier creates a new OpenAI-backed classifier gateway
func NewOpenAIClassifier(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *OpenAIClassifier {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIClassifier{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
		now:       time.Now,
	}
}

// Classify sends raw text to the Classification Oracle and validates
// the structured label it returns.
func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (*ClassificationResult, error) {
	now := c.now()
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(buildClassifySystemPrompt(now)),
		openai.UserMessage(text),
	}
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	requestID := request.RequestIDFromContext(ctx)
	if c.logger != nil && c.debugMode {
		c.logger.Debug("llm_api_request",
			zap.String("operation", "classify"),
			zap.String("model", c.model),
			zap.String("text_preview", SanitizePrompt(text, false)),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if c.logger != nil && c.debugMode {
			c.logger.Debug("llm_api_error",
				zap.String("operation", "classify"),
				zap.String("model", c.model),
				zap.Error(err),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return nil, fmt.Errorf("%w: %v", ErrClassification, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrClassification, ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content
	if c.logger != nil && c.debugMode {
		c.logger.Debug("llm_api_response",
			zap.String("operation", "classify"),
			zap.String("model", c.model),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	result, droppedDeadline, err := parseClassification(content, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassification, err)
	}
	if droppedDeadline && c.logger != nil {
		c.logger.Warn("classification_past_deadline_dropped",
			zap.String("request_id", requestID),
		)
	}

	return result, nil
}

func buildClassifySystemPrompt(now time.Time) string {
	today := now.Format(DeadlineLayout)
	return fmt.Sprintf(`You are an expert productivity assistant. Classify a single message as a task, idea, or note.

Today is %s. Use this date when interpreting relative dates like "tomorrow", "Sunday", "next week".

Rules:
- TASK = the user intends to do something (an action, plan, or deadline).
- IDEA = a concept, inspiration, project, or improvement that is not yet actionable.
- NOTE = information, observations, or reminders without action intent.
- Output STRICT JSON only (no markdown, prose, or code fences).
- The JSON MUST follow this exact schema and field names:
%s
- Fill only the object that matches "type". The other two objects must be null.
- Use ISO format for deadlines (YYYY-MM-DD) or null when unknown.
- Always provide a concise title for tasks and ideas; default tags to [] when you have none.`, today, classificationSchema)
}

type classificationPayload struct {
	Type string `json:"type"`
	Task *struct {
		Title            string   `json:"title"`
		Details          string   `json:"details"`
		Deadline         *string  `json:"deadline"`
		Tags             []string `json:"tags"`
		EstimatedMinutes *int     `json:"estimated_minutes"`
	} `json:"task"`
	Idea *struct {
		Title   string   `json:"title"`
		Details string   `json:"details"`
		Tags    []string `json:"tags"`
	} `json:"idea"`
	Note *struct {
		Title   string   `json:"title"`
		Content string   `json:"content"`
		Tags    []string `json:"tags"`
	} `json:"note"`
}

// parseClassification validates untrusted oracle output. Unrecognized
// kinds are errors; a deadline in the past is dropped (soft correction),
// reported through the second return value.
func parseClassification(content string, now time.Time) (*ClassificationResult, bool, error) {
	raw := content
	var payload classificationPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		extracted, exErr := extractJSONObject(raw)
		if exErr != nil {
			return nil, false, fmt.Errorf("failed to parse classification response: %w", err)
		}
		if err := json.Unmarshal([]byte(extracted), &payload); err != nil {
			return nil, false, fmt.Errorf("failed to parse classification response: %w", err)
		}
	}

	kind := models.Kind(payload.Type)
	if !models.ValidKind(kind) {
		return nil, false, fmt.Errorf("unrecognized classification type %q", payload.Type)
	}

	result := &ClassificationResult{Kind: kind}
	dropped := false

	switch kind {
	case models.KindTask:
		if payload.Task == nil {
			return nil, false, fmt.Errorf("classification type is task but task section is null")
		}
		result.Title = payload.Task.Title
		result.Details = payload.Task.Details
		result.Tags = payload.Task.Tags
		result.EstimatedMinutes = payload.Task.EstimatedMinutes
		if payload.Task.Deadline != nil && *payload.Task.Deadline != "" {
			deadline, err := time.Parse(DeadlineLayout, *payload.Task.Deadline)
			if err != nil {
				return nil, false, fmt.Errorf("unparseable deadline %q: %w", *payload.Task.Deadline, err)
			}
			if beforeToday(deadline, now) {
				dropped = true
			} else {
				result.Deadline = &deadline
			}
		}
	case models.KindIdea:
		if payload.Idea == nil {
			return nil, false, fmt.Errorf("classification type is idea but idea section is null")
		}
		result.Title = payload.Idea.Title
		result.Details = payload.Idea.Details
		result.Tags = payload.Idea.Tags
	case models.KindNote:
		if payload.Note == nil {
			return nil, false, fmt.Errorf("classification type is note but note section is null")
		}
		result.Title = payload.Note.Title
		result.Details = payload.Note.Content
		result.Tags = payload.Note.Tags
	}

	return result, dropped, nil
}

// beforeToday compares calendar dates, ignoring time of day
func beforeToday(deadline, now time.Time) bool {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, deadline.Location())
	return deadline.Before(today)
}

var _ Classifier = (*OpenAIClassifier)(nil)
