package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"stashbot/internal/request"
)

const analysisSystemPrompt = `You analyze user tasks and assign importance and urgency.

Definitions:
- Importance = impact if completed
- Urgency = time sensitivity or deadline pressure

Scores are integers from 1 to 5.

Return JSON ONLY:

{
  "importance": 1,
  "urgency": 1,
  "reason": "explain briefly the scores"
}`

// OpenAIAnalyzer implements Analyzer using OpenAI's API
type OpenAIAnalyzer struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIAnalyzer creates a new OpenAI-backed task analyzer
func NewOpenAIAnalyzer(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *OpenAIAnalyzer {
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

	return &OpenAIAnalyzer{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// Analyze scores a task. Any oracle failure degrades to the neutral
// defaults so the task still gets a priority; nothing here is fatal.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, req AnalysisRequest) AnalysisResult {
	payload := map[string]any{
		"title":   req.Title,
		"details": req.Details,
	}
	if req.Deadline != nil {
		payload["deadline"] = req.Deadline.Format(DeadlineLayout)
	} else {
		payload["deadline"] = nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return DefaultAnalysis()
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(analysisSystemPrompt),
		openai.UserMessage(string(body)),
	}
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(a.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	requestID := request.RequestIDFromContext(ctx)
	if a.logger != nil && a.debugMode {
		a.logger.Debug("llm_api_request",
			zap.String("operation", "analyze_task"),
			zap.String("model", a.model),
			zap.String("prompt_preview", SanitizePrompt(string(body), false)),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := a.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start)
	if err != nil {
		if a.logger != nil {
			a.logger.Warn("analysis_degraded",
				zap.Error(err),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return DefaultAnalysis()
	}
	if len(resp.Choices) == 0 {
		if a.logger != nil {
			a.logger.Warn("analysis_degraded",
				zap.Error(ErrNoChoicesInResponse),
				zap.String("request_id", requestID),
			)
		}
		return DefaultAnalysis()
	}

	content := resp.Choices[0].Message.Content
	if a.logger != nil && a.debugMode {
		a.logger.Debug("llm_api_response",
			zap.String("operation", "analyze_task"),
			zap.String("model", a.model),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	result, err := parseAnalysis(content)
	if err != nil {
		if a.logger != nil {
			a.logger.Warn("analysis_degraded",
				zap.Error(err),
				zap.String("request_id", requestID),
			)
		}
		return DefaultAnalysis()
	}

	return result
}

type analysisPayload struct {
	Importance json.Number `json:"importance"`
	Urgency    json.Number `json:"urgency"`
	Reason     string      `json:"reason"`
}

func parseAnalysis(content string) (AnalysisResult, error) {
	raw := content
	var payload analysisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		extracted, exErr := extractJSONObject(raw)
		if exErr != nil {
			return AnalysisResult{}, err
		}
		if err := json.Unmarshal([]byte(extracted), &payload); err != nil {
			return AnalysisResult{}, err
		}
	}

	reason := payload.Reason
	if reason == "" {
		reason = "No reason provided."
	}

	return AnalysisResult{
		Importance: clampScore(payload.Importance),
		Urgency:    clampScore(payload.Urgency),
		Reason:     reason,
	}, nil
}

// clampScore coerces an oracle score into [1,5]. Unparseable values get
// the neutral midpoint rather than failing the analysis.
func clampScore(value json.Number) int {
	score, err := value.Int64()
	if err != nil {
		if f, ferr := value.Float64(); ferr == nil {
			score = int64(f)
		} else {
			return DefaultImportance
		}
	}
	if score < 1 {
		return 1
	}
	if score > 5 {
		return 5
	}
	return int(score)
}

var _ Analyzer = (*OpenAIAnalyzer)(nil)
