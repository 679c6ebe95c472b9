// Package pipeline turns raw free-text into a classified, scored,
// persisted item.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stashbot/internal/database"
	"stashbot/internal/events"
	"stashbot/internal/models"
	"stashbot/internal/priority"
	"stashbot/internal/request"
	"stashbot/internal/services/ai"
	"stashbot/internal/validation"
)

// Pipeline orchestrates classification, analysis, scoring, and storage.
// Oracles are injected so tests can substitute deterministic fakes.
type Pipeline struct {
	classifier    ai.Classifier
	analyzer      ai.Analyzer
	repo          database.ItemRepositoryInterface
	publisher     events.Publisher
	logger        *zap.Logger
	oracleTimeout time.Duration
	now           func() time.Time
}

// New creates an ingestion pipeline
func New(classifier ai.Classifier, analyzer ai.Analyzer, repo database.ItemRepositoryInterface, publisher events.Publisher, logger *zap.Logger, oracleTimeout time.Duration) *Pipeline {
	if oracleTimeout <= 0 {
		oracleTimeout = ai.DefaultTimeout
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Pipeline{
		classifier:    classifier,
		analyzer:      analyzer,
		repo:          repo,
		publisher:     publisher,
		logger:        logger,
		oracleTimeout: oracleTimeout,
		now:           time.Now,
	}
}

// Ingest classifies raw text, analyzes and scores it when it is a task,
// and persists the resulting item in a single write. A classifier
// failure degrades to a note carrying the raw text — the user's input
// is never lost. Nothing is persisted until the oracles have concluded,
// successfully or via fallback.
func (p *Pipeline) Ingest(ctx context.Context, owner, text string) (*models.Item, error) {
	text = validation.SanitizeText(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", validation.ErrInvalid)
	}
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", validation.ErrInvalid)
	}

	oracleCtx, cancel := context.WithTimeout(ctx, p.oracleTimeout)
	defer cancel()

	now := p.now()
	item := &models.Item{
		Owner:     owner,
		Text:      text,
		CreatedAt: now.UTC(),
	}

	classification, err := p.classifier.Classify(oracleCtx, text)
	if err != nil {
		// Best-effort degradation: keep the text as a note and flag it.
		p.logger.Warn("classification_degraded",
			zap.Error(err),
			zap.String("request_id", request.RequestIDFromContext(ctx)),
		)
		item.Kind = models.KindNote
		item.Degraded = true
	} else {
		item.Kind = classification.Kind
		item.Title = classification.Title
		item.Tags = classification.Tags
	}

	if item.Kind == models.KindTask {
		analysis := p.analyzer.Analyze(oracleCtx, ai.AnalysisRequest{
			Title:    classification.Title,
			Details:  classification.Details,
			Deadline: classification.Deadline,
		})
		if analysis.Degraded {
			p.logger.Warn("analysis_degraded",
				zap.String("request_id", request.RequestIDFromContext(ctx)),
			)
		}
		item.Task = &models.TaskFields{
			Importance:       analysis.Importance,
			Urgency:          analysis.Urgency,
			Deadline:         classification.Deadline,
			Priority:         priority.Score(analysis.Importance, analysis.Urgency, classification.Deadline, now),
			Status:           models.TaskStatusPending,
			AnalysisReason:   analysis.Reason,
			EstimatedMinutes: classification.EstimatedMinutes,
		}
	}

	if err := p.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to persist item: %w", err)
	}

	p.logger.Info("item_ingested",
		zap.Int64("item_id", item.ID),
		zap.String("kind", string(item.Kind)),
		zap.Bool("degraded", item.Degraded),
	)

	p.publish(ctx, events.NewEvent(events.EventItemCreated, owner, item.ID, item.Kind))
	if item.Degraded {
		p.publish(ctx, events.NewEvent(events.EventClassificationDegraded, owner, item.ID, item.Kind))
	}

	return item, nil
}

func (p *Pipeline) publish(ctx context.Context, event *events.Event) {
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("event_publish_failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
	}
}
