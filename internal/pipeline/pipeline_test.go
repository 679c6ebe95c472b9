package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"stashbot/internal/database"
	"stashbot/internal/events"
	"stashbot/internal/models"
	"stashbot/internal/services/ai"
	"stashbot/internal/validation"
)

type mockClassifier struct {
	classifyFunc func(ctx context.Context, text string) (*ai.ClassificationResult, error)
}

func (m *mockClassifier) Classify(ctx context.Context, text string) (*ai.ClassificationResult, error) {
	return m.classifyFunc(ctx, text)
}

type mockAnalyzer struct {
	analyzeFunc func(ctx context.Context, req ai.AnalysisRequest) ai.AnalysisResult
}

func (m *mockAnalyzer) Analyze(ctx context.Context, req ai.AnalysisRequest) ai.AnalysisResult {
	if m.analyzeFunc != nil {
		return m.analyzeFunc(ctx, req)
	}
	return ai.DefaultAnalysis()
}

type mockRepo struct {
	created []*models.Item
	nextID  int64
	fail    error
}

func (m *mockRepo) Create(ctx context.Context, item *models.Item) error {
	if m.fail != nil {
		return m.fail
	}
	m.nextID++
	item.ID = m.nextID
	m.created = append(m.created, item)
	return nil
}

func (m *mockRepo) GetByOwnerID(ctx context.Context, owner string, id int64) (*models.Item, error) {
	return nil, database.ErrNotFound
}

func (m *mockRepo) ListByOwner(ctx context.Context, owner string, kind *models.Kind, status models.StatusFilter, page, pageSize int) ([]*models.Item, int, error) {
	return nil, 0, nil
}

func (m *mockRepo) ListAllByOwner(ctx context.Context, owner string) ([]*models.Item, error) {
	return nil, nil
}

func (m *mockRepo) ActiveTasks(ctx context.Context, owner string) ([]*models.Item, error) {
	return nil, nil
}

func (m *mockRepo) UpdateTask(ctx context.Context, owner string, id int64, mutate func(*models.Item) error) (*models.Item, error) {
	return nil, database.ErrNotFound
}

func (m *mockRepo) DeleteByIDs(ctx context.Context, owner string, kind models.Kind, ids []int64) (int64, error) {
	return 0, nil
}

func (m *mockRepo) DeleteAllOfKind(ctx context.Context, owner string, kind models.Kind) (int64, error) {
	return 0, nil
}

var _ database.ItemRepositoryInterface = (*mockRepo)(nil)

type mockPublisher struct {
	events []*events.Event
	fail   error
}

func (m *mockPublisher) Publish(ctx context.Context, event *events.Event) error {
	if m.fail != nil {
		return m.fail
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

var _ events.Publisher = (*mockPublisher)(nil)

func taskClassifier(deadline *time.Time) *mockClassifier {
	return &mockClassifier{
		classifyFunc: func(ctx context.Context, text string) (*ai.ClassificationResult, error) {
			return &ai.ClassificationResult{
				Kind:     models.KindTask,
				Title:    "Submit report",
				Details:  "quarterly numbers",
				Deadline: deadline,
				Tags:     []string{"work"},
			}, nil
		},
	}
}

func TestIngestTask(t *testing.T) {
	t.Parallel()

	deadline := time.Now().Add(24 * time.Hour)
	repo := &mockRepo{}
	publisher := &mockPublisher{}
	analyzer := &mockAnalyzer{
		analyzeFunc: func(ctx context.Context, req ai.AnalysisRequest) ai.AnalysisResult {
			if req.Title != "Submit report" {
				t.Errorf("analyzer got title %q", req.Title)
			}
			return ai.AnalysisResult{Importance: 4, Urgency: 5, Reason: "due tomorrow"}
		},
	}

	p := New(taskClassifier(&deadline), analyzer, repo, publisher, zap.NewNop(), time.Second)

	item, err := p.Ingest(context.Background(), "owner-1", "Submit report by tomorrow")
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}

	if item.ID == 0 {
		t.Error("item was not assigned an id")
	}
	if item.Kind != models.KindTask {
		t.Errorf("kind = %q, expected task", item.Kind)
	}
	if item.Text != "Submit report by tomorrow" {
		t.Errorf("raw text not preserved: %q", item.Text)
	}
	if item.Task == nil {
		t.Fatal("task fields missing")
	}
	if item.Task.Status != models.TaskStatusPending {
		t.Errorf("status = %q, expected pending", item.Task.Status)
	}
	if item.Task.Importance != 4 || item.Task.Urgency != 5 {
		t.Errorf("scores = %d/%d, expected 4/5", item.Task.Importance, item.Task.Urgency)
	}
	// urgency-weighted base plus the deadline boost
	expected := 0.4*4 + 0.6*5 + 2.0
	if diff := item.Task.Priority - expected; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("priority = %v, expected %v", item.Task.Priority, expected)
	}
	if len(repo.created) != 1 {
		t.Errorf("expected exactly one persisted item, got %d", len(repo.created))
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != events.EventItemCreated {
		t.Errorf("expected a single item.created event, got %v", publisher.events)
	}
}

func TestIngestClassifierFailureDegradesToNote(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{}
	publisher := &mockPublisher{}
	classifier := &mockClassifier{
		classifyFunc: func(ctx context.Context, text string) (*ai.ClassificationResult, error) {
			return nil, fmt.Errorf("%w: oracle unreachable", ai.ErrClassification)
		},
	}

	p := New(classifier, &mockAnalyzer{}, repo, publisher, zap.NewNop(), time.Second)

	item, err := p.Ingest(context.Background(), "owner-1", "call the dentist")
	if err != nil {
		t.Fatalf("Ingest returned error on classifier failure: %v", err)
	}

	if item.Kind != models.KindNote {
		t.Errorf("kind = %q, expected note fallback", item.Kind)
	}
	if !item.Degraded {
		t.Error("degraded flag not set")
	}
	if item.Text != "call the dentist" {
		t.Errorf("raw text not preserved: %q", item.Text)
	}
	if item.Task != nil {
		t.Error("degraded note carries task fields")
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected the note to be persisted, got %d items", len(repo.created))
	}

	var sawDegraded bool
	for _, e := range publisher.events {
		if e.Type == events.EventClassificationDegraded {
			sawDegraded = true
		}
	}
	if !sawDegraded {
		t.Error("no classification_degraded event published")
	}
}

func TestIngestAnalyzerDegradationStillStoresTask(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{}
	p := New(taskClassifier(nil), &mockAnalyzer{}, repo, nil, zap.NewNop(), time.Second)

	item, err := p.Ingest(context.Background(), "owner-1", "Submit report")
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if item.Task == nil {
		t.Fatal("task fields missing")
	}
	if item.Task.Importance != ai.DefaultImportance || item.Task.Urgency != ai.DefaultUrgency {
		t.Errorf("scores = %d/%d, expected neutral defaults", item.Task.Importance, item.Task.Urgency)
	}
	if item.Task.AnalysisReason != ai.FallbackReason {
		t.Errorf("reason = %q, expected %q", item.Task.AnalysisReason, ai.FallbackReason)
	}
}

func TestIngestRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{}
	p := New(taskClassifier(nil), &mockAnalyzer{}, repo, nil, zap.NewNop(), time.Second)

	tests := []struct {
		name  string
		owner string
		text  string
	}{
		{name: "empty text", owner: "owner-1", text: ""},
		{name: "whitespace only", owner: "owner-1", text: "  \n\t "},
		{name: "missing owner", owner: "", text: "do a thing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := p.Ingest(context.Background(), tt.owner, tt.text)
			if !errors.Is(err, validation.ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}

	if len(repo.created) != 0 {
		t.Errorf("invalid input was persisted: %d items", len(repo.created))
	}
}

func TestIngestPersistFailureSurfaces(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{fail: errors.New("connection reset")}
	p := New(taskClassifier(nil), &mockAnalyzer{}, repo, nil, zap.NewNop(), time.Second)

	if _, err := p.Ingest(context.Background(), "owner-1", "Submit report"); err == nil {
		t.Fatal("Ingest swallowed a storage error")
	}
}

func TestIngestPublishFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	publisher := &mockPublisher{fail: errors.New("broker down")}
	p := New(taskClassifier(nil), &mockAnalyzer{}, &mockRepo{}, publisher, zap.NewNop(), time.Second)

	if _, err := p.Ingest(context.Background(), "owner-1", "Submit report"); err != nil {
		t.Fatalf("publish failure surfaced to caller: %v", err)
	}
}
