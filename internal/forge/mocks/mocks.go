// Package mocks provides testify-based test doubles for the loop's
// collaborator interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/forgeloop/forgeloop/internal/forge/models"
)

// MockProducer implements producer.Producer.
type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) CreateStructure(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockProducer) Apply(ctx context.Context, action models.Action) models.ProducerResult {
	args := m.Called(ctx, action)
	return args.Get(0).(models.ProducerResult)
}

func (m *MockProducer) InstallDependencies(ctx context.Context) models.ProducerResult {
	args := m.Called(ctx)
	return args.Get(0).(models.ProducerResult)
}

func (m *MockProducer) Build(ctx context.Context) models.ProducerResult {
	args := m.Called(ctx)
	return args.Get(0).(models.ProducerResult)
}

// MockEvaluator implements loop.Evaluator.
type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) Evaluate(ctx context.Context, root, goal string, carried []string) (models.Evaluation, error) {
	args := m.Called(ctx, root, goal, carried)
	return args.Get(0).(models.Evaluation), args.Error(1)
}

// MockPlanner implements loop.Planner.
type MockPlanner struct {
	mock.Mock
}

func (m *MockPlanner) Plan(eval models.Evaluation, goal string) []models.Action {
	args := m.Called(eval, goal)
	if actions, ok := args.Get(0).([]models.Action); ok {
		return actions
	}
	return nil
}

// MockStore implements history.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Append(rec models.IterationRecord) error {
	args := m.Called(rec)
	return args.Error(0)
}

func (m *MockStore) All() []models.IterationRecord {
	args := m.Called()
	if recs, ok := args.Get(0).([]models.IterationRecord); ok {
		return recs
	}
	return nil
}

func (m *MockStore) Len() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockStore) Flush(summary models.RunSummary) error {
	args := m.Called(summary)
	return args.Error(0)
}
