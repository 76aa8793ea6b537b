package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/RainyAlgorithms/visionbuddy/models"
	"go.uber.org/zap"
)

type fakeSearcher struct {
	nodes   []models.SpatialNode
	err     error
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, queryText, buildingID string) ([]models.SpatialNode, error) {
	f.queries = append(f.queries, queryText)
	return f.nodes, f.err
}

func TestResolveTargetRegistryMatch(t *testing.T) {
	searcher := &fakeSearcher{nodes: []models.SpatialNode{
		{ID: "n1", Description: "main elevator lobby", IsGoldenPath: true},
		{ID: "n2", Description: "service elevator"},
	}}
	h := NewNavigationHandler(zap.NewNop(), searcher)

	state := h.ResolveTarget(context.Background(), "take me to the elevator", "b1")

	if !state.SourceRegistryMatch {
		t.Fatalf("expected a registry match")
	}
	if state.TargetDescription != "main elevator lobby" {
		t.Fatalf("expected the best match's description, got %q", state.TargetDescription)
	}
}

func TestResolveTargetNoMatchFallsBackToSignHunting(t *testing.T) {
	searcher := &fakeSearcher{}
	h := NewNavigationHandler(zap.NewNop(), searcher)

	state := h.ResolveTarget(context.Background(), "where is the restroom", "b1")

	if state.SourceRegistryMatch {
		t.Fatalf("expected no registry match")
	}
	if state.TargetDescription != "where is the restroom" {
		t.Fatalf("expected raw candidate as target, got %q", state.TargetDescription)
	}
}

func TestResolveTargetRegistryErrorDoesNotPropagate(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("registry unreachable")}
	h := NewNavigationHandler(zap.NewNop(), searcher)

	state := h.ResolveTarget(context.Background(), "find the exit", "b1")

	if state.SourceRegistryMatch {
		t.Fatalf("expected no registry match on error")
	}
	if state.TargetDescription != "find the exit" {
		t.Fatalf("expected raw candidate as target, got %q", state.TargetDescription)
	}
}
