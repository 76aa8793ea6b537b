package handlers

import (
	"context"

	"github.com/RainyAlgorithms/visionbuddy/models"
	"go.uber.org/zap"
)

type nodeSearcher interface {
	Search(ctx context.Context, queryText, buildingID string) ([]models.SpatialNode, error)
}

// NavigationHandler resolves a spoken destination against the spatial
// registry. A registry miss is not a failure: navigation degrades to sign
// hunting, where subsequent scene analyses are asked to locate the target
// by reading physical signage.
type NavigationHandler struct {
	logger   *zap.Logger
	registry nodeSearcher
}

func NewNavigationHandler(logger *zap.Logger, registry nodeSearcher) *NavigationHandler {
	return &NavigationHandler{
		logger:   logger,
		registry: registry,
	}
}

// ResolveTarget queries the registry for candidate and returns the resulting
// navigation state. It never fails: a registry error or an empty result both
// yield an unmatched state carrying the raw candidate text.
func (h *NavigationHandler) ResolveTarget(ctx context.Context, candidate, buildingID string) models.NavigationState {
	nodes, err := h.registry.Search(ctx, candidate, buildingID)
	if err != nil {
		h.logger.Warn("Registry search failed, falling back to sign hunting",
			zap.String("candidate", candidate), zap.Error(err))
		return models.NavigationState{TargetDescription: candidate, SourceRegistryMatch: false}
	}
	if len(nodes) == 0 {
		h.logger.Info("No registry match, sign hunting", zap.String("candidate", candidate))
		return models.NavigationState{TargetDescription: candidate, SourceRegistryMatch: false}
	}

	h.logger.Info("Registry match found",
		zap.String("candidate", candidate),
		zap.String("node_id", nodes[0].ID),
		zap.Bool("golden_path", nodes[0].IsGoldenPath))
	return models.NavigationState{TargetDescription: nodes[0].Description, SourceRegistryMatch: true}
}
