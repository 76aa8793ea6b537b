package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/RainyAlgorithms/visionbuddy/models"
	"github.com/google/uuid"
	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"
)

const embeddingModel = "text-embedding-ada-002"

// RegistryClient is the spatial registry: Redis holds the nodes themselves
// (one hash per building, created on first save), Pinecone holds embeddings
// of node descriptions for semantic search. Pinecone is optional; without it
// search degrades to a substring scan over the building's nodes.
type RegistryClient struct {
	redisClient *redis.Client

	pineconeClient *pinecone.Client
	indexHost      string

	mu    sync.Mutex
	conns map[string]*pinecone.IndexConnection
}

func NewRegistryClient(redisClient *redis.Client) *RegistryClient {
	r := &RegistryClient{
		redisClient: redisClient,
		conns:       map[string]*pinecone.IndexConnection{},
	}

	indexName := os.Getenv("PINECONE_INDEX")
	apiKey := os.Getenv("PINECONE_API_KEY")
	if indexName == "" || apiKey == "" {
		zap.L().Warn("PINECONE_INDEX or PINECONE_API_KEY not set, registry search will use substring matching only")
		return r
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: apiKey})
	if err != nil {
		zap.L().Warn("Failed to create Pinecone client, registry search will use substring matching only", zap.Error(err))
		return r
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	idx, err := client.DescribeIndex(ctx, indexName)
	if err != nil {
		zap.L().Warn("Failed to describe Pinecone index, registry search will use substring matching only",
			zap.String("index", indexName), zap.Error(err))
		return r
	}

	r.pineconeClient = client
	r.indexHost = idx.Host
	return r
}

// Available reports whether the node store is reachable at all; the UI shows
// a non-fatal status indicator when it isn't.
func (r *RegistryClient) Available() bool {
	return r.redisClient != nil
}

func nodesKey(buildingID string) string {
	return "spatial:" + buildingID + ":nodes"
}

func (r *RegistryClient) indexConnection(buildingID string) *pinecone.IndexConnection {
	if r.pineconeClient == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.conns[buildingID]; ok {
		return conn
	}

	namespace := fmt.Sprintf("building-%s", buildingID)
	conn, err := r.pineconeClient.Index(pinecone.NewIndexConnParams{Host: r.indexHost, Namespace: namespace})
	if err != nil {
		zap.L().Warn("Failed to create Pinecone index connection", zap.String("namespace", namespace), zap.Error(err))
		return nil
	}
	r.conns[buildingID] = conn
	return conn
}

// Search returns the building's nodes matching queryText, best match first.
// An empty result is not an error.
func (r *RegistryClient) Search(ctx context.Context, queryText, buildingID string) ([]models.SpatialNode, error) {
	if r.redisClient == nil {
		return nil, fmt.Errorf("spatial registry is not configured (check REDIS_HOST and REDIS_PASSWORD)")
	}

	if index := r.indexConnection(buildingID); index != nil {
		nodes, err := r.semanticSearch(ctx, index, queryText, buildingID)
		if err != nil {
			zap.L().Warn("Semantic registry search failed, falling back to substring scan", zap.Error(err))
		} else if len(nodes) > 0 {
			return nodes, nil
		}
	}

	return r.substringSearch(ctx, queryText, buildingID)
}

func (r *RegistryClient) semanticSearch(ctx context.Context, index *pinecone.IndexConnection, queryText, buildingID string) ([]models.SpatialNode, error) {
	embedding, err := VectorizePrompt(embeddingModel, ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("error vectorizing query: %w", err)
	}

	queryRequest := &pinecone.QueryByVectorValuesRequest{
		Vector:          embedding,
		TopK:            uint32(5),
		IncludeValues:   false,
		IncludeMetadata: true,
	}

	queryResponse, err := index.QueryByVectorValues(ctx, queryRequest)
	if err != nil {
		return nil, fmt.Errorf("error querying Pinecone index: %w", err)
	}

	var nodes []models.SpatialNode
	for _, match := range queryResponse.Matches {
		if match.Vector == nil || match.Vector.Metadata == nil {
			continue
		}
		value, ok := match.Vector.Metadata.Fields["node_id"]
		if !ok {
			continue
		}
		nodeID := value.GetStringValue()
		if nodeID == "" {
			continue
		}

		raw, err := r.redisClient.HGet(ctx, nodesKey(buildingID), nodeID).Result()
		if err != nil {
			continue
		}
		var node models.SpatialNode
		if err := json.Unmarshal([]byte(raw), &node); err != nil {
			continue
		}
		nodes = append(nodes, node)
	}

	return nodes, nil
}

func (r *RegistryClient) substringSearch(ctx context.Context, queryText, buildingID string) ([]models.SpatialNode, error) {
	raw, err := r.redisClient.HGetAll(ctx, nodesKey(buildingID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read spatial nodes for building %q: %w", buildingID, err)
	}

	tokens := queryTokens(queryText)
	var nodes []models.SpatialNode
	for _, encoded := range raw {
		var node models.SpatialNode
		if err := json.Unmarshal([]byte(encoded), &node); err != nil {
			zap.L().Warn("Skipping undecodable spatial node", zap.Error(err))
			continue
		}
		if descriptionMatches(node.Description, queryText, tokens) {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// queryTokens keeps the words long enough to carry meaning; "where is the"
// should never match every node in the building.
func queryTokens(queryText string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(queryText)) {
		word = strings.Trim(word, ".,?!")
		if len(word) >= 4 {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

func descriptionMatches(description, queryText string, tokens []string) bool {
	desc := strings.ToLower(description)
	if desc == "" {
		return false
	}
	if strings.Contains(strings.ToLower(queryText), desc) {
		return true
	}
	for _, token := range tokens {
		if strings.Contains(desc, token) {
			return true
		}
	}
	return false
}

// FetchVerified returns only the building's golden path nodes, the audited
// subset a deployment pre-seeds out of band.
func (r *RegistryClient) FetchVerified(ctx context.Context, buildingID string) ([]models.SpatialNode, error) {
	if r.redisClient == nil {
		return nil, fmt.Errorf("spatial registry is not configured (check REDIS_HOST and REDIS_PASSWORD)")
	}

	raw, err := r.redisClient.HGetAll(ctx, nodesKey(buildingID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read spatial nodes for building %q: %w", buildingID, err)
	}

	var nodes []models.SpatialNode
	for _, encoded := range raw {
		var node models.SpatialNode
		if err := json.Unmarshal([]byte(encoded), &node); err != nil {
			continue
		}
		if node.IsGoldenPath {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// Save persists a new unaudited node and returns its id. The building's hash
// is created implicitly on the first write, so a new building needs no
// provisioning. Failures carry configuration hints because a lost pin is
// lost user intent, not a degraded read.
func (r *RegistryClient) Save(ctx context.Context, node models.SpatialNode) (string, error) {
	if r.redisClient == nil {
		return "", fmt.Errorf("spatial registry is not configured: set REDIS_HOST (and REDIS_PASSWORD if your instance requires auth)")
	}
	if node.BuildingID == "" {
		return "", fmt.Errorf("spatial node is missing a building id")
	}
	if node.Description == "" {
		return "", fmt.Errorf("spatial node is missing a description")
	}

	node.ID = uuid.New().String()
	node.IsGoldenPath = false
	node.CreatedAt = time.Now()

	encoded, err := json.Marshal(node)
	if err != nil {
		return "", fmt.Errorf("failed to encode spatial node: %w", err)
	}

	if err := r.redisClient.HSet(ctx, nodesKey(node.BuildingID), node.ID, encoded).Err(); err != nil {
		return "", fmt.Errorf("failed to save spatial node (is Redis reachable at REDIS_HOST, and is REDIS_PASSWORD correct?): %w", err)
	}
	if err := r.redisClient.SAdd(ctx, "spatial:buildings", node.BuildingID).Err(); err != nil {
		zap.L().Warn("Failed to index building id", zap.String("building_id", node.BuildingID), zap.Error(err))
	}

	// Best effort: the node is already durable, search just gets better
	// when the embedding lands.
	if index := r.indexConnection(node.BuildingID); index != nil {
		go r.upsertNodeEmbedding(node, index)
	}

	return node.ID, nil
}

func (r *RegistryClient) upsertNodeEmbedding(node models.SpatialNode, index *pinecone.IndexConnection) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	embedding, err := VectorizePrompt(embeddingModel, ctx, node.Description)
	if err != nil {
		zap.L().Warn("Failed to embed spatial node description", zap.String("node_id", node.ID), zap.Error(err))
		return
	}

	metadata, err := structpb.NewStruct(map[string]interface{}{
		"node_id":     node.ID,
		"building_id": node.BuildingID,
		"text":        node.Description,
		"timestamp":   node.CreatedAt.Unix(),
	})
	if err != nil {
		zap.L().Warn("Failed to build node metadata", zap.String("node_id", node.ID), zap.Error(err))
		return
	}

	_, err = index.UpsertVectors(ctx, []*pinecone.Vector{{
		Id:       node.ID,
		Values:   embedding,
		Metadata: metadata,
	}})
	if err != nil {
		zap.L().Warn("Failed to upsert node embedding", zap.String("node_id", node.ID), zap.Error(err))
		return
	}

	zap.L().Debug("Spatial node embedding stored", zap.String("node_id", node.ID))
}
