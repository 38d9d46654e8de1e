// Package qdrant implements the remote dense backend on top of a Qdrant
// collection. It owns schema creation, connection lifecycle and score
// normalization; vector data lives entirely in the service, so Save/Load
// persist only the connection configuration.
package qdrant

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"github.com/kenolab/retriever/internal/retrieval"
)

const (
	// DefaultEmbeddingField is the metadata key ingested documents must carry
	// their vector under.
	DefaultEmbeddingField = "embedding"

	defaultPort = 6334

	payloadDocID    = "doc_id"
	payloadText     = "text"
	payloadMetadata = "metadata"
)

// Point IDs are derived deterministically from document IDs so re-ingesting a
// document upserts rather than duplicates it.
var docIDNamespace = uuid.MustParse("8c9d2f70-2a7b-4f04-9f43-6d8a51c7a0be")

// IndexParams configures the HNSW index built over the vector field.
type IndexParams struct {
	MetricType     string `json:"metric_type"`
	M              uint64 `json:"m"`
	EfConstruction uint64 `json:"ef_construction"`
}

// SearchParams configures query-time HNSW behavior.
type SearchParams struct {
	Ef    uint64 `json:"ef"`
	Exact bool   `json:"exact,omitempty"`
}

// Config is the connection configuration. It is the only state Save/Load
// persist — never the vectors themselves.
type Config struct {
	URI            string       `json:"uri"` // host:port of the gRPC endpoint
	User           string       `json:"user,omitempty"`
	Password       string       `json:"password,omitempty"` // used as the API key
	CollectionName string       `json:"collection_name"`
	Dim            int          `json:"dim"`
	IndexParams    IndexParams  `json:"index_params"`
	SearchParams   SearchParams `json:"search_params"`
	Alias          string       `json:"alias,omitempty"`
	UseTLS         bool         `json:"use_tls,omitempty"`
	EmbeddingField string       `json:"embedding_field,omitempty"`

	// OutputFields restricts which payload fields searches return
	// (doc_id, text, metadata). Empty returns the full payload.
	OutputFields []string `json:"output_fields,omitempty"`

	// Recreate drops and rebuilds the collection unconditionally at connect
	// time. Never persisted.
	Recreate bool `json:"-"`
}

func (c *Config) applyDefaults() {
	if c.CollectionName == "" {
		c.CollectionName = "documents"
	}
	if c.Dim <= 0 {
		c.Dim = 768
	}
	if c.IndexParams.MetricType == "" {
		c.IndexParams.MetricType = "COSINE"
	}
	if c.IndexParams.M == 0 {
		c.IndexParams.M = 32
	}
	if c.IndexParams.EfConstruction == 0 {
		c.IndexParams.EfConstruction = 200
	}
	if c.SearchParams.Ef == 0 {
		c.SearchParams.Ef = 128
	}
	if c.EmbeddingField == "" {
		c.EmbeddingField = DefaultEmbeddingField
	}
	if c.Alias == "" {
		c.Alias = "default"
	}
}

func parseMetric(name string) (qdrant.Distance, error) {
	switch strings.ToUpper(name) {
	case "COSINE":
		return qdrant.Distance_Cosine, nil
	case "DOT", "IP":
		return qdrant.Distance_Dot, nil
	case "EUCLID", "L2":
		return qdrant.Distance_Euclid, nil
	case "MANHATTAN":
		return qdrant.Distance_Manhattan, nil
	default:
		return qdrant.Distance_UnknownDistance, fmt.Errorf("unsupported metric type %q", name)
	}
}

// normalizeScore converts the service's raw score so that higher is always
// better. Qdrant reports cosine and dot scores as similarities already;
// distance-like metrics are negated.
func normalizeScore(metric qdrant.Distance, raw float32) float64 {
	switch metric {
	case qdrant.Distance_Euclid, qdrant.Distance_Manhattan:
		return -float64(raw)
	default:
		return float64(raw)
	}
}

// Store is the remote dense backend. Each instance owns its own client
// handle; there is no process-wide connection registry.
type Store struct {
	client *qdrant.Client
	cfg    Config
	metric qdrant.Distance
}

// Connect dials the service, creates the collection if it does not exist, and
// validates the schema of a pre-existing collection against cfg. With
// cfg.Recreate the collection is dropped and rebuilt unconditionally.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	cfg.applyDefaults()

	metric, err := parseMetric(cfg.IndexParams.MetricType)
	if err != nil {
		return nil, err
	}

	host, portStr, err := net.SplitHostPort(cfg.URI)
	if err != nil {
		host = cfg.URI
		portStr = strconv.Itoa(defaultPort)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant uri %q: %w", cfg.URI, err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.Password,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallSendMsgSize(64 * 1024 * 1024), // large ingest batches
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	if _, err := client.HealthCheck(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("qdrant unreachable at %s: %w", cfg.URI, err)
	}

	s := &Store{client: client, cfg: cfg, metric: metric}
	if err := s.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the client connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Collection returns the collection name the store operates on.
func (s *Store) Collection() string {
	return s.cfg.CollectionName
}

func (s *Store) ensureCollection(ctx context.Context) error {
	name := s.cfg.CollectionName

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if exists && s.cfg.Recreate {
		if err := s.client.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
		exists = false
	}

	if exists {
		return s.validateCollection(ctx)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.cfg.Dim),
			Distance: s.metric,
		}),
		HnswConfig: &qdrant.HnswConfigDiff{
			M:           qdrant.PtrOf(s.cfg.IndexParams.M),
			EfConstruct: qdrant.PtrOf(s.cfg.IndexParams.EfConstruction),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// validateCollection fails fast when an existing collection's vector size or
// distance conflicts with the requested configuration.
func (s *Store) validateCollection(ctx context.Context) error {
	info, err := s.client.GetCollectionInfo(ctx, s.cfg.CollectionName)
	if err != nil {
		return fmt.Errorf("failed to describe collection: %w", err)
	}
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return fmt.Errorf("%w: collection %s uses named vectors", retrieval.ErrSchemaMismatch, s.cfg.CollectionName)
	}
	if params.GetSize() != uint64(s.cfg.Dim) {
		return fmt.Errorf("%w: collection %s has dim %d, want %d",
			retrieval.ErrSchemaMismatch, s.cfg.CollectionName, params.GetSize(), s.cfg.Dim)
	}
	if params.GetDistance() != s.metric {
		return fmt.Errorf("%w: collection %s uses metric %s, want %s",
			retrieval.ErrSchemaMismatch, s.cfg.CollectionName, params.GetDistance(), s.metric)
	}
	return nil
}

// buildPoints validates and converts the whole batch before anything is
// written: a single missing or mis-sized embedding fails the batch with no
// partial insert.
func buildPoints(docs []retrieval.Document, embeddingField string, dim int) ([]*qdrant.PointStruct, error) {
	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, doc := range docs {
		raw, ok := doc.Meta[embeddingField]
		if !ok {
			return nil, fmt.Errorf("%w: document %s has no %q key in meta",
				retrieval.ErrMissingEmbedding, doc.ID, embeddingField)
		}
		vector, ok := asFloat32Slice(raw)
		if !ok {
			return nil, fmt.Errorf("%w: document %s key %q is not a numeric vector",
				retrieval.ErrMissingEmbedding, doc.ID, embeddingField)
		}
		if len(vector) != dim {
			return nil, fmt.Errorf("%w: document %s has %d, want %d",
				retrieval.ErrDimensionMismatch, doc.ID, len(vector), dim)
		}

		// The embedding is stored as the vector only, never duplicated into
		// the metadata payload.
		meta := make(map[string]any, len(doc.Meta))
		for k, v := range doc.Meta {
			if k != embeddingField {
				meta[k] = v
			}
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewSHA1(docIDNamespace, []byte(doc.ID)).String()),
			Vectors: qdrant.NewVectors(vector...),
			Payload: map[string]*qdrant.Value{
				payloadDocID:    toValue(doc.ID),
				payloadText:     toValue(doc.Text),
				payloadMetadata: toValue(meta),
			},
		})
	}
	return points, nil
}

// Ingest validates every document's embedding, then upserts the batch with
// wait enabled so a subsequent Search observes the new data.
func (s *Store) Ingest(ctx context.Context, docs []retrieval.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points, err := buildPoints(docs, s.cfg.EmbeddingField, s.cfg.Dim)
	if err != nil {
		return err
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.CollectionName,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// payloadSelector narrows returned payload fields to the requested set, or
// the full payload when none are requested.
func payloadSelector(fields []string) *qdrant.WithPayloadSelector {
	if len(fields) == 0 {
		return qdrant.NewWithPayload(true)
	}
	return qdrant.NewWithPayloadInclude(fields...)
}

// Search runs ANN search with the caller-supplied query embedding and returns
// candidates in the service's ranking, scores normalized so higher is better.
func (s *Store) Search(ctx context.Context, q retrieval.Query, topK int) ([]retrieval.Candidate, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}
	if len(q.Embedding) != s.cfg.Dim {
		return nil, fmt.Errorf("%w: query has %d, want %d",
			retrieval.ErrDimensionMismatch, len(q.Embedding), s.cfg.Dim)
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.CollectionName,
		Query:          qdrant.NewQuery(q.Embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    payloadSelector(s.cfg.OutputFields),
		Params: &qdrant.SearchParams{
			HnswEf: qdrant.PtrOf(s.cfg.SearchParams.Ef),
			Exact:  qdrant.PtrOf(s.cfg.SearchParams.Exact),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]retrieval.Candidate, 0, len(points))
	for _, point := range points {
		c := retrieval.Candidate{
			ID:    point.GetId().GetUuid(),
			Score: normalizeScore(s.metric, point.GetScore()),
		}
		if payload := point.GetPayload(); payload != nil {
			if v, ok := payload[payloadDocID]; ok {
				if id, ok := fromValue(v).(string); ok && id != "" {
					c.ID = id
				}
			}
			if v, ok := payload[payloadText]; ok {
				c.Text, _ = fromValue(v).(string)
			}
			if v, ok := payload[payloadMetadata]; ok {
				c.Meta, _ = fromValue(v).(map[string]any)
			}
		}
		results = append(results, c)
	}
	return results, nil
}

var _ retrieval.Retriever = (*Store)(nil)
