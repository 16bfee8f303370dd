// Package qdrant stores chunks as points in a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/efebarandurmaz/sherpa/internal/chunk"
	"github.com/efebarandurmaz/sherpa/internal/embed"
	"github.com/efebarandurmaz/sherpa/internal/store"
)

const (
	// DefaultURL is Qdrant's local gRPC endpoint.
	DefaultURL = "http://localhost:6334"
	// VectorName is the named vector chunks are stored under.
	VectorName = "code"

	defaultPort = "6334"
	batchSize   = 100
)

// PointsClient is the subset of pb.PointsClient used here.
type PointsClient interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
}

// CollectionsClient is the subset of pb.CollectionsClient used here.
type CollectionsClient interface {
	CollectionExists(ctx context.Context, in *pb.CollectionExistsRequest, opts ...grpc.CallOption) (*pb.CollectionExistsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Store implements store.Store using Qdrant.
type Store struct {
	conn        *grpc.ClientConn
	points      PointsClient
	collections CollectionsClient
	collection  string
	ready       bool
}

// New connects to the Qdrant gRPC endpoint at rawURL, e.g.
// "http://localhost:6334". The connection is lazy; the first StoreChunks
// call creates the collection if needed.
func New(rawURL, collection string) (*Store, error) {
	addr, err := Address(rawURL)
	if err != nil {
		return nil, err
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	s := NewWithClients(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), collection)
	s.conn = conn
	return s, nil
}

// NewWithClients builds a Store over existing clients.
func NewWithClients(points PointsClient, collections CollectionsClient, collection string) *Store {
	if collection == "" {
		collection = store.DefaultCollection
	}
	return &Store{points: points, collections: collections, collection: collection}
}

// Address turns a URL or host[:port] into a gRPC dial target.
func Address(raw string) (string, error) {
	if raw == "" {
		raw = DefaultURL
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse qdrant address %q: %w", raw, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("qdrant address %q has no host", raw)
	}
	port := u.Port()
	if port == "" {
		port = defaultPort
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

// Collection returns the collection name.
func (s *Store) Collection() string { return s.collection }

func (s *Store) StoreChunks(ctx context.Context, chunks []chunk.Chunk, embeddings []embed.Embedding) error {
	if err := store.CheckBatch(chunks, embeddings); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(embeddings[0])); err != nil {
		return err
	}

	wait := true
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		points := make([]*pb.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, point(chunks[i], embeddings[i]))
		}
		if _, err := s.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: s.collection,
			Wait:           &wait,
			Points:         points,
		}); err != nil {
			return fmt.Errorf("qdrant upsert %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (s *Store) ensureCollection(ctx context.Context, dim int) error {
	if s.ready {
		return nil
	}
	resp, err := s.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: s.collection})
	if err != nil {
		return fmt.Errorf("qdrant collection exists: %w", err)
	}
	if !resp.GetResult().GetExists() {
		_, err := s.collections.Create(ctx, &pb.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_ParamsMap{
				ParamsMap: &pb.VectorParamsMap{Map: map[string]*pb.VectorParams{
					VectorName: {Size: uint64(dim), Distance: pb.Distance_Cosine},
				}},
			}},
		})
		if err != nil {
			return fmt.Errorf("qdrant create collection %s: %w", s.collection, err)
		}
	}
	s.ready = true
	return nil
}

func point(c chunk.Chunk, e embed.Embedding) *pb.PointStruct {
	return &pb.PointStruct{
		Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: store.PointID(c)}},
		Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vectors{Vectors: &pb.NamedVectors{
			Vectors: map[string]*pb.Vector{VectorName: {Data: e}},
		}}},
		Payload: map[string]*pb.Value{
			"content":    str(c.Content),
			"path":       str(c.Path),
			"language":   str(string(c.Language)),
			"node_type":  str(c.Kind),
			"name":       str(c.Name),
			"start_line": integer(c.StartLine),
			"end_line":   integer(c.EndLine),
			"start_byte": integer(c.StartByte),
			"end_byte":   integer(c.EndByte),
		},
	}
}

func str(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func integer(n int) *pb.Value {
	return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(n)}}
}

func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

var _ store.Store = (*Store)(nil)
