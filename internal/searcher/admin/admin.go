// Package admin exposes the searcher's internal operator surface over
// pkg/grpc, the platform's lightweight JSON-over-TCP RPC layer. It is
// separate from the public HTTP search API: operators use it to read
// store statistics or push a single record outside the normal Kafka
// tail, without going through the gateway or touching the query cache.
package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MarkitMedical/FuzzySearch/internal/kernel/assign"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
	"github.com/MarkitMedical/FuzzySearch/internal/source"
	"github.com/MarkitMedical/FuzzySearch/pkg/grpc"
	"github.com/MarkitMedical/FuzzySearch/pkg/proto"
)

// Register wires the admin RPC methods onto s, reading from and
// writing to store directly.
func Register(s *grpc.Server, store *source.Store, opts kopts.Options) {
	s.Register("Admin.Stats", statsHandler(store))
	s.Register("Admin.Reindex", reindexHandler(store, opts))
}

func statsHandler(store *source.Store) grpc.HandlerFunc {
	return func(ctx context.Context, req json.RawMessage) (any, error) {
		snap := store.Snapshot()
		return &proto.StatsResponse{
			RecordCount:               int64(snap.RecordCount),
			AvgFieldTokens:            snap.AvgFieldTokens,
			AssignmentSolverFallbacks: assign.FallbackCount(),
		}, nil
	}
}

func reindexHandler(store *source.Store, opts kopts.Options) grpc.HandlerFunc {
	return func(ctx context.Context, req json.RawMessage) (any, error) {
		var in proto.ReindexRequest
		if err := json.Unmarshal(req, &in); err != nil {
			return nil, fmt.Errorf("decoding reindex request: %w", err)
		}
		if in.Record.ID == "" {
			return nil, fmt.Errorf("record id is required")
		}

		store.Put(source.Record{
			ID:     in.Record.ID,
			Fields: in.Record.Fields,
		}, opts)

		return &proto.ReindexResponse{
			Success: true,
			Message: fmt.Sprintf("record %s reindexed", in.Record.ID),
		}, nil
	}
}
