// Package worker implements the three pipeline stage workers (spec
// §4.3-4.5) and the concurrency-pool/graceful-shutdown scaffolding they
// share (spec §5).
package worker

import (
	"go.uber.org/zap"

	"github.com/clipforge/engine/internal/objectstore"
	"github.com/clipforge/engine/internal/queue"
	"github.com/clipforge/engine/internal/store"
)

// Deps are the process-wide singleton clients every stage worker shares
// (spec §5: "Object-store, queue-broker, and job-store clients are
// process-wide singletons with explicit init/shutdown").
type Deps struct {
	Broker  *queue.Broker
	Jobs    *store.JobRepository
	Videos  *store.VideoRepository
	Segments *store.SegmentRepository
	Clips   *store.ClipRepository
	Objects objectstore.Store
	Buckets objectstore.Buckets
	Logger  *zap.Logger
}

// NewDeps wires the four repositories over db and bundles them with the
// other process-wide clients.
func NewDeps(broker *queue.Broker, db *store.DB, objects objectstore.Store, buckets objectstore.Buckets, logger *zap.Logger) *Deps {
	return &Deps{
		Broker:   broker,
		Jobs:     store.NewJobRepository(db),
		Videos:   store.NewVideoRepository(db),
		Segments: store.NewSegmentRepository(db),
		Clips:    store.NewClipRepository(db),
		Objects:  objects,
		Buckets:  buckets,
		Logger:   logger,
	}
}
