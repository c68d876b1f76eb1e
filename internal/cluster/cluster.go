package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"time"

	"slidesift/internal/embedstore"
	"slidesift/internal/logging"
	"slidesift/internal/services"
)

// Params controls the clustering passes.
type Params struct {
	Eps            float64
	RefineEps      float64
	MinPts         int
	MaxClusterSize int
	// Workers bounds neighbourhood query concurrency. Zero means GOMAXPROCS.
	Workers int
}

// DefaultParams returns the radii and sizes used when nothing is configured.
func DefaultParams() Params {
	return Params{Eps: 0.3, RefineEps: 0.2, MinPts: 2, MaxClusterSize: 50}
}

// Validate reports unusable parameters.
func (p Params) Validate() error {
	switch {
	case p.Eps <= 0:
		return errors.New("eps must be positive")
	case p.RefineEps <= 0:
		return errors.New("refine eps must be positive")
	case p.MinPts < 1:
		return errors.New("min points must be at least 1")
	case p.MaxClusterSize < 1:
		return errors.New("max cluster size must be at least 1")
	case p.Workers < 0:
		return errors.New("workers must not be negative")
	}
	return nil
}

// Group is one emitted cluster.
type Group struct {
	// ID is the primary label ("3") or parent and sub-label ("0_1").
	ID      string
	Label   int
	Sub     int // -1 unless the group came from refinement
	Members []string
	Rows    []int
}

// Refined reports whether the group is a sub-cluster of an oversized parent.
func (g Group) Refined() bool { return g.Sub >= 0 }

// Result is the outcome of one clustering run.
type Result struct {
	// Labels holds the first-pass label for every store row.
	Labels []int
	Groups []Group
	// Noise lists frames the first pass left unassigned.
	Noise []string
	// RefinementNoise lists frames dropped while splitting oversized clusters.
	RefinementNoise []string
	// Refined lists the parent ids that were split.
	Refined []string
}

// Assigned returns the number of frames that ended up in a group.
func (r Result) Assigned() int {
	total := 0
	for _, g := range r.Groups {
		total += len(g.Members)
	}
	return total
}

// NoiseCount returns the frames left out of every group, from either pass.
func (r Result) NoiseCount() int { return len(r.Noise) + len(r.RefinementNoise) }

// Clusterer runs the two-pass clustering over an embedding store.
type Clusterer struct {
	params Params
	logger *slog.Logger
}

// New constructs a Clusterer. A nil logger discards output.
func New(params Params, logger *slog.Logger) *Clusterer {
	if params.Workers == 0 {
		params.Workers = runtime.GOMAXPROCS(0)
	}
	return &Clusterer{params: params, logger: logging.NewComponentLogger(logger, "cluster")}
}

// Cluster labels every row of store and splits oversized clusters.
func (c *Clusterer) Cluster(ctx context.Context, store *embedstore.Store) (Result, error) {
	if err := c.params.Validate(); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "cluster", "validate params", "", err)
	}
	if err := store.Validate(); err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "cluster", "validate store", "", err)
	}
	logger := logging.WithContext(ctx, c.logger)
	started := time.Now()

	if store.Len() == 0 {
		logger.Info("embedding store is empty; nothing to cluster", logging.String(logging.FieldEventType, "cluster_empty"))
		return Result{Labels: []int{}}, nil
	}

	normalized := make([][]float32, store.Len())
	for i, vec := range store.Vectors {
		normalized[i] = embedstore.Normalize(vec)
	}

	labels, err := dbscan(ctx, normalized, c.params.Eps, c.params.MinPts, c.params.Workers)
	if err != nil {
		return Result{}, err
	}

	result := Result{Labels: labels}
	for _, primary := range groupRows(labels) {
		if primary.label == Noise {
			for _, row := range primary.rows {
				result.Noise = append(result.Noise, store.Paths[row])
			}
			continue
		}
		parentID := strconv.Itoa(primary.label)
		if len(primary.rows) <= c.params.MaxClusterSize {
			result.Groups = append(result.Groups, newGroup(store, parentID, primary.label, -1, primary.rows))
			continue
		}

		attrs := append(logging.DecisionAttrs("cluster_refinement", "split",
			fmt.Sprintf("%d members exceed max_cluster_size %d", len(primary.rows), c.params.MaxClusterSize)),
			logging.String("parent_id", parentID),
			logging.Int("member_count", len(primary.rows)),
			logging.Float64("refine_eps", c.params.RefineEps),
		)
		logger.Info("re-clustering oversized cluster", logging.Args(attrs...)...)
		subset := make([][]float32, len(primary.rows))
		for i, row := range primary.rows {
			subset[i] = normalized[row]
		}
		subLabels, err := dbscan(ctx, subset, c.params.RefineEps, c.params.MinPts, c.params.Workers)
		if err != nil {
			return Result{}, err
		}
		result.Refined = append(result.Refined, parentID)

		dropped := 0
		for _, sub := range groupRows(subLabels) {
			rows := make([]int, len(sub.rows))
			for i, local := range sub.rows {
				rows[i] = primary.rows[local]
			}
			if sub.label == Noise {
				for _, row := range rows {
					result.RefinementNoise = append(result.RefinementNoise, store.Paths[row])
				}
				dropped += len(rows)
				continue
			}
			id := fmt.Sprintf("%s_%d", parentID, sub.label)
			result.Groups = append(result.Groups, newGroup(store, id, primary.label, sub.label, rows))
		}
		if dropped > 0 {
			logging.WarnWithContext(logger, "refinement dropped frames", "cluster_refinement_noise",
				logging.String("parent_id", parentID),
				logging.Int("refinement_noise_count", dropped),
				logging.String(logging.FieldImpact, "dropped frames are not materialized"),
				logging.String(logging.FieldErrorHint, "raise clustering.refine_eps to keep more frames"),
			)
		}
	}

	logger.Info("clustering complete",
		logging.String(logging.FieldEventType, "cluster_complete"),
		logging.Int("embedding_count", store.Len()),
		logging.Int("cluster_count", len(result.Groups)),
		logging.Int("noise_count", len(result.Noise)),
		logging.Int("refined_count", len(result.Refined)),
		logging.Duration("stage_duration", time.Since(started)),
	)
	return result, nil
}

func newGroup(store *embedstore.Store, id string, label, sub int, rows []int) Group {
	members := make([]string, len(rows))
	for i, row := range rows {
		members[i] = store.Paths[row]
	}
	return Group{ID: id, Label: label, Sub: sub, Members: members, Rows: rows}
}

type labelRows struct {
	label int
	rows  []int
}

// groupRows buckets row indices by label, ordered by label with noise first.
// Rows keep their index order within a bucket.
func groupRows(labels []int) []labelRows {
	maxLabel := Noise
	for _, l := range labels {
		maxLabel = max(maxLabel, l)
	}
	buckets := make([]labelRows, maxLabel+2)
	for i := range buckets {
		buckets[i].label = i - 1
	}
	for row, l := range labels {
		buckets[l+1].rows = append(buckets[l+1].rows, row)
	}
	out := buckets[:0]
	for _, b := range buckets {
		if len(b.rows) > 0 {
			out = append(out, b)
		}
	}
	return out
}
