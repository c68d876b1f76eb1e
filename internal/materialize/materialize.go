// Package materialize turns clusters into directories of frames plus one
// "<name>_sharpest<ext>" representative per cluster.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"slidesift/internal/cluster"
	"slidesift/internal/fileutil"
	"slidesift/internal/logging"
	"slidesift/internal/services"
	"slidesift/internal/sharpness"
)

// RepresentativeSuffix is appended to the cluster name for the representative copy.
const RepresentativeSuffix = "_sharpest"

// Outcome describes one materialized cluster.
type Outcome struct {
	ClusterID string
	// Name is the base name, without extension, of the first member in sorted order.
	Name               string
	Dir                string
	Members            []string
	Scores             []float64
	Representative     string
	RepresentativePath string
	Score              float64
}

// Materializer writes clusters under a single output root.
type Materializer struct {
	root    string
	scorer  sharpness.Scorer
	workers int
	logger  *slog.Logger
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithWorkers bounds concurrent sharpness scoring within a cluster.
func WithWorkers(n int) Option {
	return func(m *Materializer) {
		if n > 0 {
			m.workers = n
		}
	}
}

// New constructs a Materializer. A nil scorer uses the Laplacian variance and a
// nil logger discards output.
func New(outputRoot string, scorer sharpness.Scorer, logger *slog.Logger, opts ...Option) *Materializer {
	if scorer == nil {
		scorer = sharpness.Laplacian
	}
	m := &Materializer{
		root:    outputRoot,
		scorer:  scorer,
		workers: runtime.GOMAXPROCS(0),
		logger:  logging.NewComponentLogger(logger, "materialize"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root returns the output root.
func (m *Materializer) Root() string { return m.root }

// Materialize copies every member of group into its cluster directory and
// writes the representative. It can be repeated safely over the same root.
func (m *Materializer) Materialize(ctx context.Context, group cluster.Group) (Outcome, error) {
	if len(group.Members) == 0 {
		return Outcome{}, services.Wrap(services.ErrValidation, "materialize", "cluster "+group.ID, "cluster has no members", nil)
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	ctx = services.WithClusterID(ctx, group.ID)
	logger := logging.WithContext(ctx, m.logger)

	members := slices.Clone(group.Members)
	slices.Sort(members)
	name := strings.TrimSuffix(filepath.Base(members[0]), filepath.Ext(members[0]))
	dir := filepath.Join(m.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Outcome{}, fmt.Errorf("create cluster directory %s: %w", dir, err)
	}

	for _, member := range members {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		if _, err := fileutil.CopyIntoDir(member, dir); err != nil {
			if !errors.Is(err, fileutil.ErrSameFile) {
				return Outcome{}, fmt.Errorf("cluster %s: %w", group.ID, err)
			}
			logger.Debug("member already in cluster directory", logging.String("member_path", member))
		}
	}

	scores, err := m.scoreAll(ctx, logger, members)
	if err != nil {
		return Outcome{}, err
	}

	best, bestScore := "", -1.0
	for i, member := range members {
		if scores[i] > bestScore {
			best, bestScore = member, scores[i]
		}
	}

	repPath := filepath.Join(m.root, name+RepresentativeSuffix+filepath.Ext(best))
	if err := fileutil.CopyFilePreserve(best, repPath); err != nil && !errors.Is(err, fileutil.ErrSameFile) {
		return Outcome{}, fmt.Errorf("cluster %s: representative: %w", group.ID, err)
	}

	outcome := Outcome{
		ClusterID:          group.ID,
		Name:               name,
		Dir:                dir,
		Members:            members,
		Scores:             scores,
		Representative:     best,
		RepresentativePath: repPath,
		Score:              bestScore,
	}
	logger.Info("cluster materialized",
		logging.String(logging.FieldEventType, "cluster_materialized"),
		logging.Int("member_count", len(members)),
		logging.String("sharpest", filepath.Base(best)),
		logging.Float64("sharpness", bestScore),
		logging.String("cluster_dir", dir),
	)
	return outcome, nil
}

// MaterializeAll materializes groups in order and stops at the first failure.
func (m *Materializer) MaterializeAll(ctx context.Context, groups []cluster.Group) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(groups))
	for _, group := range groups {
		outcome, err := m.Materialize(ctx, group)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (m *Materializer) scoreAll(ctx context.Context, logger *slog.Logger, members []string) ([]float64, error) {
	scores := make([]float64, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, member := range members {
		i, member := i, member
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores[i] = m.score(logger, member)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

func (m *Materializer) score(logger *slog.Logger, path string) float64 {
	fs, ok := m.scorer.(sharpness.FileScorer)
	if !ok {
		return m.scorer.Score(path)
	}
	score, err := fs.ScoreFile(path)
	if err != nil {
		if errors.Is(err, services.ErrDecode) {
			logging.WarnWithContext(logger, "frame could not be decoded", "sharpness_decode_failed",
				logging.String("frame", filepath.Base(path)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "frame scored 0 and is unlikely to be chosen as representative"),
				logging.String(logging.FieldErrorHint, "check the frame file for corruption"),
			)
		}
		return 0
	}
	return score
}
