package cluster

import (
	"context"

	"golang.org/x/sync/errgroup"

	"slidesift/internal/embedstore"
)

// Noise is the label given to rows that belong to no cluster.
const Noise = -1

// neighbourhoods returns, for every row, the rows within eps (inclusive),
// the row itself included. Rows are fanned out across workers; each worker
// writes only its own slots so the result does not depend on scheduling.
func neighbourhoods(ctx context.Context, vectors [][]float32, eps float64, workers int) ([][]int, error) {
	n := len(vectors)
	out := make([][]int, n)
	if n == 0 {
		return out, nil
	}
	if workers < 1 {
		workers = 1
	}
	epsSq := eps * eps

	chunk := (n + workers - 1) / workers
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < n; start += chunk {
		start := start
		end := min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				var hits []int
				for j := 0; j < n; j++ {
					if embedstore.SquaredL2(vectors[i], vectors[j]) <= epsSq {
						hits = append(hits, j)
					}
				}
				out[i] = hits
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// dbscan labels rows the way scikit-learn's DBSCAN does: rows are visited in
// index order, every unlabelled core row seeds the next label, and clusters
// expand depth-first through core rows. A border row keeps the first label
// that reaches it.
func dbscan(ctx context.Context, vectors [][]float32, eps float64, minPts, workers int) ([]int, error) {
	neighbours, err := neighbourhoods(ctx, vectors, eps, workers)
	if err != nil {
		return nil, err
	}

	n := len(vectors)
	core := make([]bool, n)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
		core[i] = len(neighbours[i]) >= minPts
	}

	next := 0
	var stack []int
	for seed := 0; seed < n; seed++ {
		if labels[seed] != Noise || !core[seed] {
			continue
		}
		i := seed
		for {
			if labels[i] == Noise {
				labels[i] = next
				if core[i] {
					for _, v := range neighbours[i] {
						if labels[v] == Noise {
							stack = append(stack, v)
						}
					}
				}
			}
			if len(stack) == 0 {
				break
			}
			i = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		}
		next++
	}
	return labels, nil
}
