package materialize

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"slidesift/internal/cluster"
)

// ManifestFileName is written at the output root after a clustering run.
const ManifestFileName = "manifest.json"

// Manifest records what a clustering run produced so dropped frames can be audited.
type Manifest struct {
	RunID           string            `json:"run_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	Store           string            `json:"store"`
	Params          ManifestParams    `json:"params"`
	FrameCount      int               `json:"frame_count"`
	Clusters        []ManifestCluster `json:"clusters"`
	Noise           []string          `json:"noise"`
	RefinementNoise []string          `json:"refinement_noise"`
	Refined         []string          `json:"refined"`
}

// ManifestParams echoes the clustering parameters.
type ManifestParams struct {
	Eps            float64 `json:"eps"`
	RefineEps      float64 `json:"refine_eps"`
	MinPts         int     `json:"min_samples"`
	MaxClusterSize int     `json:"max_cluster_size"`
}

// ManifestCluster summarizes one materialized cluster.
type ManifestCluster struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	MemberCount    int     `json:"member_count"`
	Representative string  `json:"representative"`
	Sharpness      float64 `json:"sharpness"`
}

// NewManifest assembles a manifest from a clustering result and its outcomes.
func NewManifest(runID, store string, params cluster.Params, frameCount int, result cluster.Result, outcomes []Outcome) Manifest {
	manifest := Manifest{
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
		Store:     store,
		Params: ManifestParams{
			Eps:            params.Eps,
			RefineEps:      params.RefineEps,
			MinPts:         params.MinPts,
			MaxClusterSize: params.MaxClusterSize,
		},
		FrameCount:      frameCount,
		Clusters:        make([]ManifestCluster, 0, len(outcomes)),
		Noise:           nonNil(result.Noise),
		RefinementNoise: nonNil(result.RefinementNoise),
		Refined:         nonNil(result.Refined),
	}
	for _, o := range outcomes {
		manifest.Clusters = append(manifest.Clusters, ManifestCluster{
			ID:             o.ClusterID,
			Name:           o.Name,
			MemberCount:    len(o.Members),
			Representative: filepath.Base(o.RepresentativePath),
			Sharpness:      o.Score,
		})
	}
	return manifest
}

// WriteManifest writes manifest.json under root.
func WriteManifest(root string, manifest Manifest) (string, error) {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(root, ManifestFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
