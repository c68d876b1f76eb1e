package stage

import (
	"slidesift/internal/cluster"
	"slidesift/internal/embedstore"
	"slidesift/internal/materialize"
)

// Job carries the filesystem locations one run reads and writes, plus the
// results each stage records for the ones after it.
type Job struct {
	RunID string
	Video string
	// RunDir holds every artifact of the run.
	RunDir         string
	FramesDir      string
	Store          embedstore.Location
	SlidesDir      string
	PDFPath        string
	TranscriptPath string

	Frames       int
	Embeddings   int
	Clusters     cluster.Result
	Outcomes     []materialize.Outcome
	ManifestPath string
	Pages        int
	Language     string
}
