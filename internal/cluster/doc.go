// Package cluster groups frame embeddings that show the same slide.
//
// Vectors are L2-normalised and clustered with DBSCAN. Any cluster larger than
// MaxClusterSize is clustered again with the tighter RefineEps; its sub-clusters
// are reported as "<parent>_<sub>" and frames that the second pass leaves as
// noise are dropped. Refinement is applied once, so a sub-cluster may still be
// larger than MaxClusterSize.
package cluster
