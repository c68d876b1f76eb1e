// Package preflight provides readiness checks for the external tools and
// filesystem paths that slidesift depends on.
//
// These checks run in two contexts:
//   - The pipeline checks Requirements and RunAll before the first stage so a
//     missing tool fails the run immediately instead of after extraction.
//   - The CLI "slidesift status" command uses CheckSystemDeps, RunAll, and
//     ProbeVersions to display environment health.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
