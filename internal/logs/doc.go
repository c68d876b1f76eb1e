// Package logs reads back the JSON run log that the logging package tees to
// <log_dir>/slidesift.log.
//
// Tail returns the last N matching records, or every record after a byte
// offset, and can wait for new lines in follow mode. Filter narrows records to
// one run (correlation id), one stage, or a minimum level. Format renders a
// record as a single console line for `slidesift logs`.
package logs
