package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"slidesift/internal/stage"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// renderClusterSummary lists each materialized cluster followed by a totals line.
func renderClusterSummary(job *stage.Job) string {
	rows := make([][]string, 0, len(job.Outcomes))
	for _, o := range job.Outcomes {
		rows = append(rows, []string{
			o.ClusterID,
			strconv.Itoa(len(o.Members)),
			filepath.Base(o.Representative),
			strconv.FormatFloat(o.Score, 'f', 2, 64),
		})
	}
	var b strings.Builder
	b.WriteString(renderTable(
		[]string{"Cluster", "Members", "Sharpest", "Sharpness"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight},
	))
	b.WriteByte('\n')
	result := job.Clusters
	fmt.Fprintf(&b, "%d frames: %d clusters (%d frames assigned), %d noise", len(result.Labels), len(result.Groups), result.Assigned(), result.NoiseCount())
	if len(result.Refined) > 0 {
		fmt.Fprintf(&b, ", %d oversized split (%d of the noise dropped while splitting)", len(result.Refined), len(result.RefinementNoise))
	}
	fmt.Fprintf(&b, "\nSlides written to %s", job.SlidesDir)
	return b.String()
}
