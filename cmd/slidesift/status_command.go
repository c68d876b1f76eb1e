package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"slidesift/internal/config"
	"slidesift/internal/language"
	"slidesift/internal/preflight"
	"slidesift/internal/stage"
	"slidesift/internal/workflow"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report external tools, directories, and stage readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, cfg, err := ctx.pipeline()
			if err != nil {
				return err
			}
			sections := []statusSection{
				dependencySection(cmd.Context(), cfg),
				environmentSection(cmd.Context(), cfg),
				stageSection(cmd.Context(), cfg, pipeline),
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderStatusReport(sections, shouldColorize(out)))
			return nil
		},
	}
}

func dependencySection(ctx context.Context, cfg *config.Config) statusSection {
	section := statusSection{title: "Dependencies"}
	for _, dep := range preflight.CheckSystemDeps(cfg) {
		switch {
		case dep.Available:
			section.add(dep.Name, statusOK, dep.Path)
		case dep.Optional:
			section.add(dep.Name, statusWarn, dependencyDetail(dep.Detail, dep.Hint))
		default:
			section.add(dep.Name, statusError, dependencyDetail(dep.Detail, dep.Hint))
		}
	}
	for _, v := range preflight.ProbeVersions(ctx, cfg) {
		if v.Err == nil {
			section.add(v.Name+" version", statusInfo, v.Version)
		}
	}
	return section
}

func environmentSection(ctx context.Context, cfg *config.Config) statusSection {
	section := statusSection{title: "Environment"}
	for _, r := range preflight.RunAll(ctx, cfg) {
		if r.Passed {
			section.add(r.Name, statusOK, r.Detail)
		} else {
			section.add(r.Name, statusError, r.Detail)
		}
	}
	section.add("Embedding store", statusInfo, cfg.Embedding.Store)
	section.add("OCR languages", statusInfo, ocrLanguageNames(cfg.OCR.Language))
	if cfg.Transcription.Enabled {
		section.add("Transcription language", statusInfo, language.DisplayName(cfg.Transcription.Language))
	}
	return section
}

func stageSection(ctx context.Context, cfg *config.Config, pipeline *workflow.Pipeline) statusSection {
	section := statusSection{title: "Stages"}
	for _, h := range pipeline.HealthChecks(ctx) {
		if h.Ready {
			section.add(h.Name, statusOK, "ready")
		} else {
			section.add(h.Name, statusError, h.Detail)
		}
	}
	if !cfg.Transcription.Enabled {
		section.add(stage.Transcription, statusWarn, "disabled")
	}
	return section
}

func ocrLanguageNames(spec string) string {
	var names []string
	for _, code := range strings.Split(spec, "+") {
		if code = strings.TrimSpace(code); code != "" {
			names = append(names, language.DisplayName(code))
		}
	}
	return strings.Join(names, ", ")
}

func dependencyDetail(detail, hint string) string {
	detail = strings.TrimSpace(detail)
	if hint = strings.TrimSpace(hint); hint != "" {
		if detail == "" {
			return hint
		}
		return detail + " (" + hint + ")"
	}
	return detail
}
