package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"slidesift/internal/embedstore"
	"slidesift/internal/stage"
	"slidesift/internal/workflow"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <video> [frames-dir]",
		Short: "Extract scene-change frames from a video",
		Long: "Extract scene-change frames as slide_NNNN.png. Without frames-dir the frames\n" +
			"go to <work_dir>/<video stem>/frames.",
		Args: argsBetween(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, cfg, err := ctx.pipeline()
			if err != nil {
				return err
			}
			video, err := expandArg("video", args[0])
			if err != nil {
				return err
			}
			job, err := workflow.Layout(cfg, video)
			if err != nil {
				return err
			}
			if len(args) > 1 {
				if job.FramesDir, err = expandArg("frames directory", args[1]); err != nil {
					return err
				}
			}
			if err := pipeline.RunStage(cmd.Context(), stage.Extraction, &job); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d frames to %s\n", job.Frames, job.FramesDir)
			return nil
		},
	}
}

func newEmbedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "embed <frames-dir> [store]",
		Short: "Generate embeddings for extracted frames",
		Long: "Generate one embedding per frame. The store is a directory (faiss), a .db\n" +
			"file (sqlite), or a postgres:// DSN; it defaults to an embeddings directory\n" +
			"beside frames-dir, or the configured DSN when the store backend is postgres.",
		Args: argsBetween(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, cfg, err := ctx.pipeline()
			if err != nil {
				return err
			}
			framesDir, err := expandArg("frames directory", args[0])
			if err != nil {
				return err
			}
			raw := defaultStoreArg(cfg, framesDir)
			if len(args) > 1 {
				raw = args[1]
			}
			store, err := resolveStore(cfg, raw, embedstore.Format(cfg.Embedding.Store))
			if err != nil {
				return err
			}
			job := stage.Job{
				RunDir:    filepath.Dir(framesDir),
				FramesDir: framesDir,
				Store:     store,
			}
			if err := pipeline.RunStage(cmd.Context(), stage.Embedding, &job); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d embeddings to %s\n", job.Embeddings, job.Store)
			return nil
		},
	}
}

func newClusterCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cluster <embedding-store> <output-dir>",
		Short: "Group near-duplicate frames and pick the sharpest of each group",
		Long: "Cluster the frames recorded in an embedding store. Each cluster is copied into\n" +
			"output-dir/<first member>/ and its sharpest frame into\n" +
			"output-dir/<first member>_sharpest.png. Frames labelled noise are not copied.",
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, cfg, err := ctx.pipeline(workflow.WithCleanSlides(false))
			if err != nil {
				return err
			}
			store, err := resolveStore(cfg, args[0], embedstore.FormatFaiss)
			if err != nil {
				return err
			}
			outDir, err := expandArg("output directory", args[1])
			if err != nil {
				return err
			}
			job := stage.Job{Store: store, SlidesDir: outDir}
			if err := pipeline.RunStage(cmd.Context(), stage.Clustering, &job); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderClusterSummary(&job))
			return nil
		},
	}
}

func newOCRCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ocr <slides-dir> <pdf>",
		Short: "Combine representative slides into a searchable PDF",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, _, err := ctx.pipeline()
			if err != nil {
				return err
			}
			slidesDir, err := expandArg("slides directory", args[0])
			if err != nil {
				return err
			}
			pdfPath, err := expandArg("pdf", args[1])
			if err != nil {
				return err
			}
			job := stage.Job{SlidesDir: slidesDir, PDFPath: pdfPath}
			if err := pipeline.RunStage(cmd.Context(), stage.OCR, &job); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d pages to %s\n", job.Pages, job.PDFPath)
			return nil
		},
	}
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <video> <transcript>",
		Short: "Transcribe a video's audio track to plain text",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, _, err := ctx.pipeline()
			if err != nil {
				return err
			}
			video, err := expandArg("video", args[0])
			if err != nil {
				return err
			}
			transcript, err := expandArg("transcript", args[1])
			if err != nil {
				return err
			}
			job := stage.Job{Video: video, TranscriptPath: transcript}
			if err := pipeline.RunStage(cmd.Context(), stage.Transcription, &job); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote transcript to %s\n", job.TranscriptPath)
			if job.Language != "" {
				fmt.Fprintf(out, "Detected language: %s\n", job.Language)
			}
			return nil
		},
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <video>",
		Short: "Run every stage for a video under the work directory",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, _, err := ctx.pipeline()
			if err != nil {
				return err
			}
			video, err := expandArg("video", args[0])
			if err != nil {
				return err
			}
			job, err := pipeline.Run(cmd.Context(), video)
			if err != nil {
				return err
			}
			rows := [][]string{
				{"Run ID", job.RunID},
				{"Frames", strconv.Itoa(job.Frames)},
				{"Clusters", strconv.Itoa(len(job.Clusters.Groups))},
				{"Noise", strconv.Itoa(job.Clusters.NoiseCount())},
				{"Slides", job.SlidesDir},
				{"PDF", fmt.Sprintf("%s (%d pages)", job.PDFPath, job.Pages)},
			}
			if slices.Contains(pipeline.Stages(), stage.Transcription) {
				rows = append(rows, []string{"Transcript", job.TranscriptPath})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Output", "Value"}, rows, nil))
			return nil
		},
	}
}
