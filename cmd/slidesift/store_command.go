package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"slidesift/internal/embedstore"
	"slidesift/internal/services"
)

func newStoreCommand(ctx *commandContext) *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Embedding store utilities",
	}
	storeCmd.AddCommand(newStoreConvertCommand(ctx))
	return storeCmd
}

func newStoreConvertCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <src> <dst>",
		Short: "Copy embeddings between faiss, sqlite, and postgres stores",
		Long: "Copy every embedding from src to dst. A directory is a faiss store, a .db\n" +
			"file is sqlite, and a postgres:// DSN (optionally with #collection) is pgvector.",
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			src, err := resolveStore(cfg, args[0], embedstore.FormatFaiss)
			if err != nil {
				return err
			}
			dst, err := resolveStore(cfg, args[1], embedstore.FormatFaiss)
			if err != nil {
				return err
			}
			if src == dst {
				return services.Wrap(services.ErrValidation, "store", "convert", "source and destination are the same store", nil)
			}

			store, err := embedstore.Load(cmd.Context(), src)
			if err != nil {
				return services.Wrap(services.ErrNotFound, "store", "load", fmt.Sprintf("read %s", src), err)
			}
			if err := embedstore.Save(cmd.Context(), dst, store); err != nil {
				return services.Wrap(services.ErrTransient, "store", "save", fmt.Sprintf("write %s", dst), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %d embeddings (dim %d) from %s to %s\n", store.Len(), store.Dim(), src, dst)
			return nil
		},
	}
}
