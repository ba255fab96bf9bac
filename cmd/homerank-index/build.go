package main

import (
	"time"

	"github.com/spf13/cobra"
)

var ensureSchema bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the lexical and semantic indexes for the default catalog",
	Long: `Reads the configured catalog, builds both index artifacts in parallel and
writes them to the configured store (directory or PostgreSQL).`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&ensureSchema, "ensure-schema", false, "create the index tables when the store is postgres")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	if ensureSchema && a.Repo != nil {
		if err := a.Repo.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	start := time.Now()
	if err := a.Default.Build(ctx); err != nil {
		return err
	}
	lex, err := a.Default.Lexical(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Indexed %d listings (%d terms, %s) in %s\n",
		a.Catalog.Len(), lex.VocabularySize(), a.Embedder.ModelName(), time.Since(start).Round(time.Millisecond))
	return nil
}
