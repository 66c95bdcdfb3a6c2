package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-cdr3/internal/blast"
	"github.com/inodb/vibe-cdr3/internal/cdr3"
	"github.com/inodb/vibe-cdr3/internal/classify"
	"github.com/inodb/vibe-cdr3/internal/duckdb"
	"github.com/inodb/vibe-cdr3/internal/germline"
	"github.com/inodb/vibe-cdr3/internal/pipeline"
)

func newFinalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finalize [project-root]",
		Short: "Classify reads from their germline alignments",
		Long: `Finalize germline assignments for a project.

Reads batches from <project-root>/work/vgene and their V, J, and optional D and
constant region BLAST tables, then writes sequence channels to
output/sequences, per-read and per-gene tables to output/tables and the run
summary to output/logs/finalize_blast.log.

Loci: 0/heavy, 1/kappa, 2/lambda, 3/kappa-lambda, 4/custom (requires --vlib
and --jlib).`,
		Example: `  vibe-cdr3 finalize /data/donor45 --germline-dir /data/germline
  vibe-cdr3 finalize /data/donor45 --locus kappa --workers 8
  vibe-cdr3 finalize /data/donor45 --locus custom --vlib mouseV.fa --jlib mouseJ.fa --db cdr3.duckdb`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				viper.Set("project.root", args[0])
			}
			return runFinalize(cmd)
		},
	}

	f := cmd.Flags()
	f.String("locus", "heavy", "Locus: heavy, kappa, lambda, kappa-lambda, custom, or 0-4")
	f.String("vlib", "", "V gene library FASTA (custom locus)")
	f.String("jlib", "", "J gene library FASTA (custom locus)")
	f.String("germline-dir", "", "Directory holding the built-in germline libraries")
	f.String("name", "", "Project name used in file names (default: base name of the project root)")
	f.String("outfmt", blast.DefaultFormat, "BLAST tabular output fields of the alignment tables")
	f.String("j-motif", "", "J motif regular expression (default depends on locus)")
	f.Int("workers", 1, "Number of classification workers (0 = all CPUs)")

	for key, flag := range map[string]string{
		"locus":            "locus",
		"vlib":             "vlib",
		"jlib":             "jlib",
		"germline.dir":     "germline-dir",
		"project.name":     "name",
		"blast.outfmt":     "outfmt",
		"junction.j_motif": "j-motif",
		"workers":          "workers",
	} {
		viper.BindPFlag(key, f.Lookup(flag))
	}

	return cmd
}

func runFinalize(cmd *cobra.Command) error {
	logger, err := newLogger(viper.GetBool("verbose"))
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	root := viper.GetString("project.root")
	if root == "" {
		return fmt.Errorf("no project root given")
	}

	locus, err := germline.ParseLocus(viper.GetString("locus"))
	if err != nil {
		return err
	}
	format, err := blast.ParseFormat(viper.GetString("blast.outfmt"))
	if err != nil {
		return fmt.Errorf("parsing BLAST format: %w", err)
	}
	motif, err := cdr3.JMotif(locus, viper.GetString("junction.j_motif"))
	if err != nil {
		return err
	}

	libs, err := germline.Load(locus, viper.GetString("germline.dir"), viper.GetString("vlib"), viper.GetString("jlib"))
	if err != nil {
		return err
	}
	logger.Info("loaded germline libraries",
		zap.Stringer("locus", locus),
		zap.String("v", libs.V.Path()),
		zap.Int("v_genes", libs.V.Len()),
		zap.String("j", libs.J.Path()),
		zap.Int("j_genes", libs.J.Len()))

	classifier := classify.NewClassifier(libs, cdr3.NewLocator(motif))
	classifier.SetLogger(logger)

	workers := viper.GetInt("workers")
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	runner := pipeline.NewRunner(pipeline.Config{
		Layout:  pipeline.NewLayout(root, viper.GetString("project.name")),
		Format:  format,
		Locus:   locus,
		Workers: workers,
	}, classifier)
	runner.SetLogger(logger)

	if dbPath := viper.GetString("db"); dbPath != "" {
		store, err := duckdb.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		runner.SetStore(store)
	}

	res, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	logger.Info("finalize done", zap.String("run", res.RunID), zap.Int("batches", res.Batches))
	return res.Summary.Write(cmd.OutOrStdout())
}
