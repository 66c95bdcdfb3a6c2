package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-cdr3/internal/blast"
	"github.com/inodb/vibe-cdr3/internal/classify"
	"github.com/inodb/vibe-cdr3/internal/duckdb"
)

func newSummaryCmd() *cobra.Command {
	var (
		runID   string
		project string
		top     int
		list    bool
		readID  string
		remove  bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show recorded finalize runs",
		Long:  "Show run summaries, status counts and the most frequent CDR3s recorded with finalize --db.",
		Example: `  vibe-cdr3 summary --db cdr3.duckdb --list
  vibe-cdr3 summary --db cdr3.duckdb --project donor45 --top 20
  vibe-cdr3 summary --db cdr3.duckdb --run 7c1e...
  vibe-cdr3 summary --db cdr3.duckdb --project donor45 --read 001
  vibe-cdr3 summary --db cdr3.duckdb --run 7c1e... --delete`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := viper.GetString("db")
			if dbPath == "" {
				return fmt.Errorf("no database given (use --db or set db in config)")
			}
			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			w := cmd.OutOrStdout()
			switch {
			case list:
				return listRuns(w, store)
			case remove:
				return deleteRun(w, store, runID)
			}
			run, err := selectRun(store, runID, project)
			if err != nil {
				return err
			}
			if readID != "" {
				return showRead(w, store, run, readID)
			}
			return showRun(w, store, run, top)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run id (default: latest run of --project)")
	cmd.Flags().StringVar(&project, "project", "", "Project name")
	cmd.Flags().IntVar(&top, "top", 10, "Number of most frequent CDR3s to show")
	cmd.Flags().BoolVar(&list, "list", false, "List all runs")
	cmd.Flags().StringVar(&readID, "read", "", "Show the stored classification of one read")
	cmd.Flags().BoolVar(&remove, "delete", false, "Delete the run given by --run and its reads")
	cmd.MarkFlagsMutuallyExclusive("list", "delete", "read")

	return cmd
}

func listRuns(w io.Writer, store *duckdb.Store) error {
	runs, err := store.Runs()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintln(w, "run_id\tproject\tlocus\tstarted\ttotal\tgood")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ID, r.Project, r.Locus, r.Started.Format(time.RFC3339), r.Total, r.Good)
	}
	return nil
}

// selectRun picks the run by id, else the latest run of project, else the
// latest run overall.
func selectRun(store *duckdb.Store, runID, project string) (*duckdb.Run, error) {
	var (
		run *duckdb.Run
		err error
	)
	switch {
	case runID != "":
		run, err = store.LookupRun(runID)
	case project != "":
		run, err = store.LatestRun(project)
	default:
		var runs []*duckdb.Run
		if runs, err = store.Runs(); err == nil && len(runs) > 0 {
			run = runs[0]
		}
	}
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("no matching run found")
	}
	return run, nil
}

func deleteRun(w io.Writer, store *duckdb.Store, runID string) error {
	if runID == "" {
		return fmt.Errorf("--delete requires --run")
	}
	run, err := store.LookupRun(runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}
	if err := store.DeleteRun(runID); err != nil {
		return err
	}
	fmt.Fprintf(w, "Deleted run %s (%s, %d reads)\n", run.ID, run.Project, run.Total)
	return nil
}

func showRead(w io.Writer, store *duckdb.Store, run *duckdb.Run, readID string) error {
	rec, err := store.LookupRead(run.ID, blast.NormalizeID(readID))
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("read %s not stored for run %s (noV reads are not stored)", readID, run.ID)
	}
	fmt.Fprintf(w, "Read %s (run %s)\nStatus: %s\nLength: %d\nV: %s\nD: %s\nJ: %s\nConstant: %s\n"+
		"In-del: %t\nStop: %t\nV divergence: %3.1f%%\nCDR3 nt: %s\nCDR3 aa: %s\n",
		rec.ReadID, run.ID, rec.Status, rec.TrimLen, rec.VGenes, rec.DGenes, rec.JGenes, rec.Constant,
		rec.InDel, rec.Stop, rec.VDivergence, orNA(rec.CDR3Nuc), orNA(rec.CDR3AA))
	return nil
}

func orNA(s string) string {
	if s == "" {
		return classify.NotApplicable
	}
	return s
}

func showRun(w io.Writer, store *duckdb.Store, run *duckdb.Run, top int) error {
	fmt.Fprintf(w, "Run %s\nProject: %s\nLocus: %s\nStarted: %s\n",
		run.ID, run.Project, run.Locus, run.Started.Format(time.RFC3339))
	if run.Source.Path != "" && !run.Source.Matches() {
		fmt.Fprintf(w, "Warning: %s changed since this run\n", run.Source.Path)
	}
	fmt.Fprintf(w, "\nTotal raw reads: %d\nCorrect Length: %d\nV assigned: %d\nJ assigned: %d\n"+
		"CDR3 assigned: %d\nIn-frame junction/no indels: %d\nContinuous ORF with no stop codons: %d\n",
		run.RawReads, run.Total, run.VAssigned, run.JAssigned, run.CDR3Assigned, run.InFrame, run.Good)

	counts, err := store.StatusCounts(run.ID)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\nstatus\treads")
	for _, st := range classify.Statuses {
		if st == classify.NoV {
			// noV reads are not stored
			continue
		}
		fmt.Fprintf(w, "%s\t%d\n", st, counts[st])
	}

	if top <= 0 {
		return nil
	}
	clones, err := store.TopClonotypes(run.ID, top)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\ncdr3_aa\treads")
	for _, c := range clones {
		fmt.Fprintf(w, "%s\t%d\n", c.CDR3AA, c.Count)
	}
	return nil
}
