// Package pipeline drives a finalize run over a project directory: it
// reconciles the per-batch alignment tables, classifies every read and writes
// the sequence channels, statistics tables and run summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/vibe-cdr3/internal/blast"
	"github.com/inodb/vibe-cdr3/internal/classify"
	"github.com/inodb/vibe-cdr3/internal/duckdb"
	"github.com/inodb/vibe-cdr3/internal/fasta"
	"github.com/inodb/vibe-cdr3/internal/germline"
	"github.com/inodb/vibe-cdr3/internal/output"
)

var (
	// ErrDesync is returned when a read is missing from the raw statistics
	// table, so the two can no longer be merged in lock step.
	ErrDesync = errors.New("raw statistics out of sync with reads")
	// ErrMissingTable is returned when a read batch has no V or J table.
	ErrMissingTable = errors.New("missing alignment table")
	// ErrNoBatches is returned when the project has no read batches.
	ErrNoBatches = errors.New("no read batches")
)

// Config configures a Runner.
type Config struct {
	Layout Layout
	Format blast.Format
	Locus  germline.Locus
	// Workers is the number of classification workers. Values below 1 mean 1.
	Workers int
}

// Result summarizes a finished run.
type Result struct {
	RunID   string
	Batches int
	Summary *output.Summary

	JCounts blast.GeneCounts
	CCounts blast.GeneCounts
	DCounts blast.GeneCounts

	CSearched bool
	DSearched bool
}

// Runner runs the finalize stage over a project.
type Runner struct {
	cfg        Config
	classifier *classify.Classifier
	store      *duckdb.Store
	logger     *zap.Logger
}

// NewRunner creates a runner.
func NewRunner(cfg Config, c *classify.Classifier) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Runner{
		cfg:        cfg,
		classifier: c,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for progress messages.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
}

// SetStore makes the runner record classifications and the run summary in s.
func (r *Runner) SetStore(s *duckdb.Store) {
	r.store = s
}

// run holds the state of one Run call. It is only touched by the ordered
// consumer, so accumulators need no locking.
type run struct {
	*Runner
	id      string
	raw     *RawReader
	stats   *output.StatsWriter
	chans   *output.Channels
	summary *output.Summary
	stored  []*classify.Classification
}

// Run processes every read batch of the project.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	l := r.cfg.Layout
	started := time.Now()

	if !fileExists(l.ReadsPath(1)) {
		return nil, fmt.Errorf("%w: %s", ErrNoBatches, l.ReadsPath(1))
	}
	if err := l.EnsureOutputDirs(); err != nil {
		return nil, err
	}

	raw, err := NewRawReader(l.RawStatsPath())
	if err != nil {
		return nil, err
	}
	defer raw.Close()

	res := &Result{
		RunID:     duckdb.NewRunID(),
		JCounts:   blast.GeneCounts{},
		CCounts:   blast.GeneCounts{},
		DCounts:   blast.GeneCounts{},
		CSearched: fileExists(l.CTablePath(1)),
		DSearched: fileExists(l.DTablePath(1)),
	}

	tables := newTopHitTables()
	defer tables.close()
	jw, err := tables.create(l.TopHitPath(SegmentJ))
	if err != nil {
		return nil, err
	}
	var cw, dw *blast.TopHitWriter
	if res.CSearched {
		if cw, err = tables.create(l.TopHitPath(SegmentC)); err != nil {
			return nil, err
		}
	}
	if res.DSearched {
		if dw, err = tables.create(l.TopHitPath(SegmentD)); err != nil {
			return nil, err
		}
	}

	statsFile, err := os.Create(l.StatsPath())
	if err != nil {
		return nil, fmt.Errorf("create statistics table: %w", err)
	}
	defer statsFile.Close()

	chans, err := output.CreateChannels(l.NucleotideDir(), l.AminoAcidDir(), l.Name)
	if err != nil {
		return nil, err
	}
	defer chans.Close()

	st := &run{
		Runner:  r,
		id:      res.RunID,
		raw:     raw,
		stats:   output.NewStatsWriter(statsFile, nil),
		chans:   chans,
		summary: output.NewSummary(),
	}
	res.Summary = st.summary
	if err := st.stats.WriteHeader(); err != nil {
		return nil, err
	}

	for n := 1; fileExists(l.ReadsPath(n)); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		hits, err := r.reconcileBatch(n, res, jw, cw, dw)
		if err != nil {
			return nil, err
		}
		before := st.summary.Total()
		if err := st.processBatch(ctx, l.ReadsPath(n), hits); err != nil {
			return nil, fmt.Errorf("batch %d: %w", n, err)
		}
		res.Batches = n
		if st.summary.Total() == before {
			r.logger.Warn("empty read batch", zap.String("path", l.ReadsPath(n)))
		}

		r.logger.Info("batch done",
			zap.Int("batch", n),
			zap.Int("total", st.summary.Total()),
			zap.Int("found", st.summary.Found()),
			zap.Int("good", st.summary.Good()))
	}

	// Raw rows after the last read are reads removed upstream.
	if err := st.drainRaw(); err != nil {
		return nil, err
	}

	if err := st.stats.Flush(); err != nil {
		return nil, fmt.Errorf("flush statistics table: %w", err)
	}
	if err := tables.flush(); err != nil {
		return nil, err
	}
	if err := chans.Flush(); err != nil {
		return nil, fmt.Errorf("flush sequence channels: %w", err)
	}

	if err := r.writeGeneStats(res, st.summary.Found()); err != nil {
		return nil, err
	}
	if err := writeSummary(l.SummaryPath(), st.summary); err != nil {
		return nil, err
	}
	if err := st.recordRun(started); err != nil {
		return nil, err
	}

	return res, nil
}

// batchHits holds the reconciled hits of one batch.
type batchHits struct {
	v, j, c, d *blast.TopHits
}

func (r *Runner) reconcileBatch(n int, res *Result, jw, cw, dw *blast.TopHitWriter) (*batchHits, error) {
	l := r.cfg.Layout
	vPath, jPath := l.VTablePath(n), l.JTablePath(n)
	for _, p := range []string{vPath, jPath} {
		if !fileExists(p) {
			return nil, fmt.Errorf("%w: %s", ErrMissingTable, p)
		}
	}

	var (
		hits batchHits
		err  error
	)
	if hits.v, err = blast.ReconcileFile(vPath, r.cfg.Format, blast.Options{}); err != nil {
		return nil, err
	}
	if hits.j, err = blast.ReconcileFile(jPath, r.cfg.Format, blast.Options{Writer: jw, Counts: res.JCounts}); err != nil {
		return nil, err
	}

	// C must align downstream of J, D upstream of it.
	if res.CSearched {
		minStart := make(map[string]int, hits.j.Len())
		for id, h := range hits.j.Best {
			minStart[id] = h.QueryEnd
		}
		if hits.c, err = r.reconcileOptional(l.CTablePath(n), blast.Options{
			Constraints: &blast.Constraints{MinQueryStart: minStart},
			Writer:      cw,
			Counts:      res.CCounts,
		}); err != nil {
			return nil, err
		}
	}
	if res.DSearched {
		maxEnd := make(map[string]int, hits.j.Len())
		for id, h := range hits.j.Best {
			maxEnd[id] = h.QueryStart
		}
		if hits.d, err = r.reconcileOptional(l.DTablePath(n), blast.Options{
			Constraints: &blast.Constraints{MaxQueryEnd: maxEnd},
			Writer:      dw,
			Counts:      res.DCounts,
		}); err != nil {
			return nil, err
		}
	}

	return &hits, nil
}

func (r *Runner) reconcileOptional(path string, opts blast.Options) (*blast.TopHits, error) {
	if !fileExists(path) {
		return nil, fmt.Errorf("%w: %s", ErrMissingTable, path)
	}
	return blast.ReconcileFile(path, r.cfg.Format, opts)
}

func (h *batchHits) forRead(id string, cSearched, dSearched bool) classify.Hits {
	out := classify.Hits{
		V:         h.v.Get(id),
		VOthers:   h.v.Others[id],
		J:         h.j.Get(id),
		JOthers:   h.j.Others[id],
		CSearched: cSearched,
		DSearched: dSearched,
	}
	if h.c != nil {
		out.C = h.c.Get(id)
	}
	if h.d != nil {
		out.D = h.d.Get(id)
		out.DOthers = h.d.Others[id]
	}
	return out
}

func (st *run) processBatch(ctx context.Context, path string, hits *batchHits) error {
	reader, err := fasta.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	cSearched, dSearched := hits.c != nil, hits.d != nil
	items := make(chan classify.WorkItem, 2*st.cfg.Workers)
	var readErr error

	go func() {
		defer close(items)
		seq := 0
		for {
			rec, err := reader.Next()
			if err != nil {
				readErr = fmt.Errorf("read %s: %w", path, err)
				return
			}
			if rec == nil {
				return
			}
			id := blast.NormalizeID(rec.ID)
			select {
			case items <- classify.WorkItem{Seq: seq, Read: rec, ID: id, Hits: hits.forRead(id, cSearched, dSearched)}:
			case <-ctx.Done():
				return
			}
			seq++
		}
	}()

	results := st.classifier.ParallelClassify(items, st.cfg.Workers)
	if err := classify.OrderedCollect(results, st.consume); err != nil {
		return err
	}
	if readErr != nil {
		return readErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return st.flushStore()
}

// consume merges one classified read with its raw statistics row and writes
// it to every output.
func (st *run) consume(res classify.WorkResult) error {
	if res.Err != nil {
		return res.Err
	}
	raw, err := st.syncRaw(res.Read.ID)
	if err != nil {
		return err
	}

	cl := res.Class
	st.summary.Add(cl.Status)
	if err := st.stats.Write(raw, cl); err != nil {
		return fmt.Errorf("write statistics row: %w", err)
	}
	if err := st.chans.Write(res.Read.ID, cl); err != nil {
		return err
	}
	if st.store != nil {
		st.stored = append(st.stored, cl)
	}
	return nil
}

// syncRaw advances the raw table to the row of readID. Rows skipped on the
// way belong to reads that failed upstream filtering and get NA rows.
func (st *run) syncRaw(readID string) ([]string, error) {
	for {
		row, err := st.raw.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, fmt.Errorf("%w: read %s not found", ErrDesync, readID)
		}
		st.summary.RawReads++
		if row[0] == readID {
			return row, nil
		}
		if err := st.stats.WriteNA(row); err != nil {
			return nil, fmt.Errorf("write statistics row: %w", err)
		}
	}
}

func (st *run) drainRaw() error {
	for {
		row, err := st.raw.Next()
		if err != nil {
			return err
		}
		if row == nil {
			return nil
		}
		st.summary.RawReads++
		if err := st.stats.WriteNA(row); err != nil {
			return fmt.Errorf("write statistics row: %w", err)
		}
	}
}

func (st *run) flushStore() error {
	if st.store == nil || len(st.stored) == 0 {
		return nil
	}
	if err := st.store.WriteClassifications(st.id, st.stored); err != nil {
		return err
	}
	st.stored = st.stored[:0]
	return nil
}

func (st *run) recordRun(started time.Time) error {
	if st.store == nil {
		return nil
	}
	l := st.cfg.Layout
	source, err := duckdb.StatFile(l.RawStatsPath())
	if err != nil {
		return err
	}
	s := st.summary
	return st.store.WriteRun(&duckdb.Run{
		ID:           st.id,
		Project:      l.Name,
		Locus:        st.cfg.Locus.String(),
		Started:      started,
		Source:       source,
		RawReads:     int64(s.RawReads),
		Total:        int64(s.Total()),
		VAssigned:    int64(s.VAssigned()),
		JAssigned:    int64(s.Found()),
		CDR3Assigned: int64(s.CDR3Assigned()),
		InFrame:      int64(s.InFrame()),
		Good:         int64(s.Good()),
	})
}

func (r *Runner) writeGeneStats(res *Result, found int) error {
	l := r.cfg.Layout
	tables := []struct {
		segment string
		counts  blast.GeneCounts
		always  bool
	}{
		{SegmentJ, res.JCounts, true},
		{SegmentC, res.CCounts, false},
		{SegmentD, res.DCounts, false},
	}
	for _, t := range tables {
		if !t.always && len(t.counts) == 0 {
			continue
		}
		if err := writeFile(l.GeneStatPath(t.segment), func(f *os.File) error {
			return output.WriteGeneStats(f, t.counts, found)
		}); err != nil {
			return fmt.Errorf("write %s gene statistics: %w", t.segment, err)
		}
	}
	return nil
}

func writeSummary(path string, s *output.Summary) error {
	if err := writeFile(path, func(f *os.File) error { return s.Write(f) }); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// topHitTables owns the top-hit table files of a run.
type topHitTables struct {
	files   []*os.File
	writers []*blast.TopHitWriter
}

func newTopHitTables() *topHitTables {
	return &topHitTables{}
}

func (t *topHitTables) create(path string) (*blast.TopHitWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create top-hit table: %w", err)
	}
	w := blast.NewTopHitWriter(f)
	if err := w.WriteHeader(); err != nil {
		f.Close()
		return nil, err
	}
	t.files = append(t.files, f)
	t.writers = append(t.writers, w)
	return w, nil
}

func (t *topHitTables) flush() error {
	for _, w := range t.writers {
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flush top-hit table: %w", err)
		}
	}
	return nil
}

func (t *topHitTables) close() {
	for _, f := range t.files {
		f.Close()
	}
}
