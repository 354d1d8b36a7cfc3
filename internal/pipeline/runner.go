package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docinsight/internal/budget"
	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/embed"
	"github.com/dgallion1/docinsight/internal/layout"
	"github.com/dgallion1/docinsight/internal/outline"
	"github.com/dgallion1/docinsight/internal/parser"
	"github.com/dgallion1/docinsight/internal/ranking"
	"github.com/dgallion1/docinsight/internal/scoring"
	"github.com/dgallion1/docinsight/internal/section"
)

// Skip kinds produced by the runner itself, next to the parser's input error kinds.
const (
	KindBudgetExceeded = "budget_exceeded"
	KindInternal       = "internal"
	KindInterrupted    = "interrupted"
)

// Source is one input document: a file on disk, or bytes already in memory.
type Source struct {
	Name string // file name used as the document ID; defaults to the base of Path
	Path string
	Data []byte
}

// DocumentID is the stable identifier of the source.
func (s Source) DocumentID() string {
	if s.Name != "" {
		return filepath.Base(s.Name)
	}
	return filepath.Base(s.Path)
}

func (s Source) read() ([]byte, error) {
	if s.Data != nil {
		return s.Data, nil
	}
	if s.Path == "" {
		return nil, errors.New("source has neither path nor data")
	}
	return os.ReadFile(s.Path)
}

// Skip records a document that produced no result.
type Skip struct {
	Document string `json:"document"`
	Kind     string `json:"kind"`
	Reason   string `json:"reason"`
}

// Decoder turns raw bytes into positioned text blocks.
type Decoder interface {
	Decode(r io.Reader, filename string) (*doctree.Document, error)
}

// ParserDecoder is the production Decoder, dispatching on file extension.
type ParserDecoder struct {
	Options parser.Options
}

func (d ParserDecoder) Decode(r io.Reader, filename string) (*doctree.Document, error) {
	return parser.Decode(r, filename, d.Options)
}

// Options configures a Runner.
type Options struct {
	Workers      int
	OutlineLimit time.Duration
	RankLimit    time.Duration
	TopK         int
	ParagraphGap float64
	Outline      outline.Options
	Scoring      scoring.Config
}

func DefaultOptions() Options {
	return Options{
		Workers:      runtime.NumCPU(),
		OutlineLimit: budget.OutlineLimit,
		RankLimit:    budget.RankLimit,
		TopK:         ranking.DefaultTopK,
		ParagraphGap: section.DefaultParagraphGapFactor,
		Outline:      outline.DefaultOptions(),
		Scoring:      scoring.DefaultConfig(),
	}
}

// Runner executes outline and ranking batches. It is safe for concurrent runs; the
// embedder is shared by all of them.
type Runner struct {
	decoder  Decoder
	embedder embed.Embedder
	opts     Options
	log      *slog.Logger
}

func NewRunner(decoder Decoder, embedder embed.Embedder, opts Options, log *slog.Logger) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{decoder: decoder, embedder: embedder, opts: opts, log: log}
}

// Options returns the runner's effective configuration.
func (r *Runner) Options() Options { return r.opts }

type analyzed struct {
	doc     *doctree.Document
	outline doctree.Outline
	sha256  string
	elapsed time.Duration
}

func (r *Runner) analyze(src Source) (*analyzed, error) {
	name := src.DocumentID()
	data, err := src.read()
	if err != nil {
		return nil, parser.NewInputError(name, err)
	}
	start := time.Now()
	doc, err := r.decoder.Decode(bytes.NewReader(data), name)
	if err != nil {
		return nil, parser.NewInputError(name, err)
	}
	doc.ID = name
	profile := layout.Analyze(doc.Blocks, r.opts.Outline.Layout)
	ol := outline.Build(doc.Blocks, profile, r.opts.Outline)
	return &analyzed{
		doc:     doc,
		outline: ol,
		sha256:  ContentHashHex(data),
		elapsed: time.Since(start),
	}, nil
}

// runBatch fans work out over sources with at most opts.Workers in flight. It returns when
// every document has finished or the guard's deadline passes, whichever is first; documents
// still running at the deadline are abandoned and reported as budget_exceeded. If ctx is
// cancelled first, unfinished documents are reported as interrupted and the budget stays
// unspent.
func runBatch[T any](ctx context.Context, r *Runner, guard *budget.Guard, sources []Source, log *slog.Logger,
	work func(ctx context.Context, src Source) (T, error)) (map[int]T, []Skip) {

	dctx, cancel := guard.Context(ctx)
	defer cancel()

	col := newCollector[T]()
	done := make(chan struct{})

	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(r.opts.Workers)
		for i, src := range sources {
			if guard.Exceeded() || dctx.Err() != nil || !col.open() {
				break
			}
			g.Go(func() error {
				v, err := work(dctx, src)
				if err != nil {
					skip := skipFor(dctx, src.DocumentID(), err)
					log.Warn("document skipped", "document", skip.Document, "kind", skip.Kind, "error", err)
					col.fail(i, skip)
					return nil
				}
				col.add(i, v)
				return nil
			})
		}
		_ = g.Wait()
	}()

	unfinished := Skip{Kind: KindBudgetExceeded, Reason: "not finished before the time budget ran out"}
	select {
	case <-done:
	case <-dctx.Done():
		if guard.Exceeded() {
			log.Warn("time budget exhausted, abandoning in-flight documents", "elapsed", guard.Elapsed())
		} else {
			unfinished = Skip{Kind: KindInterrupted, Reason: "run cancelled before the document finished"}
			log.Warn("run cancelled, abandoning in-flight documents", "elapsed", guard.Elapsed(), "error", ctx.Err())
		}
	}

	results, failed := col.seal()
	var skipped []Skip
	for i, src := range sources {
		if _, ok := results[i]; ok {
			continue
		}
		if s, ok := failed[i]; ok {
			skipped = append(skipped, s)
			continue
		}
		s := unfinished
		s.Document = src.DocumentID()
		skipped = append(skipped, s)
	}
	return results, skipped
}

func skipFor(ctx context.Context, doc string, err error) Skip {
	var ie *parser.InputError
	switch {
	case errors.As(err, &ie):
		return Skip{Document: doc, Kind: ie.Kind, Reason: ie.Err.Error()}
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return Skip{Document: doc, Kind: KindBudgetExceeded, Reason: err.Error()}
	case ctx.Err() != nil:
		return Skip{Document: doc, Kind: KindInterrupted, Reason: err.Error()}
	default:
		return Skip{Document: doc, Kind: KindInternal, Reason: err.Error()}
	}
}

// DocumentOutline is the outline of one successfully processed document.
type DocumentOutline struct {
	DocumentID string
	Title      string
	Entries    []doctree.OutlineEntry
	Pages      int
	SHA256     string
	Elapsed    time.Duration
}

// OutlineResult is the outcome of an outline batch.
type OutlineResult struct {
	RunID          string
	Documents      []DocumentOutline // input order
	Skipped        []Skip
	BudgetExceeded bool
	Elapsed        time.Duration
}

func (o *OutlineResult) Status() RunStatus {
	return runStatus(len(o.Documents), len(o.Skipped), o.BudgetExceeded)
}

// Err is nil for a complete run and an *ExitError otherwise.
func (o *OutlineResult) Err() error {
	return exitError(o.Status(), fmt.Sprintf("outline: %d documents, %d skipped", len(o.Documents), len(o.Skipped)))
}

// Outline extracts the outline of every source under the outline time budget.
func (r *Runner) Outline(ctx context.Context, sources []Source) *OutlineResult {
	res := &OutlineResult{RunID: uuid.NewString()}
	log := r.log.With("run_id", res.RunID, "mode", "outline")
	guard := budget.New(r.opts.OutlineLimit)
	log.Info("outline run started", "documents", len(sources), "budget", guard.Limit())

	results, skipped := runBatch(ctx, r, guard, sources, log, func(ctx context.Context, src Source) (DocumentOutline, error) {
		a, err := r.analyze(src)
		if err != nil {
			return DocumentOutline{}, err
		}
		log.Info("document outlined",
			"document", a.doc.ID,
			"pages", a.doc.PageCount,
			"headings", len(a.outline.Entries),
			"sha256", a.sha256,
			"elapsed_ms", a.elapsed.Milliseconds(),
		)
		return DocumentOutline{
			DocumentID: a.doc.ID,
			Title:      a.outline.Title,
			Entries:    a.outline.Entries,
			Pages:      a.doc.PageCount,
			SHA256:     a.sha256,
			Elapsed:    a.elapsed,
		}, nil
	})

	for i := range sources {
		if d, ok := results[i]; ok {
			res.Documents = append(res.Documents, d)
		}
	}
	res.Skipped = skipped
	res.BudgetExceeded = guard.Tripped()
	res.Elapsed = guard.Elapsed()
	log.Info("outline run finished",
		"documents", len(res.Documents),
		"skipped", len(res.Skipped),
		"budget_exceeded", res.BudgetExceeded,
		"elapsed", res.Elapsed,
	)
	return res
}

// RankResult is the outcome of a ranking batch.
type RankResult struct {
	RunID          string
	Query          doctree.PersonaQuery
	Documents      []string // processed documents, input order
	Sections       []doctree.ScoredSection
	TotalSections  int
	Degraded       bool
	DegradedReason string
	Provider       string
	BudgetExceeded bool
	Skipped        []Skip
	Elapsed        time.Duration
}

func (rr *RankResult) Status() RunStatus {
	return runStatus(len(rr.Documents), len(rr.Skipped), rr.BudgetExceeded)
}

// Err is nil for a complete run and an *ExitError otherwise.
func (rr *RankResult) Err() error {
	return exitError(rr.Status(), fmt.Sprintf("rank: %d documents, %d skipped", len(rr.Documents), len(rr.Skipped)))
}

// Rank scores every section of every source against query and returns the top K,
// each with a refined excerpt. topK <= 0 uses the configured default.
func (r *Runner) Rank(ctx context.Context, sources []Source, query doctree.PersonaQuery, topK int) *RankResult {
	if topK <= 0 {
		topK = r.opts.TopK
	}
	topK = ranking.ClampTopK(topK)

	res := &RankResult{RunID: uuid.NewString(), Query: query}
	log := r.log.With("run_id", res.RunID, "mode", "rank")
	guard := budget.New(r.opts.RankLimit)
	log.Info("rank run started", "documents", len(sources), "top_k", topK, "budget", guard.Limit())

	qctx, cancel := guard.Context(ctx)
	scorer := scoring.New(qctx, r.embedder, query, r.opts.Scoring, log)
	cancel()

	// Coarse phase: score every section of every document.
	results, skipped := runBatch(ctx, r, guard, sources, log, func(ctx context.Context, src Source) ([]doctree.ScoredSection, error) {
		a, err := r.analyze(src)
		if err != nil {
			return nil, err
		}
		ex := section.ExtractWithGap(a.doc.ID, a.doc.Blocks, a.outline, r.opts.ParagraphGap)
		scored, err := scorer.ScoreDocument(ctx, a.doc.ID, ex.Sections)
		if err != nil {
			return nil, err
		}
		preambleWords := len(strings.Fields(ex.Preamble))
		if len(scored) == 0 {
			log.Warn("document has no headings, none of its text is ranked",
				"document", a.doc.ID, "preamble_words", preambleWords)
		}
		log.Info("document scored",
			"document", a.doc.ID,
			"pages", a.doc.PageCount,
			"sections", len(scored),
			"preamble_words", preambleWords,
			"sha256", a.sha256,
			"elapsed_ms", a.elapsed.Milliseconds(),
		)
		return scored, nil
	})

	var all []doctree.ScoredSection
	for i, src := range sources {
		if scored, ok := results[i]; ok {
			res.Documents = append(res.Documents, src.DocumentID())
			all = append(all, scored...)
		}
	}
	res.Skipped = skipped
	res.TotalSections = len(all)

	// Fine phase: refine the winners while time remains.
	log.Info("coarse phase finished",
		"sections", res.TotalSections,
		"degraded", scorer.Degraded(),
		"budget_remaining", guard.Remaining(),
	)
	if len(all) > 0 {
		wasDegraded := scorer.Degraded()
		winners := ranking.Aggregate(scorer.Finalize(all), topK)

		rctx, cancel := guard.Context(ctx)
		winners, _ = ranking.Refine(rctx, winners, scorer, guard)
		if !wasDegraded && scorer.Degraded() {
			// Refinement lost the embedder; rank again so every score uses one formula.
			log.Warn("embedding failed during refinement, re-ranking lexically")
			winners = ranking.Aggregate(scorer.Finalize(all), topK)
			winners, _ = ranking.Refine(rctx, winners, scorer, guard)
		}
		cancel()
		res.Sections = winners
	}

	res.Degraded = scorer.Degraded()
	res.DegradedReason = scorer.DegradedReason()
	res.Provider = scorer.Provider()
	res.BudgetExceeded = guard.Tripped()
	res.Elapsed = guard.Elapsed()
	log.Info("rank run finished",
		"documents", len(res.Documents),
		"sections", res.TotalSections,
		"returned", len(res.Sections),
		"skipped", len(res.Skipped),
		"degraded", res.Degraded,
		"budget_exceeded", res.BudgetExceeded,
		"elapsed", res.Elapsed,
	)
	return res
}
