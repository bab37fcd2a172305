// Package analyze drives the end-to-end pipeline: chunk the document, call
// the extraction oracle per chunk, normalize the merged candidates, and
// assemble a loan profile.
package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/loanguard/loanguard/internal/extract"
	"github.com/loanguard/loanguard/internal/metrics"
	"github.com/loanguard/loanguard/internal/models"
	"github.com/loanguard/loanguard/internal/normalizer"
	"github.com/loanguard/loanguard/pkg/chunk"
)

// Config bounds the pipeline's chunking, concurrency, and retry behavior.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	Concurrency  int
	MaxRetries   int
}

// Analyzer turns raw document text into a complete loan profile.
type Analyzer struct {
	oracle extract.Oracle
	norm   *normalizer.Normalizer
	cfg    Config
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(oracle extract.Oracle, norm *normalizer.Normalizer, cfg Config, logger *slog.Logger) *Analyzer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{oracle: oracle, norm: norm, cfg: cfg, logger: logger}
}

// Analyze runs the full pipeline for one document. Chunks are extracted
// concurrently but merged by chunk index, so requirement IDs are
// reproducible for identical input. Failed chunks contribute nothing and
// mark the profile incomplete; the analysis fails outright only when every
// chunk fails or the context is canceled. A canceled analysis returns no
// profile at all, never a partially merged one.
func (a *Analyzer) Analyze(ctx context.Context, docText, loanID, docName string) (*models.LoanProfile, error) {
	if strings.TrimSpace(docText) == "" {
		return nil, fmt.Errorf("analyze: document text is empty")
	}
	if loanID == "" {
		loanID = "LOAN-" + strings.ToUpper(uuid.NewString()[:8])
	}

	chunks := chunk.Split(docText, a.cfg.ChunkSize, a.cfg.ChunkOverlap)
	a.logger.Info("analyzing document", "loan_id", loanID, "chunks", len(chunks))
	metrics.Inc(metrics.AnalyzeTotal)

	results := make([]*extract.Result, len(chunks))
	failed := make([]bool, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)
	for i := range chunks {
		g.Go(func() error {
			res, err := a.extractChunk(gctx, chunks[i])
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				a.logger.Error("chunk extraction failed, continuing without it",
					"chunk", i, "error", err)
				metrics.Inc(metrics.ChunksFailed)
				failed[i] = true
				return nil
			}
			metrics.Inc(metrics.ChunksExtracted)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	var candidates []normalizer.RawCandidate
	var info normalizer.RawLoanInfo
	incomplete := false
	succeeded := 0
	for i := range results {
		if failed[i] || results[i] == nil {
			incomplete = true
			continue
		}
		succeeded++
		candidates = append(candidates, results[i].Candidates...)
		mergeLoanInfo(&info, results[i].LoanInfo)
	}
	if succeeded == 0 {
		return nil, fmt.Errorf("analyze: extraction failed for all %d chunks", len(chunks))
	}

	reqs, report := a.norm.Normalize(candidates)
	a.logger.Info("analysis complete",
		"loan_id", loanID, "requirements", len(reqs),
		"dropped", report.Dropped, "incomplete", incomplete)

	return &models.LoanProfile{
		LoanID:             loanID,
		LoanName:           "Loan " + loanID,
		PropertyName:       info.PropertyName,
		BorrowerName:       info.BorrowerName,
		LenderName:         info.LenderName,
		OriginalLoanAmount: info.LoanAmount,
		OriginationDate:    info.OriginationDate,
		MaturityDate:       info.MaturityDate,
		SourceDocument:     docName,
		ExtractedAt:        time.Now().UTC(),
		Incomplete:         incomplete,
		Requirements:       reqs,
	}, nil
}

// extractChunk calls the oracle with bounded exponential-backoff retries.
// Only transient failures are retried; fatal oracle errors stop immediately.
func (a *Analyzer) extractChunk(ctx context.Context, text string) (*extract.Result, error) {
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(a.cfg.MaxRetries)),
		ctx,
	)

	var res *extract.Result
	op := func() error {
		r, err := a.oracle.Extract(ctx, text)
		if err != nil {
			if extract.IsTransient(err) {
				metrics.Inc(metrics.OracleRetries)
				return err
			}
			return backoff.Permanent(err)
		}
		res = r
		return nil
	}
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return res, nil
}

// mergeLoanInfo fills empty fields of dst from src; the first chunk to name
// a party wins.
func mergeLoanInfo(dst *normalizer.RawLoanInfo, src normalizer.RawLoanInfo) {
	if dst.BorrowerName == "" {
		dst.BorrowerName = src.BorrowerName
	}
	if dst.LenderName == "" {
		dst.LenderName = src.LenderName
	}
	if dst.PropertyName == "" {
		dst.PropertyName = src.PropertyName
	}
	if dst.LoanAmount == 0 {
		dst.LoanAmount = src.LoanAmount
	}
	if dst.OriginationDate == "" {
		dst.OriginationDate = src.OriginationDate
	}
	if dst.MaturityDate == "" {
		dst.MaturityDate = src.MaturityDate
	}
}
