// Package importer runs the batch import pipeline: decode, validate,
// resolve, persist. Row-level failures never abort a batch; the caller gets
// a report covering every row. Fatal failures (bad header, size or row-count
// guard) abort the batch before row processing and produce no report.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/marketlens/ingest/internal/csvx"
	"github.com/marketlens/ingest/internal/logging"
	"github.com/marketlens/ingest/internal/metrics"
	"github.com/marketlens/ingest/internal/schema"
	"github.com/marketlens/ingest/internal/store"
)

// Config carries the batch guards and worker pool size.
type Config struct {
	MaxFileSize int64 // bytes; exceeding it rejects the batch with TooLarge
	MaxRows     int   // data rows; exceeding it rejects the batch with TooManyRows
	Workers     int   // parallel row validation/resolution workers
}

// Identity is the authenticated caller a batch runs on behalf of. It is
// passed in explicitly by the request layer; the importer never reads
// ambient session state.
type Identity struct {
	Subject string
}

// Importer orchestrates batch imports against a store. One Importer is
// shared across requests; each Import call owns its report and its per-batch
// reference cache, so concurrent batches share no mutable state.
type Importer struct {
	store   store.Store
	cfg     Config
	metrics *metrics.Metrics
}

// New creates an Importer. metrics may be nil.
func New(st store.Store, cfg Config, m *metrics.Metrics) *Importer {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Importer{store: st, cfg: cfg, metrics: m}
}

// rowOutcome is the result of one row's validate/resolve pass. Outcomes are
// produced by workers in completion order and reordered by row index before
// aggregation.
type rowOutcome struct {
	row  int
	rec  *store.Record // nil when the row failed
	errs []RowError
}

// Import processes one uploaded file end to end and returns its report.
//
// declaredSize is the client-declared file size in bytes (0 if unknown);
// the byte count actually read is checked against the same limit, so an
// understated declaration cannot bypass the guard. On context cancellation
// the pipeline stops scheduling rows, lets in-flight row work finish, and
// returns the context error instead of a report.
func (im *Importer) Import(ctx context.Context, ident Identity, kind schema.Kind, r io.Reader, declaredSize int64) (*Report, error) {
	t, ok := schema.Get(kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind: %s", kind)
	}

	start := time.Now()
	batchID := uuid.New().String()
	logger := logging.WithFields(ctx, "batch_id", batchID, "kind", kind, "subject", ident.Subject)

	if declaredSize > im.cfg.MaxFileSize {
		im.metrics.ObserveBatch(string(kind), metrics.OutcomeRejected, 0)
		return nil, fatal(KindTooLarge, "file exceeds %d byte limit", im.cfg.MaxFileSize)
	}

	counting := csvx.NewCountingReader(r)
	dec := csvx.NewDecoder(counting, t)

	if err := dec.Header(); err != nil {
		im.metrics.ObserveBatch(string(kind), metrics.OutcomeRejected, 0)
		var mismatch *csvx.HeaderMismatchError
		if errors.As(err, &mismatch) {
			return nil, fatal(KindFormatError, "%s", mismatch.Error())
		}
		return nil, fatal(KindFormatError, "unreadable header: %v", err)
	}

	outcomes, fatalErr, err := im.processRows(ctx, dec, counting, t)
	if fatalErr != nil {
		im.metrics.ObserveBatch(string(kind), metrics.OutcomeRejected, 0)
		logger.Warn("batch rejected", "error", fatalErr.Message, "error_kind", fatalErr.Kind)
		return nil, fatalErr
	}
	if err != nil {
		im.metrics.ObserveBatch(string(kind), metrics.OutcomeCancelled, 0)
		logger.Info("batch cancelled", "error", err)
		return nil, err
	}

	report, err := im.persist(ctx, ident, batchID, t, outcomes)
	if err != nil {
		im.metrics.ObserveBatch(string(kind), metrics.OutcomeCancelled, 0)
		logger.Info("batch cancelled during persistence", "error", err)
		return nil, err
	}

	im.metrics.ObserveBatch(string(kind), metrics.OutcomeCompleted, time.Since(start).Seconds())
	logger.Info("batch completed",
		"total_rows", report.TotalRows,
		"success_count", report.SuccessCount,
		"imported", report.Imported,
		"errors", len(report.Errors),
		"duration", time.Since(start),
	)
	return report, nil
}

// processRows decodes sequentially and fans row validation/resolution out to
// a bounded worker pool. It returns the unordered outcomes, or a fatal error
// when a batch guard trips, or the context error on cancellation.
func (im *Importer) processRows(ctx context.Context, dec *csvx.Decoder, counting *csvx.CountingReader, t schema.Template) ([]rowOutcome, *FatalError, error) {
	resolver := NewResolver(im.store.Exists)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.cfg.Workers)

	var (
		mu       sync.Mutex
		outcomes []rowOutcome
		rows     int
		fatalErr *FatalError
	)

decode:
	for {
		if ctx.Err() != nil {
			break // stop scheduling; in-flight rows finish below
		}

		raw, err := dec.Next()
		switch {
		case errors.Is(err, io.EOF):
			break decode

		case err != nil:
			var shape *csvx.RowShapeError
			if !errors.As(err, &shape) {
				fatalErr = fatal(KindFormatError, "decode: %v", err)
				break decode
			}
			rows++
			if rows > im.cfg.MaxRows {
				fatalErr = fatal(KindTooManyRows, "file exceeds %d row limit", im.cfg.MaxRows)
				break decode
			}
			mu.Lock()
			outcomes = append(outcomes, rowOutcome{
				row:  shape.Index,
				errs: []RowError{{Row: shape.Index, Kind: KindTypeMismatch, Message: shape.Message}},
			})
			mu.Unlock()

		default:
			rows++
			if rows > im.cfg.MaxRows {
				fatalErr = fatal(KindTooManyRows, "file exceeds %d row limit", im.cfg.MaxRows)
				break decode
			}
			if counting.BytesRead > im.cfg.MaxFileSize {
				fatalErr = fatal(KindTooLarge, "file exceeds %d byte limit", im.cfg.MaxFileSize)
				break decode
			}

			raw := raw
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				out := rowOutcome{row: raw.Index}
				rec, verrs := ValidateRow(raw, t)
				switch {
				case len(verrs) > 0:
					out.errs = verrs
				default:
					if rowErr := resolver.Resolve(gctx, raw.Index, rec, t); rowErr != nil {
						out.errs = []RowError{*rowErr}
					} else {
						out.rec = rec
					}
				}
				mu.Lock()
				outcomes = append(outcomes, out)
				mu.Unlock()
				return nil
			})
		}
	}

	waitErr := g.Wait()

	if fatalErr != nil {
		return nil, fatalErr, nil
	}
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	if waitErr != nil {
		return nil, nil, waitErr
	}
	return outcomes, nil, nil
}

// persist drains outcomes in ascending row order, persisting each validated
// record and aggregating the report. A failed insert is recorded as a
// row-scoped PersistenceFailure; rows already persisted are not rolled back.
func (im *Importer) persist(ctx context.Context, ident Identity, batchID string, t schema.Template, outcomes []rowOutcome) (*Report, error) {
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].row < outcomes[j].row })

	kind := string(t.Kind)
	agg := newAggregator(batchID)

	for _, out := range outcomes {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		agg.rowSeen()

		if out.rec == nil {
			agg.add(out.errs...)
			im.metrics.ObserveRow(kind, false)
			for _, e := range out.errs {
				im.metrics.ObserveRowError(kind, string(e.Kind))
			}
			continue
		}

		agg.rowValidated()
		im.metrics.ObserveRow(kind, true)

		out.rec.BatchID = batchID
		out.rec.ImportedBy = ident.Subject
		if err := im.store.Create(ctx, out.rec); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			agg.add(RowError{
				Row:     out.row,
				Kind:    KindPersistenceFailure,
				Message: fmt.Sprintf("failed to save record: %v", err),
			})
			im.metrics.ObserveRowError(kind, string(KindPersistenceFailure))
			continue
		}
		agg.rowPersisted()
	}

	return agg.report(), nil
}
