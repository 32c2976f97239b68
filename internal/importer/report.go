package importer

// report.go accumulates per-row outcomes into the final import report.
//
// Accumulation is pure counting: total_rows once per decoded row,
// success_count once per row that validated and resolved, imported once per
// record actually persisted. Errors are appended in ascending row order
// regardless of which stage produced them. Nothing survives past one batch.

import "sort"

// Report is the outcome of one batch import. It is built once per call,
// returned to the caller, and never persisted.
type Report struct {
	BatchID      string   `json:"batch_id"`
	TotalRows    int      `json:"total_rows"`
	SuccessCount int      `json:"success_count"`
	Imported     int      `json:"imported"`
	Errors       []string `json:"errors"`
}

type aggregator struct {
	batchID   string
	total     int
	success   int
	imported  int
	rowErrors []RowError
}

func newAggregator(batchID string) *aggregator {
	return &aggregator{batchID: batchID}
}

func (a *aggregator) rowSeen()      { a.total++ }
func (a *aggregator) rowValidated() { a.success++ }
func (a *aggregator) rowPersisted() { a.imported++ }

func (a *aggregator) add(e ...RowError) { a.rowErrors = append(a.rowErrors, e...) }

// report finalizes the batch. Errors come out sorted by row index; the sort
// is stable so multiple errors within one row keep their column order.
func (a *aggregator) report() *Report {
	sort.SliceStable(a.rowErrors, func(i, j int) bool {
		return a.rowErrors[i].Row < a.rowErrors[j].Row
	})

	msgs := make([]string, len(a.rowErrors))
	for i, e := range a.rowErrors {
		msgs[i] = e.Error()
	}

	return &Report{
		BatchID:      a.batchID,
		TotalRows:    a.total,
		SuccessCount: a.success,
		Imported:     a.imported,
		Errors:       msgs,
	}
}
