package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"datamod/internal/analytics"
	"datamod/internal/config"
	"datamod/internal/dataprocessing"
	"datamod/internal/dataset"
	apperrors "datamod/internal/errors"
	"datamod/internal/exporter"
	"datamod/internal/history"
	"datamod/internal/infrastructure"
)

// Events published to the EventPublisher
const (
	EventDatasetLoaded   = "dataset.loaded"
	EventDatasetModified = "dataset.modified"
	EventHistoryChanged  = "history.changed"
	EventDatasetSaved    = "dataset.saved"
	EventChartExported   = "chart.exported"
)

// KindReset is the record kind of a reset to the original data
const KindReset = "reset"

// previewRows caps the rows returned by Preview
const previewRows = 20

// EventPublisher receives session events. The websocket hub implements it.
type EventPublisher interface {
	Broadcast(eventType string, data interface{})
}

// SessionInfo describes the loaded dataset
type SessionInfo struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Path     string         `json:"path"`
	Rows     int            `json:"rows"`
	Columns  []string       `json:"columns"`
	LoadedAt time.Time      `json:"loaded_at"`
	Modified bool           `json:"modified"`
	History  history.Status `json:"history"`
}

// OperationResult is returned by Apply and Convert
type OperationResult struct {
	Record      dataset.ModificationRecord `json:"record"`
	Comparisons []analytics.Comparison     `json:"comparisons"`
	History     history.Status             `json:"history"`
}

// PreviewResult shows what an operation would do without committing it
type PreviewResult struct {
	Record      dataset.ModificationRecord `json:"record"`
	Comparisons []analytics.Comparison     `json:"comparisons"`
	Before      TableView                  `json:"before"`
	After       TableView                  `json:"after"`
}

// HistoryResult is returned by Undo, Redo and Reset
type HistoryResult struct {
	Record  dataset.ModificationRecord `json:"record"`
	History history.Status             `json:"history"`
}

// HistoryView lists the records on both stacks, oldest first
type HistoryView struct {
	Undo   []dataset.ModificationRecord `json:"undo"`
	Redo   []dataset.ModificationRecord `json:"redo"`
	Status history.Status               `json:"status"`
}

// TableView is a window of rows rendered with native cell values
type TableView struct {
	Columns []string        `json:"columns"`
	Offset  int             `json:"offset"`
	Total   int             `json:"total"`
	Rows    [][]interface{} `json:"rows"`
}

// ChartResult is returned by ExportChart
type ChartResult struct {
	Path       string               `json:"path"`
	Kind       analytics.ChartKind  `json:"kind"`
	Comparison analytics.Comparison `json:"comparison"`
}

// SessionDeps wires a SessionService
type SessionDeps struct {
	Loader       *dataprocessing.Loader
	Processor    *dataprocessing.Processor
	Exporter     *exporter.Exporter
	Publisher    EventPublisher
	Metrics      *infrastructure.BusinessMetrics
	Tracer       trace.Tracer
	Logger       *slog.Logger
	HistoryDepth int
}

// SessionService is the controller between the views (CLI, HTTP) and the
// dataset model. It holds one dataset at a time and runs at most one
// operation at once; a concurrent call fails with a BUSY error.
type SessionService struct {
	loader       *dataprocessing.Loader
	processor    *dataprocessing.Processor
	exporter     *exporter.Exporter
	publisher    EventPublisher
	metrics      *infrastructure.BusinessMetrics
	tracer       trace.Tracer
	logger       *slog.Logger
	historyDepth int

	sem *semaphore.Weighted

	mu      sync.RWMutex
	id      string
	dataset *dataset.Dataset
	history *history.Manager
}

// NewSessionService creates a session controller
func NewSessionService(deps SessionDeps) *SessionService {
	logger := deps.Logger
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.MeterName)
	}
	processor := deps.Processor
	if processor == nil {
		processor = dataprocessing.NewProcessor(nil, config.DefaultDecimalPlaces, logger)
	}
	return &SessionService{
		loader:       deps.Loader,
		processor:    processor,
		exporter:     deps.Exporter,
		publisher:    deps.Publisher,
		metrics:      deps.Metrics,
		tracer:       tracer,
		logger:       infrastructure.WithComponent(logger, "session_service"),
		historyDepth: deps.HistoryDepth,
		sem:          semaphore.NewWeighted(1),
	}
}

// Open loads path and replaces the current dataset and history
func (s *SessionService) Open(ctx context.Context, path string) (SessionInfo, error) {
	var info SessionInfo
	err := s.run(ctx, "open", func(ctx context.Context) error {
		ds, err := s.loader.Load(ctx, path)
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.id = uuid.New().String()
		s.dataset = ds
		s.history = history.New(s.historyDepth)
		info = s.infoLocked()
		s.mu.Unlock()

		rows, _ := ds.Shape()
		if s.metrics != nil {
			format := metric.WithAttributes(attribute.String("format", strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")))
			s.metrics.FilesLoaded.Add(ctx, 1, format)
			s.metrics.RowsLoaded.Add(ctx, int64(rows), format)
			s.metrics.HistoryDepth.Record(ctx, 0)
		}
		infrastructure.SetSpanAttributes(ctx,
			attribute.Int("dataset.rows", rows),
			attribute.Int("dataset.columns", len(info.Columns)))

		s.logger.InfoContext(ctx, "Dataset opened",
			slog.String("session_id", info.ID),
			slog.String("path", path),
			slog.Int("rows", rows),
			slog.Int("columns", len(info.Columns)))
		s.publish(EventDatasetLoaded, info)
		s.publish(EventHistoryChanged, info.History)
		return nil
	})
	return info, err
}

// Info describes the current dataset
func (s *SessionService) Info(ctx context.Context) (SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return SessionInfo{}, noDataset()
	}
	return s.infoLocked(), nil
}

// Apply runs op on the selection and commits the result. On failure the
// dataset and history are unchanged.
func (s *SessionService) Apply(ctx context.Context, sel dataset.Selection, op dataprocessing.Operation) (OperationResult, error) {
	var result OperationResult
	err := s.run(ctx, string(op.Kind), func(ctx context.Context) error {
		ds, hist, err := s.current()
		if err != nil {
			return err
		}

		before := ds.Modified()
		after, record, err := s.processor.Apply(before, sel, op)
		if err != nil {
			return err
		}

		s.mu.Lock()
		snapshot := ds.Snapshot()
		if err := ds.ReplaceModified(after); err != nil {
			s.mu.Unlock()
			return err
		}
		hist.RecordBeforeOperation(snapshot, record)
		status := hist.Status()
		s.mu.Unlock()

		result = OperationResult{
			Record:      record,
			Comparisons: compareColumns(before, after, sel),
			History:     status,
		}

		if s.metrics != nil {
			s.metrics.CellsModified.Add(ctx, int64(record.CellsChanged),
				metric.WithAttributes(attribute.String("operation.kind", record.Kind)))
			s.metrics.HistoryDepth.Record(ctx, int64(status.UndoDepth))
		}
		infrastructure.AddSpanEvent(ctx, "operation.committed",
			attribute.String("operation.kind", record.Kind),
			attribute.Int("cells_changed", record.CellsChanged))

		s.logger.InfoContext(ctx, "Operation applied",
			slog.String("record_id", record.ID),
			slog.String("kind", record.Kind),
			slog.String("expression", record.Expression),
			slog.Any("columns", record.Columns),
			slog.String("rows", record.Rows.String()),
			slog.Int("cells_changed", record.CellsChanged))
		s.publish(EventDatasetModified, result)
		s.publish(EventHistoryChanged, status)
		return nil
	})
	return result, err
}

// Convert converts the selected values between time units
func (s *SessionService) Convert(ctx context.Context, sel dataset.Selection, from, to string) (OperationResult, error) {
	return s.Apply(ctx, sel, dataprocessing.Convert(from, to))
}

// Preview computes op on the selection without committing it. At most
// previewRows rows of the selected columns are returned.
func (s *SessionService) Preview(ctx context.Context, sel dataset.Selection, op dataprocessing.Operation) (PreviewResult, error) {
	var result PreviewResult
	err := s.run(ctx, "preview", func(ctx context.Context) error {
		ds, _, err := s.current()
		if err != nil {
			return err
		}

		before := ds.Modified()
		after, record, err := s.processor.Apply(before, sel, op)
		if err != nil {
			return err
		}

		end := sel.Rows.End
		if sel.Rows.Len() > previewRows {
			end = sel.Rows.Start + previewRows - 1
		}
		window := dataset.RowRange{Start: sel.Rows.Start, End: end}
		result = PreviewResult{
			Record:      record,
			Comparisons: compareColumns(before, after, sel),
			Before:      viewOf(before, sel.Columns, window),
			After:       viewOf(after, sel.Columns, window),
		}
		return nil
	})
	return result, err
}

// Undo restores the state before the latest operation
func (s *SessionService) Undo(ctx context.Context) (HistoryResult, error) {
	return s.step(ctx, "undo", (*history.Manager).Undo)
}

// Redo reapplies the most recently undone operation
func (s *SessionService) Redo(ctx context.Context) (HistoryResult, error) {
	return s.step(ctx, "redo", (*history.Manager).Redo)
}

func (s *SessionService) step(ctx context.Context, kind string, move func(*history.Manager, *dataset.Table) (*dataset.Table, history.Entry, error)) (HistoryResult, error) {
	var result HistoryResult
	err := s.run(ctx, kind, func(ctx context.Context) error {
		ds, hist, err := s.current()
		if err != nil {
			return err
		}

		s.mu.Lock()
		restored, entry, err := move(hist, ds.Modified())
		if err != nil {
			s.mu.Unlock()
			return err
		}
		if err := ds.ReplaceModified(restored); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("history snapshot no longer matches dataset: %w", err)
		}
		result = HistoryResult{Record: entry.Record, History: hist.Status()}
		s.mu.Unlock()

		if s.metrics != nil {
			s.metrics.HistoryDepth.Record(ctx, int64(result.History.UndoDepth))
		}
		s.logger.InfoContext(ctx, "History step",
			slog.String("direction", kind),
			slog.String("record_id", entry.Record.ID),
			slog.String("kind", entry.Record.Kind))
		s.publish(EventDatasetModified, result)
		s.publish(EventHistoryChanged, result.History)
		return nil
	})
	return result, err
}

// Reset restores the original data. The reset is recorded in history so it
// can be undone.
func (s *SessionService) Reset(ctx context.Context) (HistoryResult, error) {
	var result HistoryResult
	err := s.run(ctx, KindReset, func(ctx context.Context) error {
		ds, hist, err := s.current()
		if err != nil {
			return err
		}

		s.mu.Lock()
		rows, cols := ds.Shape()
		record := dataset.ModificationRecord{
			ID:           uuid.New().String(),
			Kind:         KindReset,
			Columns:      ds.Columns(),
			Rows:         dataset.RowRange{Start: 0, End: rows - 1},
			CellsChanged: changedCells(ds.Modified(), ds.Original(), cols),
			Timestamp:    time.Now(),
		}
		if !ds.IsModified() {
			result = HistoryResult{Record: record, History: hist.Status()}
			s.mu.Unlock()
			s.logger.DebugContext(ctx, "Reset skipped, dataset unmodified")
			return nil
		}
		snapshot := ds.Snapshot()
		ds.Reset()
		hist.RecordBeforeOperation(snapshot, record)
		result = HistoryResult{Record: record, History: hist.Status()}
		s.mu.Unlock()

		s.logger.InfoContext(ctx, "Dataset reset",
			slog.Int("cells_changed", record.CellsChanged))
		s.publish(EventDatasetModified, result)
		s.publish(EventHistoryChanged, result.History)
		return nil
	})
	return result, err
}

// History lists the undo and redo records
func (s *SessionService) History(ctx context.Context) (HistoryView, error) {
	_, hist, err := s.current()
	if err != nil {
		return HistoryView{}, err
	}
	return HistoryView{
		Undo:   hist.Entries(),
		Redo:   hist.RedoEntries(),
		Status: hist.Status(),
	}, nil
}

// Stats compares a column between the original and modified data
func (s *SessionService) Stats(ctx context.Context, column string, rows dataset.RowRange) (analytics.Comparison, error) {
	ds, _, err := s.current()
	if err != nil {
		return analytics.Comparison{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	before, err := ds.Original().NumericColumn(column, rows)
	if err != nil {
		return analytics.Comparison{}, err
	}
	after, err := ds.Modified().NumericColumn(column, rows)
	if err != nil {
		return analytics.Comparison{}, err
	}
	c := analytics.Compare(before, after)
	c.Column = column
	return c, nil
}

// Rows returns a window of the modified table, or of the original when
// original is set. A non-positive limit returns every row from offset.
func (s *SessionService) Rows(ctx context.Context, offset, limit int, original bool) (TableView, error) {
	ds, _, err := s.current()
	if err != nil {
		return TableView{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t := ds.Modified()
	if original {
		t = ds.Original()
	}
	total := len(t.Rows)
	if offset < 0 || offset > total {
		return TableView{}, apperrors.NewAppValidationError(apperrors.CodeInvalidSelection,
			fmt.Sprintf("offset %d is outside 0-%d", offset, total), dataset.ErrInvalidSelection)
	}
	end := total - 1
	if limit > 0 && offset+limit-1 < end {
		end = offset + limit - 1
	}
	return viewOf(t, t.Columns, dataset.RowRange{Start: offset, End: end}), nil
}

// Save writes the modified table and returns the path written
func (s *SessionService) Save(ctx context.Context, path string, opts exporter.SaveOptions) (string, error) {
	var saved string
	err := s.run(ctx, "save", func(ctx context.Context) error {
		ds, _, err := s.current()
		if err != nil {
			return err
		}

		s.mu.RLock()
		t := ds.Modified()
		s.mu.RUnlock()

		opts.Source = ds.Path
		saved, err = s.exporter.Save(ctx, path, t, opts)
		if err != nil {
			return err
		}

		if s.metrics != nil {
			s.metrics.FilesSaved.Add(ctx, 1, metric.WithAttributes(
				attribute.String("format", strings.TrimPrefix(filepath.Ext(saved), "."))))
		}
		s.publish(EventDatasetSaved, map[string]interface{}{"path": saved})
		return nil
	})
	return saved, err
}

// ExportChart renders the before/after chart of column over rows
func (s *SessionService) ExportChart(ctx context.Context, path, column string, rows dataset.RowRange, opts exporter.ChartOptions) (ChartResult, error) {
	var result ChartResult
	err := s.run(ctx, "chart", func(ctx context.Context) error {
		ds, _, err := s.current()
		if err != nil {
			return err
		}

		s.mu.RLock()
		spec, err := analytics.BuildChart(ds.Original(), ds.Modified(), column, rows)
		s.mu.RUnlock()
		if err != nil {
			return err
		}

		saved, err := s.exporter.ExportChart(ctx, path, spec, opts)
		if err != nil {
			return err
		}

		result = ChartResult{Path: saved, Kind: spec.Kind, Comparison: spec.Comparison}
		if s.metrics != nil {
			s.metrics.ChartsExport.Add(ctx, 1, metric.WithAttributes(
				attribute.String("format", strings.TrimPrefix(filepath.Ext(saved), ".")),
				attribute.String("chart.kind", string(spec.Kind))))
		}
		s.publish(EventChartExported, result)
		return nil
	})
	return result, err
}

// run executes fn as the single in-flight operation, inside a span, and
// records its metrics
func (s *SessionService) run(ctx context.Context, kind string, fn func(ctx context.Context) error) error {
	if !s.sem.TryAcquire(1) {
		err := apperrors.NewBusyError(ErrOperationRunning).WithContext("operation", kind)
		infrastructure.RecordOperationMetrics(ctx, s.metrics, kind, 0, err)
		return err
	}
	defer s.sem.Release(1)

	ctx, span := s.tracer.Start(ctx, "session."+kind,
		trace.WithAttributes(attribute.String("operation.kind", kind)))
	defer span.End()

	start := time.Now()
	err := ctx.Err()
	if err == nil {
		err = fn(ctx)
	}
	infrastructure.RecordOperationMetrics(ctx, s.metrics, kind, time.Since(start), err)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "Session operation failed",
			slog.String("operation", kind),
			slog.String("category", infrastructure.ErrorCategory(err)),
			slog.String("error", err.Error()))
	}
	return err
}

// current returns the loaded dataset and its history
func (s *SessionService) current() (*dataset.Dataset, *history.Manager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return nil, nil, noDataset()
	}
	return s.dataset, s.history, nil
}

func (s *SessionService) infoLocked() SessionInfo {
	rows, _ := s.dataset.Shape()
	return SessionInfo{
		ID:       s.id,
		Name:     s.dataset.Name,
		Path:     s.dataset.Path,
		Rows:     rows,
		Columns:  s.dataset.Columns(),
		LoadedAt: s.dataset.LoadedAt,
		Modified: s.dataset.IsModified(),
		History:  s.history.Status(),
	}
}

func (s *SessionService) publish(eventType string, data interface{}) {
	if s.publisher != nil {
		s.publisher.Broadcast(eventType, data)
	}
}

func noDataset() error {
	return apperrors.NewStateError(apperrors.CodeNoDataset, "no dataset is loaded", ErrNoDataset)
}

// compareColumns summarizes every selected column before and after
func compareColumns(before, after *dataset.Table, sel dataset.Selection) []analytics.Comparison {
	out := make([]analytics.Comparison, 0, len(sel.Columns))
	for _, name := range sel.Columns {
		b, err := before.NumericColumn(name, sel.Rows)
		if err != nil {
			continue
		}
		a, err := after.NumericColumn(name, sel.Rows)
		if err != nil {
			continue
		}
		c := analytics.Compare(b, a)
		c.Column = name
		out = append(out, c)
	}
	return out
}

func viewOf(t *dataset.Table, columns []string, rows dataset.RowRange) TableView {
	view := TableView{Columns: columns, Offset: rows.Start, Total: len(t.Rows), Rows: [][]interface{}{}}
	if rows.End < rows.Start {
		return view
	}
	idx := make([]int, 0, len(columns))
	for _, name := range columns {
		if i, ok := t.ColumnIndex(name); ok {
			idx = append(idx, i)
		}
	}
	for r := rows.Start; r <= rows.End && r < len(t.Rows); r++ {
		row := make([]interface{}, len(idx))
		for j, i := range idx {
			row[j] = t.Rows[r][i].Value()
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

func changedCells(a, b *dataset.Table, cols int) int {
	n := 0
	for r := range a.Rows {
		for c := 0; c < cols; c++ {
			if a.Rows[r][c] != b.Rows[r][c] {
				n++
			}
		}
	}
	return n
}
