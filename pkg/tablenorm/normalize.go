package tablenorm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ukaji3/tablenorm-go/pkg/logger"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/assemble"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/detect"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/models"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/oracle"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/output"
	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/parser"
)

// sheetJob carries one sheet through the pipeline. Phase 2 touches a job
// from exactly one goroutine.
type sheetJob struct {
	log  models.SheetLog
	grid *models.Grid
	// skip marks jobs that are finished before analysis (failed or empty).
	skip   bool
	tables []regionTable
}

type regionTable struct {
	region     models.SchemaRegion
	headerRows []int
	table      models.NormalizedTable
}

func (j *sheetJob) fail(stage models.Stage, err error) {
	serr := NewSheetError(j.log.Sheet, stage, err)
	j.log.Status = models.StatusError
	j.log.Stage = stage
	j.log.Error = serr.Error()
	j.skip = true
}

type normalizer struct {
	labels  *detect.LabelDetector
	split   *detect.SplitDetector
	headers *detect.HeaderResolver
}

// Normalize reads the workbook at inputPath, normalizes every sheet and
// writes the resulting tables to outputPath. A failing sheet is recorded in
// the returned log and never stops the others; only failures to open the
// input or save the output are returned as errors.
func Normalize(ctx context.Context, inputPath, outputPath string, opts Options) (*models.ProcessingLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	log := opts.Logger
	if log == nil {
		log = logger.FromContext(ctx)
	}

	plog := &models.ProcessingLog{
		RunID:     uuid.NewString(),
		Source:    filepath.Base(inputPath),
		Output:    outputPath,
		StartedAt: time.Now(),
	}
	log = log.With("run_id", plog.RunID)

	f, err := openWorkbook(inputPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Phase 1: the workbook handle is only used from this goroutine.
	sheets := f.GetSheetList()
	jobs := make([]*sheetJob, len(sheets))
	for i, name := range sheets {
		jobs[i] = prepareSheet(f, name, opts, log.With("sheet", name))
	}

	// Phase 2: analysis runs in parallel, one grid per worker.
	n := &normalizer{
		labels:  detect.NewLabelDetector(*opts.Rules, opts.Oracle, opts.OracleLabelRows),
		split:   detect.NewSplitDetector(opts.Oracle, opts.TrimRatio),
		headers: detect.NewHeaderResolver(opts.Oracle, opts.HeaderSeparator),
	}
	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for _, job := range jobs {
		if job.skip {
			continue
		}
		g.Go(func() error {
			n.process(ctx, job, log.With("sheet", job.log.Sheet))
			return nil
		})
	}
	_ = g.Wait()

	// Phase 3: a single writer keeps output order equal to source order.
	w, err := output.NewWriter()
	if err != nil {
		return plog, err
	}
	defer w.Close()
	for _, job := range jobs {
		writeSheet(w, job, log.With("sheet", job.log.Sheet))
		plog.Add(job.log)
	}
	if err := w.SaveAs(outputPath); err != nil {
		return plog, err
	}
	plog.Duration = time.Since(plog.StartedAt)

	log.Info("workbook normalized",
		"sheets", plog.TotalSheets,
		"failed", plog.FailedSheets,
		"split", plog.SplitSheets,
		"rows", plog.TotalRows,
		"duration", plog.Duration)
	return plog, nil
}

func openWorkbook(path string) (*excelize.File, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return f, nil
}

// prepareSheet loads one sheet, expands merges and snapshots formulas.
func prepareSheet(f *excelize.File, name string, opts Options, log logger.Logger) (job *sheetJob) {
	job = &sheetJob{log: models.SheetLog{Sheet: name, HeaderRow: -1}}
	stage := models.StageLoaded
	defer func() {
		if r := recover(); r != nil {
			job.grid = nil
			job.fail(stage, fmt.Errorf("panic: %v", r))
			log.Error("sheet load panicked", "stage", stage, "panic", r)
		}
	}()

	grid, err := parser.LoadGrid(f, name, parser.LoadOptions{MaxCells: opts.MaxCells})
	if err != nil {
		job.fail(models.StageLoaded, err)
		log.Error("load failed", "stage", models.StageLoaded, "error", err)
		return job
	}
	job.log.Stage = models.StageLoaded
	stage = models.StageMergeExpanded

	expanded, merged, err := parser.ExpandMerges(grid)
	if err != nil {
		job.fail(models.StageMergeExpanded, err)
		log.Error("merge expansion failed", "stage", models.StageMergeExpanded, "error", err)
		return job
	}
	job.log.MergedCells = merged
	job.log.Stage = models.StageMergeExpanded
	stage = models.StageFormulaSnapshotted

	stats := parser.SnapshotFormulas(expanded, parser.NewEvaluator(f, name))
	parser.SpreadFormulaAnchors(expanded, grid.Merges)
	job.log.FormulaCells = stats.FormulaCells
	job.log.FormulaFailures = stats.Failures
	job.log.Stage = models.StageFormulaSnapshotted
	if stats.Failures > 0 {
		log.Warn("formula values missing", "failures", stats.Failures)
	}

	trimmed := parser.TrimToBounds(expanded)
	if parser.IsEmptySheet(trimmed) {
		job.log.Status = models.StatusSuccess
		job.skip = true
		log.Info("empty sheet skipped", "cells", trimmed.NonEmptyCount())
		return job
	}
	job.grid = trimmed
	log.Debug("sheet loaded", "rows", trimmed.Height(), "cols", trimmed.Width(), "merged", merged)
	return job
}

// process runs labels, split, headers and assembly for one sheet.
func (n *normalizer) process(ctx context.Context, job *sheetJob, log logger.Logger) {
	stage := models.StageLabelsRemoved
	defer func() {
		if r := recover(); r != nil {
			job.tables = nil
			job.fail(stage, fmt.Errorf("panic: %v", r))
			log.Error("sheet analysis panicked", "stage", stage, "panic", r)
		}
	}()

	labels := n.labels.Detect(ctx, job.grid)
	if labels.OracleErr != nil {
		msg := fmt.Sprintf("row classification oracle %s: %v", oracle.Kind(labels.OracleErr), labels.OracleErr)
		job.log.Warn(msg)
		log.Warn(msg, "stage", stage)
	}
	for _, d := range labels.Decisions {
		log.Debug("row classified", "row", d.Row, "class", d.Class, "rule", d.Rule)
	}
	job.log.SkippedRows = len(labels.Labels)
	job.log.HeaderRow = labels.HeaderRow
	grid := job.grid.DropRows(labels.Labels)
	job.log.Stage = stage

	stage = models.StageSplit
	split := n.split.Detect(ctx, grid)
	for _, msg := range split.Warnings {
		job.log.Warn(msg)
		log.Warn(msg, "stage", stage)
	}
	job.log.SchemaRegions = len(split.Regions)
	job.log.TrimmedRows = split.TrimmedRows
	job.log.Stage = stage

	stage = models.StageHeadersResolved
	subs := make([]*models.Grid, len(split.Regions))
	resolved := make([]detect.HeaderResult, len(split.Regions))
	for i, region := range split.Regions {
		subs[i] = grid.Slice(region.StartRow, region.EndRow)
		resolved[i] = n.headers.Resolve(ctx, subs[i], region.HeaderRow-region.StartRow)
		if msg := resolved[i].Warning; msg != "" {
			job.log.Warn(msg)
			log.Warn(msg, "stage", stage, "region", i)
		}
	}
	job.log.Stage = stage

	stage = models.StageAssembled
	for i, region := range split.Regions {
		res, err := assemble.Assemble("", subs[i], resolved[i].Plan, resolved[i].DataStart)
		if err != nil {
			job.tables = nil
			job.fail(stage, fmt.Errorf("region %d: %w", i, err))
			log.Error("assembly failed", "stage", stage, "region", i, "error", err)
			return
		}
		headerRows := make([]int, len(resolved[i].Plan.HeaderRows))
		for k, r := range resolved[i].Plan.HeaderRows {
			headerRows[k] = region.StartRow + r
		}
		region.Plan = resolved[i].Plan
		job.tables = append(job.tables, regionTable{region: region, headerRows: headerRows, table: res.Table})
		log.Debug("region assembled",
			"region", i,
			"rows", len(res.Table.Rows),
			"cols", len(res.Table.Columns),
			"dropped_rows", res.DroppedRows,
			"dropped_cols", res.DroppedColumns,
			"renamed", res.RenamedColumns,
			"filled", res.FilledCells)
	}
	job.log.Stage = stage
}

// writeSheet appends the sheet's tables to the output workbook. A sheet whose
// tables cannot all be written leaves none of them behind.
func writeSheet(w *output.Writer, job *sheetJob, log logger.Logger) {
	if job.log.Status == models.StatusError || job.grid == nil {
		return
	}
	var written []string
	defer func() {
		if r := recover(); r != nil {
			job.abortWrite(w, written, fmt.Errorf("panic: %v", r), log)
		}
	}()

	total := len(job.tables)
	for i := range job.tables {
		if err := output.CheckTable(job.tables[i].table); err != nil {
			job.abortWrite(w, nil, fmt.Errorf("region %d: %w", i, err), log)
			return
		}
	}

	regions := make([]models.RegionLog, 0, total)
	rows, cols := 0, 0
	for i, rt := range job.tables {
		rt.table.Name = w.Reserve(output.RegionSheetName(job.log.Sheet, i, total, rt.region.Description))
		if err := w.WriteTable(rt.table); err != nil {
			job.abortWrite(w, written, err, log)
			return
		}
		written = append(written, rt.table.Name)
		regions = append(regions, models.RegionLog{
			OutputSheet: rt.table.Name,
			StartRow:    rt.region.StartRow,
			EndRow:      rt.region.EndRow,
			HeaderRows:  rt.headerRows,
			Description: rt.region.Description,
			Rows:        len(rt.table.Rows),
			Columns:     len(rt.table.Columns),
		})
		rows += len(rt.table.Rows)
		cols = max(cols, len(rt.table.Columns))
	}
	job.log.Regions = regions
	job.log.Rows = rows
	job.log.Columns = cols
	job.log.Status = models.StatusSuccess
	job.log.Stage = models.StageWritten
	log.Info("sheet normalized", "tables", total, "rows", rows, "skipped_rows", job.log.SkippedRows)
}

// abortWrite marks the sheet failed at the write stage and removes the
// tables already written for it.
func (j *sheetJob) abortWrite(w *output.Writer, written []string, err error, log logger.Logger) {
	if derr := w.Discard(written...); derr != nil {
		log.Warn("discard partial output failed", "error", derr)
	}
	j.fail(models.StageWritten, err)
	log.Error("write failed", "stage", models.StageWritten, "error", err)
}
