package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/filmcut"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/filmprocess"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/hardcoat"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/instruction"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/lot"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/spincoat"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/entities/product"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/entities/refcode"
	"github.com/hikari-opt/lens-qc/pkg/constants"
	"github.com/hikari-opt/lens-qc/pkg/csvdata"
	"github.com/hikari-opt/lens-qc/pkg/eventbus"
	"github.com/hikari-opt/lens-qc/pkg/serrors"
)

// FeedKind names one of the CSV feeds the plant exports.
type FeedKind string

const (
	FeedLotPrimary    FeedKind = "lot_primary"
	FeedLotStage      FeedKind = "lot_stage"
	FeedFilmCut       FeedKind = "film_cut"
	FeedFilmProcess   FeedKind = "film_process"
	FeedSpinCoat      FeedKind = "spin_coat"
	FeedHardCoat      FeedKind = "hard_coat"
	FeedInstruction   FeedKind = "instruction"
	FeedProductMaster FeedKind = "product_master"
)

var (
	ErrRunFailed     = serrors.NewError("QC_RUN_FAILED", "import run failed", "")
	ErrRowValidation = serrors.NewError("QC_ROW_VALIDATION", "row failed validation", "")
	ErrRowWrite      = serrors.NewError("QC_ROW_WRITE", "row failed to write", "")
)

type ImportRequest struct {
	Path     string   `validate:"required"`
	Kind     FeedKind `validate:"required,oneof=lot_primary lot_stage film_cut film_process spin_coat hard_coat instruction product_master"`
	Encoding string   `validate:"omitempty,oneof=shift_jis utf8"`
}

// RowError records one rejected feed row. Row numbers count data rows
// from 1, headers excluded.
type RowError struct {
	Row     int
	Message string
}

func (e RowError) String() string {
	return fmt.Sprintf("行 %d: %s", e.Row, e.Message)
}

type ImportRunResult struct {
	RunID     uuid.UUID
	Kind      FeedKind
	Rows      int
	Committed int
	Errors    []RowError
	Success   bool
	Message   string
}

func joinRowErrors(errs []RowError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.String()
	}
	return strings.Join(parts, "\n")
}

// ImportServiceOptions wires the repositories each feed writes through.
type ImportServiceOptions struct {
	Lots         lot.Repository
	FilmCuts     filmcut.Repository
	FilmProcess  filmprocess.Repository
	SpinCoats    spincoat.Repository
	HardCoats    hardcoat.Repository
	Instructions instruction.Repository
	Products     product.Repository
	Workers      product.WorkerRepository
	Machines     product.MachineRepository
	RefCodes     refcode.Repository
	State        *ImportStateService
	Publisher    eventbus.EventBus
	Logger       *logrus.Logger
	// DefaultEncoding applies when the request leaves Encoding empty.
	DefaultEncoding string
	// MaxRowErrors aborts a run once this many rows were rejected.
	// Zero means no limit.
	MaxRowErrors int
}

type ImportService struct {
	opts ImportServiceOptions
}

func NewImportService(opts ImportServiceOptions) *ImportService {
	if opts.DefaultEncoding == "" {
		opts.DefaultEncoding = csvdata.EncodingShiftJIS
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &ImportService{opts: opts}
}

// Import runs one feed file through parse, validate, match and write.
// Row failures roll back that row only and are reported in the result;
// run-level failures return an error alongside a failed result.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (ImportRunResult, error) {
	result := ImportRunResult{RunID: uuid.New(), Kind: req.Kind}
	if err := constants.Validate.Struct(req); err != nil {
		result.Message = err.Error()
		return result, ErrRunFailed.WithDetails("invalid import request: %v", err)
	}
	encoding := req.Encoding
	if encoding == "" {
		encoding = s.opts.DefaultEncoding
	}

	f, err := os.Open(req.Path)
	if err != nil {
		result.Message = err.Error()
		return result, ErrRunFailed.WithDetails("open %s: %v", req.Path, err)
	}
	defer f.Close()

	reader, err := csvdata.NewReader(f, encoding)
	if err != nil {
		result.Message = err.Error()
		return result, ErrRunFailed.WithDetails("%v", err)
	}

	log := s.opts.Logger.WithFields(logrus.Fields{
		"run_id": result.RunID,
		"kind":   req.Kind,
		"path":   req.Path,
	})
	log.Info("feed import started")

	switch req.Kind {
	case FeedLotPrimary:
		err = s.importLotPrimary(ctx, reader, &result)
	case FeedLotStage:
		err = s.importLotStage(ctx, reader, &result)
	case FeedFilmCut:
		err = s.importFilmCut(ctx, reader, &result)
	case FeedFilmProcess:
		err = s.importFilmProcess(ctx, reader, &result)
	case FeedSpinCoat:
		err = s.importSpinCoat(ctx, reader, &result)
	case FeedHardCoat:
		err = s.importHardCoat(ctx, reader, &result)
	case FeedInstruction:
		err = s.importInstruction(ctx, reader, &result)
	case FeedProductMaster:
		err = s.importProductMaster(ctx, reader, &result)
	}
	if err != nil {
		result.Success = false
		if result.Message == "" {
			result.Message = err.Error()
		}
		log.WithError(err).Error("feed import failed")
		return result, err
	}

	log.WithFields(logrus.Fields{
		"rows":      result.Rows,
		"committed": result.Committed,
		"errors":    len(result.Errors),
	}).Info("feed import finished")
	return result, nil
}

// rowError appends one rejected row and reports whether the error
// budget is exhausted.
func (s *ImportService) rowError(result *ImportRunResult, row int, format string, args ...any) error {
	result.Errors = append(result.Errors, RowError{Row: row, Message: fmt.Sprintf(format, args...)})
	s.opts.Logger.WithFields(logrus.Fields{
		"run_id": result.RunID,
		"kind":   result.Kind,
		"row":    row,
	}).Debugf(format, args...)
	if s.opts.MaxRowErrors > 0 && len(result.Errors) >= s.opts.MaxRowErrors {
		return ErrRunFailed.WithDetails("row error limit %d reached", s.opts.MaxRowErrors)
	}
	return nil
}

// readRows iterates data rows, tolerating ragged records. Malformed CSV
// lines surface as row errors, not run failures.
func (s *ImportService) readRows(reader *csv.Reader, skipHeader bool, result *ImportRunResult, fn func(row []string, rowNum int) error) error {
	if skipHeader {
		if _, err := reader.Read(); err != nil {
			// An empty file has no data rows either.
			return nil
		}
	}
	rowNum := 0
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			rowNum++
			result.Rows++
			if rErr := s.rowError(result, rowNum, "%v", err); rErr != nil {
				return rErr
			}
			continue
		}
		rowNum++
		result.Rows++
		if err := fn(row, rowNum); err != nil {
			return err
		}
	}
}
