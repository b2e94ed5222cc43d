package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/lot"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/defect"
	"github.com/hikari-opt/lens-qc/modules/qc/infrastructure/persistence"
	"github.com/hikari-opt/lens-qc/pkg/composables"
	"github.com/hikari-opt/lens-qc/pkg/csvdata"
)

const (
	lotPrimaryMinColumns = 89
	lotStageMinColumns   = 13

	msgUnreadable = "データが読み込めませんでした。CSVファイルの形式を確認してください。"
)

// Column offsets of the primary lot feed.
const (
	colLotNo        = 0
	colR1InDate     = 1
	colR1Tank       = 2
	colR2Tank       = 3
	colMonomerBatch = 4
	colR2Injector   = 5
	colFilmDate     = 6
	colR1Injector   = 7
	colInjectQty    = 12
	colDefectBase   = 13
	colAGrade       = 74
	colBGrade       = 75
	colR1InComment  = 76
	colR1ChkComment = 77
	colR2InComment  = 78
	colReleaseCmt   = 79
	colReleaseBy    = 80
	colAnnealBy     = 81
	colChk1By       = 82
	colChk2By       = 83
	colChk3By       = 84
	colR1GoodCnt    = 87
	colAnnealTank   = 88
)

func (s *ImportService) importLotPrimary(ctx context.Context, reader *csv.Reader, result *ImportRunResult) error {
	workerIDs, machineIDs, err := s.loadResolutionMaps(ctx)
	if err != nil {
		return ErrRunFailed.WithDetails("load master maps: %v", err)
	}

	var superseded []string
	queueSupersede := func(key string) {
		for _, q := range superseded {
			if q == key {
				return
			}
		}
		superseded = append(superseded, key)
	}

	parsed := 0
	err = s.readRows(reader, false, result, func(row []string, rowNum int) error {
		if len(row) < lotPrimaryMinColumns {
			return nil
		}
		parsed++
		lotNo := csvdata.Field(row, colLotNo)
		prefix := strings.SplitN(lotNo, "-", 2)[0]

		var productID string
		switch len(prefix) {
		case 10:
			productID = headOf(lotNo, 4)
			if len(lotNo) > 13 {
				queueSupersede(lotNo[:13])
			}
		case 11:
			productID = headOf(lotNo, 5)
			if len(lotNo) > 14 {
				queueSupersede(lotNo[:14])
			}
		default:
			return s.rowError(result, rowNum, "ロットNoの形式が不正です: %s", lotNo)
		}

		record := s.parsePrimaryRow(row, lotNo, productID, workerIDs, machineIDs)
		err := composables.InTx(ctx, func(txCtx context.Context) error {
			p, err := s.opts.Products.GetByID(txCtx, productID)
			switch {
			case err == nil:
				record.MonomerType = p.MonomerType
			case errors.Is(err, persistence.ErrProductNotFound):
				// The lot prefix stays authoritative for unknown products.
			default:
				return err
			}
			return s.opts.Lots.Upsert(txCtx, record)
		})
		if err != nil {
			return s.rowError(result, rowNum, "%v", ErrRowWrite.WithDetails("lot %s: %v", lotNo, err))
		}
		result.Committed++
		return nil
	})
	if err != nil {
		return err
	}

	// Rows that never clear the column gate are as unreadable as an
	// empty file.
	if parsed == 0 {
		result.Success = false
		result.Message = msgUnreadable
		return nil
	}

	for _, key := range superseded {
		key := key
		err := composables.InTx(ctx, func(txCtx context.Context) error {
			return s.opts.Lots.Delete(txCtx, key)
		})
		if err != nil {
			return ErrRunFailed.WithDetails("supersede delete %s: %v", key, err)
		}
	}

	now := time.Now()
	if err := s.opts.State.Touch(ctx, now); err != nil {
		return ErrRunFailed.WithDetails("record import time: %v", err)
	}
	if s.opts.Publisher != nil {
		s.opts.Publisher.Publish(lot.ImportedEvent{
			RunID:      result.RunID,
			Rows:       result.Committed,
			ImportedAt: now,
		})
	}

	result.Success = true
	result.Message = fmt.Sprintf("%d件のデータをインポートしました。", result.Committed)
	return nil
}

func headOf(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func (s *ImportService) parsePrimaryRow(row []string, lotNo, productID string, workerIDs, machineIDs map[string]int) *lot.Record {
	// The R2 injector cell sometimes carries a comma-joined pair; the
	// first name wins.
	r2Name := strings.SplitN(csvdata.Field(row, colR2Injector), ",", 2)[0]

	record := &lot.Record{
		LotNo:          lotNo,
		ProductID:      productID,
		MonomerType:    headOf(lotNo, 1),
		R1InDate:       csvdata.ParseDate(csvdata.Field(row, colR1InDate)),
		R1Tank:         lookupID(machineIDs, csvdata.Field(row, colR1Tank)),
		R2Tank:         lookupID(machineIDs, csvdata.Field(row, colR2Tank)),
		MonomerBatch:   csvdata.Field(row, colMonomerBatch),
		R2Injector:     lookupID(workerIDs, r2Name),
		FilmDate:       csvdata.ParseDate(csvdata.Field(row, colFilmDate)),
		R1Injector:     lookupID(workerIDs, csvdata.Field(row, colR1Injector)),
		InjectQty:      csvdata.ParseFloat(csvdata.Field(row, colInjectQty)),
		AGrade:         csvdata.ParseFloat(csvdata.Field(row, colAGrade)),
		BGrade:         csvdata.ParseFloat(csvdata.Field(row, colBGrade)),
		R1InComment:    csvdata.Field(row, colR1InComment),
		R1ChkComment:   csvdata.Field(row, colR1ChkComment),
		R2InComment:    csvdata.Field(row, colR2InComment),
		ReleaseComment: csvdata.Field(row, colReleaseCmt),
		ReleaseBy:      lookupID(workerIDs, csvdata.Field(row, colReleaseBy)),
		AnnealBy:       lookupID(workerIDs, csvdata.Field(row, colAnnealBy)),
		Chk1By:         lookupID(workerIDs, csvdata.Field(row, colChk1By)),
		Chk2By:         lookupID(workerIDs, csvdata.Field(row, colChk2By)),
		Chk3By:         lookupID(workerIDs, csvdata.Field(row, colChk3By)),
		R1GoodCnt:      csvdata.ParseFloat(csvdata.Field(row, colR1GoodCnt)),
		AnnealTank:     lookupID(machineIDs, csvdata.Field(row, colAnnealTank)),
		Defects:        make(defect.Counts, len(defect.Fields)),
	}
	for i, f := range defect.Fields {
		record.Defects.Set(f, csvdata.ParseFloat(csvdata.Field(row, colDefectBase+i)))
	}
	return record
}

// lookupID resolves a master name; unresolved names stay NULL.
func lookupID(ids map[string]int, name string) *int {
	if id, ok := ids[name]; ok {
		return &id
	}
	return nil
}

func (s *ImportService) loadResolutionMaps(ctx context.Context) (map[string]int, map[string]int, error) {
	workers, err := s.opts.Workers.List(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "list workers")
	}
	machines, err := s.opts.Machines.List(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "list machines")
	}
	workerIDs := make(map[string]int, len(workers))
	for _, w := range workers {
		workerIDs[w.Name] = w.ID
	}
	machineIDs := make(map[string]int, len(machines))
	for _, m := range machines {
		machineIDs[m.Name] = m.ID
	}
	return workerIDs, machineIDs, nil
}

// Stage feed column offsets.
const (
	colStageDate    = 0
	colStageLotNo   = 1
	colStageCode    = 10
	colStageR2Qty   = 12
	colStageR2Stamp = 15
)

func (s *ImportService) importLotStage(ctx context.Context, reader *csv.Reader, result *ImportRunResult) error {
	parsed := 0
	err := s.readRows(reader, true, result, func(row []string, rowNum int) error {
		if len(row) < lotStageMinColumns {
			return nil
		}
		parsed++
		lotNo := csvdata.Field(row, colStageLotNo)
		code := csvdata.Field(row, colStageCode)

		// An unparseable date still writes its column, as NULL.
		update := lot.StageUpdate{Date: csvdata.ParseDate(csvdata.Field(row, colStageDate))}
		switch code {
		case "2":
			update.Stage = lot.StageR1Polymerize
		case "3":
			update.Stage = lot.StageR1Inspect
		case "4":
			update.Stage = lot.StageR2Inject
			update.R2Qty = csvdata.ParseFloat(csvdata.Field(row, colStageR2Qty))
			update.R2Timestamp = csvdata.ParseDateTime(csvdata.Field(row, colStageR2Stamp))
		case "5":
			update.Stage = lot.StageR2Polymerize
		case "6":
			update.Stage = lot.StageRelease
		case "7":
			update.Stage = lot.StageAnneal
		case "8":
			update.Stage = lot.StageFirstInspect
		case "9":
			update.Stage = lot.StageSecondInspect
		case "10":
			update.Stage = lot.StageFinalCheck
		default:
			// Unknown process codes are dropped, not errored.
			s.opts.Logger.Debugf("stage feed row %d: unknown process code %q dropped", rowNum, code)
			return nil
		}

		var affected int64
		err := composables.InTx(ctx, func(txCtx context.Context) error {
			var err error
			affected, err = s.opts.Lots.ApplyStage(txCtx, lotNo, update)
			return err
		})
		if err != nil {
			return s.rowError(result, rowNum, "%v", ErrRowWrite.WithDetails("lot %s stage %s: %v", lotNo, code, err))
		}
		if affected == 0 {
			s.opts.Logger.Debugf("stage feed row %d: lot %s not on file", rowNum, lotNo)
		}
		result.Committed++
		return nil
	})
	if err != nil {
		return err
	}

	if parsed == 0 {
		result.Success = false
		result.Message = msgUnreadable
		return nil
	}
	result.Success = true
	result.Message = fmt.Sprintf("%d件のデータをインポートしました。", result.Committed)
	return nil
}
