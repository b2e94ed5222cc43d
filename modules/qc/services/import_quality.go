package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/filmcut"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/filmprocess"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/hardcoat"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/spincoat"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/entities/refcode"
	"github.com/hikari-opt/lens-qc/pkg/composables"
	"github.com/hikari-opt/lens-qc/pkg/csvdata"
)

const (
	filmCutMinColumns     = 30
	filmProcessMinColumns = 24
	spinCoatMinColumns    = 42
	hardCoatMinColumns    = 37
)

func (s *ImportService) loadResolver(ctx context.Context) (*refcode.Resolver, error) {
	codes, err := s.opts.RefCodes.GetAll(ctx)
	if err != nil {
		return nil, ErrRunFailed.WithDetails("load reference codes: %v", err)
	}
	return refcode.NewResolver(codes), nil
}

func finishUpsertFeed(result *ImportRunResult) {
	if len(result.Errors) > 0 {
		result.Success = false
		result.Message = joinRowErrors(result.Errors)
		return
	}
	result.Success = true
	result.Message = fmt.Sprintf("%d件のデータをインポート/更新しました。", result.Committed)
}

// resolveLenient maps a name to its code; unknown names are reported as
// a row error but the row still imports with the code left NULL.
func (s *ImportService) resolveLenient(resolver *refcode.Resolver, domain refcode.Domain, label, name string, result *ImportRunResult, rowNum int) (*int, error) {
	if name == "" {
		return nil, nil
	}
	id, ok := resolver.Resolve(domain, name)
	if !ok {
		return nil, s.rowError(result, rowNum, "%sの「%s」が見つかりません", label, name)
	}
	return &id, nil
}

// resolveStrict maps a name to its code; empty names fall back to code 0
// and unknown names reject the row.
func (s *ImportService) resolveStrict(resolver *refcode.Resolver, domain refcode.Domain, label, name string, result *ImportRunResult, rowNum int) (int, bool, error) {
	if name == "" {
		return 0, true, nil
	}
	id, ok := resolver.Resolve(domain, name)
	if !ok {
		return 0, false, s.rowError(result, rowNum, "%sの「%s」が見つかりません", label, name)
	}
	return id, true, nil
}

func (s *ImportService) importFilmCut(ctx context.Context, reader *csv.Reader, result *ImportRunResult) error {
	resolver, err := s.loadResolver(ctx)
	if err != nil {
		return err
	}

	err = s.readRows(reader, true, result, func(row []string, rowNum int) error {
		if len(row) < filmCutMinColumns {
			return s.rowError(result, rowNum, "列数が不足しています (%d列)", len(row))
		}
		if csvdata.Field(row, 0) == "" {
			return s.rowError(result, rowNum, "カット日が空です")
		}
		cutDate := csvdata.ParseDate(csvdata.Field(row, 0))
		if cutDate == nil {
			return s.rowError(result, rowNum, "カット日の形式が不正です")
		}

		monomer, err := s.resolveLenient(resolver, refcode.DomainMonomer, "モノマー", csvdata.Field(row, 2), result, rowNum)
		if err != nil {
			return err
		}
		item, err := s.resolveLenient(resolver, refcode.DomainCutItem, "アイテム", csvdata.Field(row, 5), result, rowNum)
		if err != nil {
			return err
		}
		cutMenu, err := s.resolveLenient(resolver, refcode.DomainCutMenu, "カットメニュー", csvdata.Field(row, 6), result, rowNum)
		if err != nil {
			return err
		}
		curve, err := s.resolveLenient(resolver, refcode.DomainFilmCurve, "膜カーブ", csvdata.Field(row, 10), result, rowNum)
		if err != nil {
			return err
		}
		color, err := s.resolveLenient(resolver, refcode.DomainFilmColor, "色", csvdata.Field(row, 11), result, rowNum)
		if err != nil {
			return err
		}

		record := &filmcut.Record{
			CutDate:      cutDate,
			R1InjectDate: csvdata.ParseDate(csvdata.Field(row, 1)),
			Monomer:      monomer,
			AnnealNo:     csvdata.ParseFloat(csvdata.Field(row, 3)),
			CutMachineNo: csvdata.ParseFloat(csvdata.Field(row, 4)),
			Item:         item,
			CutMenu:      cutMenu,
			FilmProcDate: csvdata.ParseDate(csvdata.Field(row, 7)),
			CRFilm:       csvdata.ParseFloat(csvdata.Field(row, 8)),
			HeatProcDate: csvdata.ParseDate(csvdata.Field(row, 9)),
			FilmCurve:    curve,
			Color:        color,
			InputQty:     csvdata.ParseFloat(csvdata.Field(row, 12)),
			CutForeign:   csvdata.ParseFloat(csvdata.Field(row, 13)),
			CutWrinkle:   csvdata.ParseFloat(csvdata.Field(row, 14)),
			CutWave:      csvdata.ParseFloat(csvdata.Field(row, 15)),
			CutErr:       csvdata.ParseFloat(csvdata.Field(row, 16)),
			CutCrack:     csvdata.ParseFloat(csvdata.Field(row, 17)),
			CutScratch:   csvdata.ParseFloat(csvdata.Field(row, 18)),
			CutOthers:    csvdata.ParseFloat(csvdata.Field(row, 19)),
			GoodQty:      csvdata.ParseFloat(csvdata.Field(row, 20)),
			WashWrinkle:  csvdata.ParseFloat(csvdata.Field(row, 21)),
			WashScratch:  csvdata.ParseFloat(csvdata.Field(row, 22)),
			WashForeign:  csvdata.ParseFloat(csvdata.Field(row, 23)),
			WashAcetone:  csvdata.ParseFloat(csvdata.Field(row, 24)),
			WashErr:      csvdata.ParseFloat(csvdata.Field(row, 25)),
			WashCutErr:   csvdata.ParseFloat(csvdata.Field(row, 26)),
			WashOthers:   csvdata.ParseFloat(csvdata.Field(row, 27)),
			PassQty:      csvdata.ParseFloat(csvdata.Field(row, 28)),
			Month:        csvdata.ParseFloat(strings.ReplaceAll(csvdata.Field(row, 29), "月", "")),
		}

		err = composables.InTx(ctx, func(txCtx context.Context) error {
			return s.opts.FilmCuts.Save(txCtx, record)
		})
		if err != nil {
			return s.rowError(result, rowNum, "%v", ErrRowWrite.WithDetails("%v", err))
		}
		result.Committed++
		return nil
	})
	if err != nil {
		return err
	}
	finishUpsertFeed(result)
	return nil
}

func (s *ImportService) importFilmProcess(ctx context.Context, reader *csv.Reader, result *ImportRunResult) error {
	resolver, err := s.loadResolver(ctx)
	if err != nil {
		return err
	}

	err = s.readRows(reader, false, result, func(row []string, rowNum int) error {
		if len(row) < filmProcessMinColumns {
			return s.rowError(result, rowNum, "列数が不足しています (%d列)", len(row))
		}
		color, err := s.resolveLenient(resolver, refcode.DomainFilmColor, "色", csvdata.Field(row, 2), result, rowNum)
		if err != nil {
			return err
		}
		curve, err := s.resolveLenient(resolver, refcode.DomainFilmCurve, "膜カーブ", csvdata.Field(row, 5), result, rowNum)
		if err != nil {
			return err
		}

		record := &filmprocess.Record{
			InspectDate:     csvdata.ParseDate(csvdata.Field(row, 0)),
			ProcessDate:     csvdata.ParseDate(csvdata.Field(row, 1)),
			Color:           color,
			PVALotNo:        csvdata.ParseFloat(csvdata.Field(row, 3)),
			Note:            csvdata.Field(row, 4),
			FilmCurve:       curve,
			ProcessedSheets: csvdata.ParseFloat(csvdata.Field(row, 6)),
			WrinkleA:        csvdata.ParseFloat(csvdata.Field(row, 7)),
			WrinkleB:        csvdata.ParseFloat(csvdata.Field(row, 8)),
			Tear:            csvdata.ParseFloat(csvdata.Field(row, 9)),
			Foreign:         csvdata.ParseFloat(csvdata.Field(row, 10)),
			Fiber:           csvdata.ParseFloat(csvdata.Field(row, 11)),
			Scratch:         csvdata.ParseFloat(csvdata.Field(row, 12)),
			Hole:            csvdata.ParseFloat(csvdata.Field(row, 13)),
			PrimaryOthers:   csvdata.ParseFloat(csvdata.Field(row, 14)),
			PrimaryGoodQty:  csvdata.ParseFloat(csvdata.Field(row, 15)),
			ColorFade:       csvdata.ParseFloat(csvdata.Field(row, 16)),
			ColorIrregular:  csvdata.ParseFloat(csvdata.Field(row, 17)),
			DyeStreak:       csvdata.ParseFloat(csvdata.Field(row, 18)),
			Dirt:            csvdata.ParseFloat(csvdata.Field(row, 19)),
			Others:          csvdata.ParseFloat(csvdata.Field(row, 20)),
			GradeA:          csvdata.ParseFloat(csvdata.Field(row, 21)),
			GradeB:          csvdata.ParseFloat(csvdata.Field(row, 22)),
			GradeC:          csvdata.ParseFloat(csvdata.Field(row, 23)),
		}

		err = composables.InTx(ctx, func(txCtx context.Context) error {
			return s.opts.FilmProcess.Save(txCtx, record)
		})
		if err != nil {
			return s.rowError(result, rowNum, "%v", ErrRowWrite.WithDetails("%v", err))
		}
		result.Committed++
		return nil
	})
	if err != nil {
		return err
	}
	finishUpsertFeed(result)
	return nil
}

func (s *ImportService) importSpinCoat(ctx context.Context, reader *csv.Reader, result *ImportRunResult) error {
	resolver, err := s.loadResolver(ctx)
	if err != nil {
		return err
	}

	err = s.readRows(reader, true, result, func(row []string, rowNum int) error {
		if len(row) < spinCoatMinColumns {
			return s.rowError(result, rowNum, "列数が不足しています (%d列)", len(row))
		}
		coatType, ok, err := s.resolveStrict(resolver, refcode.DomainSpinCoatType, "種別", csvdata.Field(row, 3), result, rowNum)
		if err != nil || !ok {
			return err
		}
		name1, ok, err := s.resolveStrict(resolver, refcode.DomainSpinCoatName, "名称1", csvdata.Field(row, 4), result, rowNum)
		if err != nil || !ok {
			return err
		}
		coatColor, ok, err := s.resolveStrict(resolver, refcode.DomainSpinCoatColor, "コート色", csvdata.Field(row, 7), result, rowNum)
		if err != nil || !ok {
			return err
		}

		record := &spincoat.Record{
			CoatDate:        csvdata.ParseDate(csvdata.Field(row, 0)),
			Instruction:     csvdata.ParseFloat(csvdata.Field(row, 1)),
			BranchNo:        csvdata.Field(row, 2),
			Type:            coatType,
			Name1:           name1,
			Name2:           csvdata.Field(row, 5),
			RefIndex:        csvdata.ParseFloat(csvdata.Field(row, 6)),
			CoatColor:       coatColor,
			Machine:         csvdata.ParseFloat(csvdata.Field(row, 8)),
			Times:           csvdata.ParseFloat(csvdata.Field(row, 9)),
			Sheets:          csvdata.ParseFloat(csvdata.Field(row, 12)),
			PreBlackDust:    csvdata.ParseFloat(csvdata.Field(row, 13)),
			PreWhiteDust:    csvdata.ParseFloat(csvdata.Field(row, 14)),
			PreEdgeFail:     csvdata.ParseFloat(csvdata.Field(row, 15)),
			PreCoatFail:     csvdata.ParseFloat(csvdata.Field(row, 16)),
			PreDarkSpot:     csvdata.ParseFloat(csvdata.Field(row, 17)),
			PreSnail:        csvdata.ParseFloat(csvdata.Field(row, 18)),
			PreMist:         csvdata.ParseFloat(csvdata.Field(row, 19)),
			PreWrinkle:      csvdata.ParseFloat(csvdata.Field(row, 20)),
			PreBarrelBub:    csvdata.ParseFloat(csvdata.Field(row, 21)),
			PreStick:        csvdata.ParseFloat(csvdata.Field(row, 22)),
			PreTrouble:      csvdata.ParseFloat(csvdata.Field(row, 23)),
			PreBaseFail:     csvdata.ParseFloat(csvdata.Field(row, 24)),
			PreGoodQty:      csvdata.ParseFloat(csvdata.Field(row, 25)),
			PreNote:         csvdata.Field(row, 26),
			PostInspectDate: csvdata.ParseDate(csvdata.Field(row, 27)),
			PostScratch:     csvdata.ParseFloat(csvdata.Field(row, 28)),
			PostCoatFail:    csvdata.ParseFloat(csvdata.Field(row, 29)),
			PostSnail:       csvdata.ParseFloat(csvdata.Field(row, 30)),
			PostDarkSpot:    csvdata.ParseFloat(csvdata.Field(row, 31)),
			PostWrinkle:     csvdata.ParseFloat(csvdata.Field(row, 32)),
			PostBubble:      csvdata.ParseFloat(csvdata.Field(row, 33)),
			PostEdgeFail:    csvdata.ParseFloat(csvdata.Field(row, 34)),
			PostWhiteDust:   csvdata.ParseFloat(csvdata.Field(row, 35)),
			PostBlackDust:   csvdata.ParseFloat(csvdata.Field(row, 36)),
			PostStick:       csvdata.ParseFloat(csvdata.Field(row, 37)),
			PostPrimerStick: csvdata.ParseFloat(csvdata.Field(row, 38)),
			PostBaseFail:    csvdata.ParseFloat(csvdata.Field(row, 39)),
			PostOthers:      csvdata.ParseFloat(csvdata.Field(row, 40)),
			FinalGoodQty:    csvdata.ParseFloat(csvdata.Field(row, 41)),
		}

		err = composables.InTx(ctx, func(txCtx context.Context) error {
			return s.opts.SpinCoats.Save(txCtx, record)
		})
		if err != nil {
			return s.rowError(result, rowNum, "%v", ErrRowWrite.WithDetails("%v", err))
		}
		result.Committed++
		return nil
	})
	if err != nil {
		return err
	}
	finishUpsertFeed(result)
	return nil
}

func (s *ImportService) importHardCoat(ctx context.Context, reader *csv.Reader, result *ImportRunResult) error {
	resolver, err := s.loadResolver(ctx)
	if err != nil {
		return err
	}

	err = s.readRows(reader, true, result, func(row []string, rowNum int) error {
		if len(row) < hardCoatMinColumns {
			return s.rowError(result, rowNum, "列数が不足しています (%d列)", len(row))
		}
		coatType, ok, err := s.resolveStrict(resolver, refcode.DomainHardCoatType, "種別", csvdata.Field(row, 8), result, rowNum)
		if err != nil || !ok {
			return err
		}
		color, ok, err := s.resolveStrict(resolver, refcode.DomainHardCoatColor, "色", csvdata.Field(row, 13), result, rowNum)
		if err != nil || !ok {
			return err
		}

		record := &hardcoat.Record{
			CoatDate:       csvdata.ParseDate(csvdata.Field(row, 0)),
			Times:          csvdata.ParseFloat(csvdata.Field(row, 7)),
			Type:           coatType,
			Base:           csvdata.ParseFloat(csvdata.Field(row, 10)),
			AddPower:       csvdata.ParseFloat(csvdata.Field(row, 11)),
			LR:             csvdata.Field(row, 12),
			Color:          color,
			CoatCount:      csvdata.ParseFloat(csvdata.Field(row, 14)),
			PreForeign:     csvdata.ParseFloat(csvdata.Field(row, 15)),
			PreDrop:        csvdata.ParseFloat(csvdata.Field(row, 16)),
			PreChip:        csvdata.ParseFloat(csvdata.Field(row, 17)),
			PreStreak:      csvdata.ParseFloat(csvdata.Field(row, 18)),
			PreOthers:      csvdata.ParseFloat(csvdata.Field(row, 19)),
			TransBaseFail:  csvdata.ParseFloat(csvdata.Field(row, 20)),
			TransForeign:   csvdata.ParseFloat(csvdata.Field(row, 21)),
			TransInclusion: csvdata.ParseFloat(csvdata.Field(row, 22)),
			TransScratch:   csvdata.ParseFloat(csvdata.Field(row, 23)),
			TransCoatFail:  csvdata.ParseFloat(csvdata.Field(row, 24)),
			TransDrop:      csvdata.ParseFloat(csvdata.Field(row, 25)),
			TransStreak:    csvdata.ParseFloat(csvdata.Field(row, 26)),
			TransDirt:      csvdata.ParseFloat(csvdata.Field(row, 27)),
			TransChip:      csvdata.ParseFloat(csvdata.Field(row, 28)),
			ProjBase:       csvdata.ParseFloat(csvdata.Field(row, 29)),
			ProjForeign:    csvdata.ParseFloat(csvdata.Field(row, 30)),
			ProjDust:       csvdata.ParseFloat(csvdata.Field(row, 31)),
			ProjScratch:    csvdata.ParseFloat(csvdata.Field(row, 32)),
			ProjDrop:       csvdata.ParseFloat(csvdata.Field(row, 33)),
			ProjChip:       csvdata.ParseFloat(csvdata.Field(row, 34)),
			ProjStreak:     csvdata.ParseFloat(csvdata.Field(row, 35)),
			PassQty:        csvdata.ParseFloat(csvdata.Field(row, 36)),
		}

		err = composables.InTx(ctx, func(txCtx context.Context) error {
			return s.opts.HardCoats.Save(txCtx, record)
		})
		if err != nil {
			return s.rowError(result, rowNum, "%v", ErrRowWrite.WithDetails("%v", err))
		}
		result.Committed++
		return nil
	})
	if err != nil {
		return err
	}
	finishUpsertFeed(result)
	return nil
}
