package services

import (
	"context"
	"encoding/csv"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/instruction"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/entities/product"
	"github.com/hikari-opt/lens-qc/modules/qc/infrastructure/persistence"
	"github.com/hikari-opt/lens-qc/pkg/composables"
	"github.com/hikari-opt/lens-qc/pkg/csvdata"
)

// Instruction feed column offsets.
const (
	colInstrProduct = 1
	colInstrDate    = 2
	colInstrQty     = 13
)

func (s *ImportService) importInstruction(ctx context.Context, reader *csv.Reader, result *ImportRunResult) error {
	err := s.readRows(reader, true, result, func(row []string, rowNum int) error {
		productID := csvdata.Field(row, colInstrProduct)
		date := csvdata.ParseDate(csvdata.Field(row, colInstrDate))
		if productID == "" || date == nil {
			return s.rowError(result, rowNum, "品種または指示日が不正です")
		}
		record := &instruction.Record{
			ProductID: productID,
			Date:      *date,
			Qty:       csvdata.ParseFloat(csvdata.Field(row, colInstrQty)),
		}
		var created bool
		err := composables.InTx(ctx, func(txCtx context.Context) error {
			var err error
			created, err = s.opts.Instructions.CreateIfAbsent(txCtx, record)
			return err
		})
		if err != nil {
			return s.rowError(result, rowNum, "%v", ErrRowWrite.WithDetails("%v", err))
		}
		if created {
			result.Committed++
		}
		return nil
	})
	if err != nil {
		return err
	}
	result.Success = len(result.Errors) == 0
	result.Message = "データのインポートが完了しました"
	return nil
}

// Product master feed column offsets.
const (
	colProductID    = 0
	colProductKind  = 1
	colProductType  = 2
	colProductName  = 3
	colProductColor = 4
	colProductDays  = 5
)

func (s *ImportService) importProductMaster(ctx context.Context, reader *csv.Reader, result *ImportRunResult) error {
	var added, updated int
	err := s.readRows(reader, false, result, func(row []string, rowNum int) error {
		id := csvdata.Field(row, colProductID)
		if id == "" {
			return s.rowError(result, rowNum, "品種コードが空です")
		}
		err := composables.InTx(ctx, func(txCtx context.Context) error {
			existing, err := s.opts.Products.GetByID(txCtx, id)
			switch {
			case errors.Is(err, persistence.ErrProductNotFound):
				p := &product.Product{ID: id}
				applyProductRow(p, row)
				if err := s.opts.Products.Save(txCtx, p); err != nil {
					return err
				}
				added++
				return nil
			case err != nil:
				return err
			default:
				applyProductRow(existing, row)
				if err := s.opts.Products.Save(txCtx, existing); err != nil {
					return err
				}
				updated++
				return nil
			}
		})
		if err != nil {
			return s.rowError(result, rowNum, "%v", ErrRowWrite.WithDetails("product %s: %v", id, err))
		}
		result.Committed++
		return nil
	})
	if err != nil {
		return err
	}

	result.Success = len(result.Errors) == 0
	result.Message = fmt.Sprintf("データのインポートが完了しました。新規追加: %d件、更新: %d件", added, updated)
	if n := len(result.Errors); n > 0 {
		result.Message += fmt.Sprintf("、エラー: %d件", n)
	}
	return nil
}

// applyProductRow merges non-empty feed cells into p. Blank cells leave
// the stored value alone, so partial master extracts stay safe to load.
func applyProductRow(p *product.Product, row []string) {
	if v := csvdata.Field(row, colProductKind); v != "" {
		kind := csvdata.ParseInt(v)
		p.Kind = &kind
	}
	if v := csvdata.Field(row, colProductType); v != "" {
		p.MonomerType = v
	}
	if v := csvdata.Field(row, colProductName); v != "" {
		p.Name = v
	}
	if v := csvdata.Field(row, colProductColor); v != "" {
		p.Color = v
	}
	if v := csvdata.Field(row, colProductDays); v != "" {
		days := csvdata.ParseInt(v)
		p.PolymerizeDays = &days
	}
}
