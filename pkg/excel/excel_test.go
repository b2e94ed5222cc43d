package excel

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExporter_Export(t *testing.T) {
	ds := &SliceDataSource{
		Name: "不良率",
		Cols: []string{"項目", "数量", "不良率"},
		Values: [][]any{
			{"巻きミス", 3, 3.0},
			{"モレ", 1, 1.0},
		},
	}

	data, err := NewExporter(DefaultOptions()).Export(context.Background(), ds)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	v, err := f.GetCellValue("不良率", "A1")
	require.NoError(t, err)
	require.Equal(t, "項目", v)

	v, err = f.GetCellValue("不良率", "B2")
	require.NoError(t, err)
	require.Equal(t, "3", v)
}

func TestExporter_LongSheetNameTruncated(t *testing.T) {
	ds := &SliceDataSource{
		Name:   "0123456789012345678901234567890123456789",
		Cols:   []string{"a"},
		Values: [][]any{{1}},
	}

	data, err := NewExporter(DefaultOptions()).Export(context.Background(), ds)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	require.Contains(t, f.GetSheetList(), "0123456789012345678901234567890")
}

func TestExporter_LongMultibyteSheetNameTruncated(t *testing.T) {
	name := strings.Repeat("不良集計", 9) // 36 runes, 108 bytes
	ds := &SliceDataSource{
		Name:   name,
		Cols:   []string{"a"},
		Values: [][]any{{1}},
	}

	data, err := NewExporter(DefaultOptions()).Export(context.Background(), ds)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	want := string([]rune(name)[:31])
	require.True(t, utf8.ValidString(want))
	require.Contains(t, f.GetSheetList(), want)
}
