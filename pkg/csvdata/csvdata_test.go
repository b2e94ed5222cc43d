package csvdata

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

func TestNewReader_ShiftJIS(t *testing.T) {
	var buf bytes.Buffer
	w := transform.NewWriter(&buf, japanese.ShiftJIS.NewEncoder())
	_, err := w.Write([]byte("ロット,2024/05/01\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewReader(&buf, EncodingShiftJIS)
	require.NoError(t, err)

	row, err := r.Read()
	require.NoError(t, err)
	require.Equal(t, []string{"ロット", "2024/05/01"}, row)
}

func TestNewReader_UnknownEncoding(t *testing.T) {
	_, err := NewReader(strings.NewReader(""), "latin1")
	require.ErrorIs(t, err, ErrUnknownEncoding)
}

func TestParseDate(t *testing.T) {
	d := ParseDate("2024/05/01")
	require.NotNil(t, d)
	require.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *d)

	d = ParseDate("2024-05-01")
	require.NotNil(t, d)
	require.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *d)

	require.Nil(t, ParseDate(""))
	require.Nil(t, ParseDate("01.05.2024"))
	require.Nil(t, ParseDate("not a date"))
}

func TestParseDateTime(t *testing.T) {
	d := ParseDateTime("2024/05/01 13:45:00")
	require.NotNil(t, d)
	require.Equal(t, time.Date(2024, 5, 1, 13, 45, 0, 0, time.UTC), *d)

	d = ParseDateTime("2024-05-01")
	require.NotNil(t, d)
	require.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *d)

	require.Nil(t, ParseDateTime("13:45:00"))
}

func TestParseFloat_LenientZero(t *testing.T) {
	require.Equal(t, 3.5, ParseFloat("3.5"))
	require.Equal(t, 0.0, ParseFloat(""))
	require.Equal(t, 0.0, ParseFloat("n/a"))
	require.Equal(t, 12.0, ParseFloat(" 12 "))
}

func TestParseInt_LenientZero(t *testing.T) {
	require.Equal(t, 7, ParseInt("7"))
	require.Equal(t, 3, ParseInt("3.9"))
	require.Equal(t, 0, ParseInt("x"))
	require.Equal(t, 0, ParseInt(""))
}

func TestField_ShortRow(t *testing.T) {
	row := []string{"a", " b "}
	require.Equal(t, "a", Field(row, 0))
	require.Equal(t, "b", Field(row, 1))
	require.Equal(t, "", Field(row, 2))
	require.Equal(t, "", Field(row, -1))
}
