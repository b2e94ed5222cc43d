package defect_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/defect"
)

func TestRegistryCoversEveryField(t *testing.T) {
	seen := map[defect.Field]string{}
	for _, cat := range defect.Categories {
		require.NotEmpty(t, cat.Fields, "category %s has no fields", cat.ID)
		require.NotEmpty(t, cat.Label, "category %s has no label", cat.ID)
		for _, f := range cat.Fields {
			prev, dup := seen[f]
			require.False(t, dup, "field %s claimed by both %s and %s", f, prev, cat.ID)
			seen[f] = cat.ID
		}
	}
	require.Len(t, seen, len(defect.Fields))
	for _, f := range defect.Fields {
		require.Contains(t, seen, f)
	}
}

func TestByID(t *testing.T) {
	cat, err := defect.ByID("tear")
	require.NoError(t, err)
	require.Equal(t, "チギレ", cat.Label)
	require.ElementsMatch(t, []defect.Field{defect.FieldTear, defect.FieldTearRls}, cat.Fields)

	_, err = defect.ByID("no_such_item")
	require.ErrorIs(t, err, defect.ErrUnknownCategory)
}

func TestCountsSums(t *testing.T) {
	c := defect.Counts{}
	c.Set(defect.FieldTear, 3)
	c.Set(defect.FieldTearRls, 2)
	c.Set(defect.FieldCrack, 1)

	tear, err := defect.ByID("tear")
	require.NoError(t, err)
	require.InDelta(t, 5, c.CategoryCount(tear), 1e-9)
	require.InDelta(t, 6, c.Total(), 1e-9)
	require.Zero(t, c.Get(defect.FieldHaze))
}
