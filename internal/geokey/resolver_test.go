package geokey

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/suburb-insights/internal/model"
)

func ptr(v float64) *float64 { return &v }

func testCorrespondence(t *testing.T) *Correspondence {
	t.Helper()
	corr, bad := NewCorrespondence([]model.CorrespondenceRecord{
		{Line: 2, RawPostcode: "2000", RawSA2: "117031337", SA2Name: "Sydney (North) - Millers Point"},
		{Line: 3, RawPostcode: "3053", RawSA2: "206041117", SA2Name: "Carlton", Ratio: ptr(0.75)},
		{Line: 4, RawPostcode: "3053", RawSA2: "206041118", SA2Name: "Carlton North - Princes Hill", Ratio: ptr(0.25)},
		{Line: 5, RawPostcode: "3054", RawSA2: "206041118", Ratio: ptr(0)},
		{Line: 6, RawPostcode: "800", RawSA2: "701011002"},
		{Line: 7, RawPostcode: "2000", RawSA2: "117031337", Ratio: ptr(0.5)},
		{Line: 8, RawPostcode: "bad", RawSA2: "117031337"},
		{Line: 9, RawPostcode: "2001", RawSA2: "1170"},
	})
	require.Len(t, bad, 2)
	return corr
}

func TestNewCorrespondence(t *testing.T) {
	t.Parallel()
	corr := testCorrespondence(t)

	t.Run("many to many with ratios", func(t *testing.T) {
		allocs := corr.Allocations("3053")
		require.Len(t, allocs, 2)
		assert.Equal(t, Allocation{SA2: "206041117", Weight: 0.75}, allocs[0])
		assert.Equal(t, Allocation{SA2: "206041118", Weight: 0.25}, allocs[1])
	})

	t.Run("duplicates accumulate and missing ratio is one", func(t *testing.T) {
		allocs := corr.Allocations("2000")
		require.Len(t, allocs, 1)
		assert.InDelta(t, 1.5, allocs[0].Weight, 1e-9)
	})

	t.Run("zero ratio carries no share", func(t *testing.T) {
		assert.Empty(t, corr.Allocations("3054"))
	})

	t.Run("short postcode padded", func(t *testing.T) {
		assert.Len(t, corr.Allocations("0800"), 1)
	})

	t.Run("names and codes", func(t *testing.T) {
		assert.Equal(t, "Carlton", corr.Name("206041117"))
		assert.Equal(t, []model.SA2Code{"117031337", "206041117", "206041118", "701011002"}, corr.SA2Codes())
		assert.Equal(t, 3, corr.Len())
	})

	t.Run("allocations are copies", func(t *testing.T) {
		allocs := corr.Allocations("3053")
		allocs[0].Weight = 99
		assert.Equal(t, 0.75, corr.Allocations("3053")[0].Weight)
	})
}

func TestNilCorrespondence(t *testing.T) {
	t.Parallel()

	var corr *Correspondence
	assert.Nil(t, corr.Allocations("2000"))
	assert.Equal(t, "", corr.Name("201011001"))
	assert.Equal(t, 0, corr.Len())
	assert.Nil(t, corr.SA2Codes())
}

func TestNameIndex(t *testing.T) {
	t.Parallel()

	idx := NewNameIndex()
	idx.Add("206041117", "Carlton")
	idx.Add("206041118", "Carlton North - Princes Hill")
	idx.Add("206041118", "Carlton North - Princes Hill")
	idx.Add("118011341", "Richmond (NSW)")
	idx.Add("206071145", "Richmond (Vic.)")

	code, reason := idx.Lookup("CARLTON")
	assert.Empty(t, reason)
	assert.Equal(t, model.SA2Code("206041117"), code)

	code, reason = idx.Lookup("princes hill")
	assert.Empty(t, reason)
	assert.Equal(t, model.SA2Code("206041118"), code)

	_, reason = idx.Lookup("Richmond")
	assert.Equal(t, ReasonAmbiguousName, reason)

	_, reason = idx.Lookup("Fitzroy")
	assert.Equal(t, ReasonUnknownName, reason)

	assert.Equal(t, 3, idx.Len())
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	names := NewNameIndex()
	names.Add("206041117", "Carlton")
	r := NewResolver(testCorrespondence(t), names)

	t.Run("sa2 resolves to itself", func(t *testing.T) {
		allocs, err := r.Resolve("ownership", "206041117.0", model.DimensionSA2)
		require.NoError(t, err)
		assert.Equal(t, []Allocation{{SA2: "206041117", Weight: 1}}, allocs)
	})

	t.Run("postcode bridges through correspondence", func(t *testing.T) {
		allocs, err := r.Resolve("vacancy", "3053", model.DimensionPostcode)
		require.NoError(t, err)
		assert.Len(t, allocs, 2)
	})

	t.Run("postcode without entry is unjoinable", func(t *testing.T) {
		_, err := r.Resolve("vacancy", "9999", model.DimensionPostcode)
		require.Error(t, err)
		var ue *UnjoinableKeyError
		require.True(t, errors.As(err, &ue))
		assert.Equal(t, ReasonNoCorrespondence, ue.Reason)
		assert.Equal(t, model.Unjoined{Source: "vacancy", RawKey: "9999", Dimension: model.DimensionPostcode, Reason: ReasonNoCorrespondence}, ue.Diagnostic())
	})

	t.Run("invalid key", func(t *testing.T) {
		_, err := r.Resolve("seifa", "12", model.DimensionSA2)
		require.Error(t, err)
		assert.True(t, IsUnjoinable(err))
		assert.Contains(t, err.Error(), ReasonInvalidKey)
	})

	t.Run("auto detects every dimension", func(t *testing.T) {
		_, err := r.Resolve("medians", "206041117", model.DimensionAuto)
		require.NoError(t, err)
		_, err = r.Resolve("medians", "3053", model.DimensionAuto)
		require.NoError(t, err)
		allocs, err := r.Resolve("medians", "carlton", model.DimensionAuto)
		require.NoError(t, err)
		assert.Equal(t, model.SA2Code("206041117"), allocs[0].SA2)
	})

	t.Run("blank name is invalid", func(t *testing.T) {
		_, err := r.Resolve("medians", " ", model.DimensionName)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ReasonInvalidKey)
	})

	t.Run("no correspondence table", func(t *testing.T) {
		bare := NewResolver(nil, nil)
		_, err := bare.Resolve("vacancy", "2000", model.DimensionPostcode)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ReasonNoTable)

		_, err = bare.Resolve("medians", "Carlton", model.DimensionName)
		assert.Contains(t, err.Error(), ReasonUnknownName)
	})
}
