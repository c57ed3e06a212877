package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() *Dataset {
	return &Dataset{
		Header: Header{Well: "W-1", NullValue: DefaultNullValue, DepthMnemonic: "DEPT", DepthUnit: "M"},
		Depth:  Samples{100, 100.5, 101},
		Curves: []Curve{
			{Mnemonic: "GR", Unit: "API", Category: CategoryGammaRay, Values: Samples{45, math.NaN(), 60}},
			{Mnemonic: "RHOB", Unit: "G/CC", Category: CategoryDensity, Values: Samples{2.3, 2.4, 2.5}},
		},
	}
}

func TestDataset_Row(t *testing.T) {
	ds := sampleDataset()
	r := ds.Row(1)
	assert.Equal(t, 100.5, r.Depth)
	assert.Nil(t, r.Values["GR"])
	require.NotNil(t, r.Values["RHOB"])
	assert.Equal(t, 2.4, *r.Values["RHOB"])
}

func TestDataset_Lookup(t *testing.T) {
	ds := sampleDataset()
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, 1, ds.Index("RHOB"))
	assert.Equal(t, -1, ds.Index("NPHI"))
	assert.Nil(t, ds.Curve("NPHI"))
	assert.Equal(t, []string{"GR", "RHOB"}, ds.Mnemonics())
}

func TestDataset_CloneIsDeep(t *testing.T) {
	ds := sampleDataset()
	ds.Header.Parameters = []HeaderItem{{Mnemonic: "BHT", Value: "80"}}
	c := ds.Clone()
	c.Curves[0].Values[0] = 1
	c.Depth[0] = 0
	c.Header.Parameters[0].Value = "90"
	assert.Equal(t, 45.0, ds.Curves[0].Values[0])
	assert.Equal(t, 100.0, ds.Depth[0])
	assert.Equal(t, "80", ds.Header.Parameters[0].Value)
}

func TestDataset_Validate(t *testing.T) {
	ds := sampleDataset()
	require.NoError(t, ds.Validate())

	ds.Curves[1].Mnemonic = "GR"
	assert.ErrorContains(t, ds.Validate(), "duplicate")

	ds = sampleDataset()
	ds.Curves[0].Values = Samples{1}
	assert.ErrorContains(t, ds.Validate(), "values for 3 depths")
}

func TestFile_ResetRestoresOriginal(t *testing.T) {
	f := NewFile("f1", "w.las", 123, sampleDataset())
	f.Processed.Curves[0].Values[0] = 999
	f.History = append(f.History, ProcessingStep{ID: "s1", Operation: "denoise"})
	f.QC = &QCResults{TotalPoints: 6}

	f.Reset()
	assert.Equal(t, 45.0, f.Processed.Curves[0].Values[0])
	assert.Empty(t, f.History)
	assert.Nil(t, f.QC)

	f.Processed.Curves[1].Values[0] = 0
	assert.Equal(t, 2.3, f.Original.Curves[1].Values[0], "original is never shared with processed")
}
