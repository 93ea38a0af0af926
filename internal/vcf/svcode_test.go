package vcf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructuralVariant(t *testing.T) {
	sv, err := ParseStructuralVariant("INS:ME:LINE")
	require.NoError(t, err)
	assert.Equal(t, []string{"INS", "ME", "LINE"}, sv.Components())
	assert.Equal(t, "INS:ME:LINE", sv.String())

	code, ok := sv.ReservedComponent(0)
	assert.True(t, ok)
	assert.Equal(t, SVInsertion, code)

	code, ok = sv.ReservedComponent(1)
	assert.True(t, ok)
	assert.Equal(t, SVMobileElement, code)

	_, ok = sv.ReservedComponent(2)
	assert.False(t, ok)
	assert.Equal(t, "LINE", sv.Component(2))
}

func TestParseStructuralVariant_Valid(t *testing.T) {
	for _, code := range []string{"DEL", "CNV", "DUP:TANDEM", "DEL:ME:ALU", "INS:ME", "INV:custom", "DEL:x:y:z"} {
		_, err := ParseStructuralVariant(code)
		assert.NoError(t, err, code)
	}
}

func TestParseStructuralVariant_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":                "",
		"child at top level":   "ME:INS",
		"unreserved top":       "LINE",
		"wrong parent":         "DEL:TANDEM",
		"reserved wrong level": "INS:DEL",
		"lowercase":            "del",
	}
	for name, code := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseStructuralVariant(code)
			var fe *FormatError
			assert.ErrorAs(t, err, &fe)
		})
	}
}

func TestSVCode_Hierarchy(t *testing.T) {
	assert.Equal(t, 0, SVCopyNumber.Level())
	assert.Equal(t, 1, SVTandem.Level())
	assert.Equal(t, []SVCode{SVDuplication}, SVTandem.Parents())
	assert.ElementsMatch(t, []SVCode{SVInsertion, SVDeletion}, SVMobileElement.Parents())

	for _, c := range []SVCode{SVDeletion, SVInsertion, SVDuplication, SVInversion, SVCopyNumber, SVTandem, SVMobileElement} {
		got, ok := LookupSVCode(c.String())
		require.True(t, ok, c.String())
		assert.Equal(t, c, got)
	}
}

func TestMetadataEntry_StructuralVariant(t *testing.T) {
	e, err := NewAltEntry("DEL:ME:ALU", "Deletion of ALU element")
	require.NoError(t, err)
	sv, err := e.StructuralVariant()
	require.NoError(t, err)
	assert.Equal(t, 3, sv.Len())

	f, err := NewFilterEntry("q10", "low quality")
	require.NoError(t, err)
	_, err = f.StructuralVariant()
	assert.Error(t, err)
}
