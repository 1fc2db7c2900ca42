package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/labs-tracker/internal/catalog"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]entity.BiomarkerStandard{
		{
			Code: "ldl", Name: "LDL Cholesterol", Category: "Lipids",
			StandardUnit: "mg/dL",
			Aliases:      []string{"ldl-c", "low density lipoprotein"},
		},
		{
			Code: "hdl", Name: "HDL Cholesterol", Category: "Lipids",
			StandardUnit: "mg/dL",
			Aliases:      []string{"hdl-c"},
		},
		{
			Code: "tsh", Name: "Thyroid Stimulating Hormone", Category: "Thyroid",
			StandardUnit: "mIU/L",
			Aliases:      []string{"thyrotropin"},
		},
	}, nil)
}

func TestMatchDeterminism(t *testing.T) {
	m := NewMatcher(testCatalog())

	for _, input := range []string{"LDL", "ldl", " LDL ", "Ldl"} {
		std, rule, ok := m.Match(input)
		require.True(t, ok, "input %q", input)
		assert.Equal(t, "ldl", std.Code, "input %q", input)
		assert.Equal(t, RuleExactCode, rule, "input %q", input)
	}
}

func TestMatchPriorityOrder(t *testing.T) {
	m := NewMatcher(testCatalog())

	std, rule, ok := m.Match("HDL Cholesterol")
	require.True(t, ok)
	assert.Equal(t, "hdl", std.Code)
	assert.Equal(t, RuleExactName, rule)

	std, rule, ok = m.Match("thyrotropin")
	require.True(t, ok)
	assert.Equal(t, "tsh", std.Code)
	assert.Equal(t, RuleExactAlias, rule)

	// extracted name is a substring of a catalog name
	std, rule, ok = m.Match("Cholesterol")
	require.True(t, ok)
	assert.Equal(t, "ldl", std.Code) // first catalog entry wins within a rule
	assert.Equal(t, RulePartial, rule)

	// catalog name is a substring of the extracted name
	std, rule, ok = m.Match("Serum LDL Cholesterol (calculated)")
	require.True(t, ok)
	assert.Equal(t, "ldl", std.Code)
	assert.Equal(t, RulePartial, rule)
}

func TestMatchAbsent(t *testing.T) {
	m := NewMatcher(testCatalog())

	_, rule, ok := m.Match("vitamin q")
	assert.False(t, ok)
	assert.Equal(t, RuleNone, rule)

	_, _, ok = m.Match("   ")
	assert.False(t, ok)
}
