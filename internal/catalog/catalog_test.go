package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ParsesEmbeddedCatalogWithoutDuplicateTables(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)
	assert.NotEmpty(t, cat.Tables(""))
}

func TestDescribe_NL_RA_KeysOnYearAndMonthDay(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)

	meta, ok := cat.Describe("NL_RA")
	require.True(t, ok)
	assert.Equal(t, []string{"Year", "MonthDay", "JyoCD", "RaceNum"}, meta.PrimaryKey)

	cols := meta.ColumnSet()
	_, hasYear := cols["Year"]
	_, hasMonthDay := cols["MonthDay"]
	_, hasRaceDate := cols["RaceDate"]
	assert.True(t, hasYear)
	assert.True(t, hasMonthDay)
	assert.False(t, hasRaceDate)
}

func TestDescribe_UnknownTableIsNotFound(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)

	_, ok := cat.Describe("NL_NOPE")
	assert.False(t, ok)
}

func TestMapFieldName_MapsKnownLabelAndPassesThroughUnknown(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Year", cat.MapFieldName("開催年"))
	assert.Equal(t, "not-a-label", cat.MapFieldName("not-a-label"))
}

func TestTableForRecordSpec_CombinesFamilyAndSpec(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)

	table, ok := cat.TableForRecordSpec("NL", "RA")
	require.True(t, ok)
	assert.Equal(t, "NL_RA", table)

	_, ok = cat.TableForRecordSpec("ZZ", "QQ")
	assert.False(t, ok)
}

func TestTables_FiltersByFamily(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)

	for _, name := range cat.Tables("TS") {
		meta, ok := cat.Describe(name)
		require.True(t, ok)
		assert.Equal(t, "TS", meta.Family)
	}
}
