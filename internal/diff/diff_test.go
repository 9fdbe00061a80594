package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/mssql-schema/internal/schema"
	"github.com/koba/mssql-schema/internal/snapshot"
	"github.com/koba/mssql-schema/internal/sqltype"
)

func snap(tables map[string]*schema.Table) *snapshot.Snapshot {
	return &snapshot.Snapshot{Metadata: map[string]string{}, Tables: tables}
}

func baseTable() *schema.Table {
	return &schema.Table{
		Schema: "dbo",
		Name:   "Orders",
		Columns: []schema.Column{
			{Name: "Id", Type: sqltype.DataType{Base: sqltype.Int}, Position: 1},
			{Name: "Total", Type: sqltype.DataType{Base: sqltype.Decimal, Precision: 18, Scale: 4}, Position: 2},
		},
	}
}

func TestCompareNoChanges(t *testing.T) {
	a := snap(map[string]*schema.Table{"dbo.Orders": baseTable()})
	b := snap(map[string]*schema.Table{"dbo.Orders": baseTable()})

	result := Compare(a, b)
	assert.Empty(t, result.SchemaDiffs)
}

func TestCompareAddedAndDroppedTables(t *testing.T) {
	a := snap(map[string]*schema.Table{"dbo.Orders": baseTable()})
	b := snap(map[string]*schema.Table{"dbo.Customers": {Schema: "dbo", Name: "Customers"}})

	result := Compare(a, b)
	require.Len(t, result.SchemaDiffs, 2)
	assert.Equal(t, ActionDrop, result.SchemaDiffs["dbo.Orders"].Action)
	assert.Equal(t, ActionAdd, result.SchemaDiffs["dbo.Customers"].Action)
}

func TestCompareColumnChanges(t *testing.T) {
	after := baseTable()
	after.Columns[1].Type = sqltype.DataType{Base: sqltype.Decimal, Precision: 28, Scale: 10}
	after.Columns = append(after.Columns, schema.Column{
		Name: "Notes", Type: sqltype.DataType{Base: sqltype.NVarCharMax, MaxLength: -1}, Nullable: true,
	})

	a := snap(map[string]*schema.Table{"dbo.Orders": baseTable()})
	b := snap(map[string]*schema.Table{"dbo.Orders": after})

	result := Compare(a, b)
	require.Contains(t, result.SchemaDiffs, "dbo.Orders")
	d := result.SchemaDiffs["dbo.Orders"]
	assert.Equal(t, ActionModify, d.Action)
	require.Len(t, d.ColumnChanges, 2)

	byName := map[string]ColumnChange{}
	for _, change := range d.ColumnChanges {
		byName[change.ColumnName] = change
	}
	assert.Equal(t, ActionModify, byName["Total"].Action)
	assert.Equal(t, ActionAdd, byName["Notes"].Action)
}

func TestCompareVersioningChange(t *testing.T) {
	after := baseTable()
	after.SystemVersioned = true
	after.HistorySchema = "dbo"
	after.HistoryTable = "OrdersHistory"

	a := snap(map[string]*schema.Table{"dbo.Orders": baseTable()})
	b := snap(map[string]*schema.Table{"dbo.Orders": after})

	result := Compare(a, b)
	require.Contains(t, result.SchemaDiffs, "dbo.Orders")
	assert.True(t, result.SchemaDiffs["dbo.Orders"].VersioningChanged)
}

func TestCompareIndexChanges(t *testing.T) {
	after := baseTable()
	after.Indexes = []schema.Index{{Name: "IX_Orders_Total", Columns: []string{"Total"}}}

	a := snap(map[string]*schema.Table{"dbo.Orders": baseTable()})
	b := snap(map[string]*schema.Table{"dbo.Orders": after})

	result := Compare(a, b)
	d := result.SchemaDiffs["dbo.Orders"]
	require.NotNil(t, d)
	require.Len(t, d.IndexChanges, 1)
	assert.Equal(t, ActionAdd, d.IndexChanges[0].Action)
}
