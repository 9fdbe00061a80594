package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/mssql-schema/internal/sqltype"
)

type fakeStore struct {
	executed []string
	exists   map[string]bool
	columns  map[string][]Column
	execErr  error
}

func (f *fakeStore) Exec(_ context.Context, stmt string) error {
	if f.execErr != nil {
		return f.execErr
	}
	f.executed = append(f.executed, stmt)
	return nil
}

func (f *fakeStore) TableExists(_ context.Context, schemaName, tableName string) (bool, error) {
	return f.exists[schemaName+"."+tableName], nil
}

func (f *fakeStore) TableColumns(_ context.Context, schemaName, tableName string) ([]Column, error) {
	return f.columns[schemaName+"."+tableName], nil
}

func TestNewTable(t *testing.T) {
	table, err := NewTable(&fakeStore{}, "", "Orders")
	require.NoError(t, err)
	assert.Equal(t, DefaultSchema, table.Schema)
	assert.Equal(t, "[dbo].[Orders]", table.QualifiedName())

	_, err = NewTable(&fakeStore{}, "dbo", "")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAddColumnStagesDDL(t *testing.T) {
	table, err := NewTable(&fakeStore{}, "dbo", "Orders")
	require.NoError(t, err)

	err = table.AddColumn(Column{
		Name:        "Total",
		Type:        sqltype.DataType{Base: sqltype.Decimal, Precision: 18, Scale: 4},
		Default:     "0",
		Description: "Order total.",
	})
	require.NoError(t, err)

	pending := table.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "ALTER TABLE [dbo].[Orders] ADD [Total] DECIMAL(18, 4) NOT NULL DEFAULT 0", pending[0])
	assert.Contains(t, pending[1], "sp_addextendedproperty")
	assert.Contains(t, pending[1], "Order total.")

	col, err := table.Column("total")
	require.NoError(t, err)
	assert.Equal(t, "Total", col.Name)
}

func TestAddColumnConflict(t *testing.T) {
	table, err := NewTable(&fakeStore{}, "dbo", "Orders")
	require.NoError(t, err)

	require.NoError(t, table.AddColumn(Column{Name: "Id", Type: sqltype.DataType{Base: sqltype.Int}}))
	err = table.AddColumn(Column{Name: "ID", Type: sqltype.DataType{Base: sqltype.BigInt}})
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "ID")
}

func TestColumnNotFound(t *testing.T) {
	table, err := NewTable(&fakeStore{}, "dbo", "Orders")
	require.NoError(t, err)

	_, err = table.Column("Missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "Missing")
}

func TestSetPeriodAndHideColumn(t *testing.T) {
	table, err := NewTable(&fakeStore{}, "dbo", "Orders")
	require.NoError(t, err)

	dt := sqltype.DataType{Base: sqltype.DateTime2, Scale: 7}
	require.NoError(t, table.AddColumn(Column{Name: "ValidFrom", Type: dt}))
	require.NoError(t, table.AddColumn(Column{Name: "ValidTo", Type: dt}))

	require.NoError(t, table.SetPeriod("ValidFrom", "ValidTo"))
	require.NotNil(t, table.Period)
	assert.Equal(t, "ValidFrom", table.Period.ValidFrom)

	require.NoError(t, table.HideColumn("ValidFrom"))
	col, err := table.Column("ValidFrom")
	require.NoError(t, err)
	assert.True(t, col.Hidden)

	pending := table.Pending()
	assert.Contains(t, pending, "ALTER TABLE [dbo].[Orders] ADD PERIOD FOR SYSTEM_TIME ([ValidFrom], [ValidTo])")
	assert.Contains(t, pending, "ALTER TABLE [dbo].[Orders] ALTER COLUMN [ValidFrom] ADD HIDDEN")

	err = table.SetPeriod("ValidFrom", "Nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddIndex(t *testing.T) {
	table, err := NewTable(&fakeStore{}, "dbo", "Orders")
	require.NoError(t, err)
	require.NoError(t, table.AddColumn(Column{Name: "A", Type: sqltype.DataType{Base: sqltype.Int}}))
	require.NoError(t, table.AddColumn(Column{Name: "B", Type: sqltype.DataType{Base: sqltype.Int}}))

	require.NoError(t, table.AddIndex(Index{Name: "IX_Orders_AB", Columns: []string{"A", "B"}}))
	assert.Contains(t, table.Pending(), "CREATE INDEX [IX_Orders_AB] ON [dbo].[Orders] ([A], [B])")

	err = table.AddIndex(Index{Name: "ix_orders_ab", Columns: []string{"A"}})
	require.ErrorIs(t, err, ErrConflict)

	err = table.AddIndex(Index{Name: "IX_Other", Columns: []string{"Missing"}})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateDDL(t *testing.T) {
	table, err := NewTable(&fakeStore{}, "dbo", "OrdersHistory")
	require.NoError(t, err)

	require.NoError(t, table.AddColumn(Column{Name: "Id", Type: sqltype.DataType{Base: sqltype.Int}}))
	require.NoError(t, table.AddColumn(Column{Name: "Name", Type: sqltype.DataType{Base: sqltype.NVarChar, MaxLength: 50}, Nullable: true}))

	ddl, err := table.CreateDDL()
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE [dbo].[OrdersHistory] (\n  [Id] INT NOT NULL,\n  [Name] NVARCHAR(50) NULL\n)", ddl)
}

func TestCreateDuplicateObject(t *testing.T) {
	store := &fakeStore{exists: map[string]bool{"dbo.Orders": true}}
	table, err := NewTable(store, "dbo", "Orders")
	require.NoError(t, err)
	require.NoError(t, table.AddColumn(Column{Name: "Id", Type: sqltype.DataType{Base: sqltype.Int}}))

	err = table.Create(context.Background())
	require.ErrorIs(t, err, ErrDuplicateObject)
	assert.Empty(t, store.executed)
}

func TestCreateFlushesDescriptionsAndIndexes(t *testing.T) {
	store := &fakeStore{}
	table, err := NewTable(store, "dbo", "Orders")
	require.NoError(t, err)

	require.NoError(t, table.AddColumn(Column{
		Name:        "Id",
		Type:        sqltype.DataType{Base: sqltype.Int},
		Description: "Primary identifier.",
	}))
	require.NoError(t, table.AddIndex(Index{Name: "IX_Orders_Id", Columns: []string{"Id"}}))

	require.NoError(t, table.Create(context.Background()))
	require.Len(t, store.executed, 3)
	assert.Contains(t, store.executed[0], "CREATE TABLE [dbo].[Orders]")
	assert.Contains(t, store.executed[1], "sp_addextendedproperty")
	assert.Contains(t, store.executed[2], "CREATE INDEX [IX_Orders_Id]")
	assert.Empty(t, table.Pending())
}

func TestAlterFlushesInOrder(t *testing.T) {
	store := &fakeStore{}
	table, err := NewTable(store, "dbo", "Orders")
	require.NoError(t, err)

	require.NoError(t, table.AddColumn(Column{Name: "A", Type: sqltype.DataType{Base: sqltype.Int}}))
	require.NoError(t, table.AddColumn(Column{Name: "B", Type: sqltype.DataType{Base: sqltype.Bit}}))

	require.NoError(t, table.Alter(context.Background()))
	require.Len(t, store.executed, 2)
	assert.Contains(t, store.executed[0], "[A] INT")
	assert.Contains(t, store.executed[1], "[B] BIT")
	assert.Empty(t, table.Pending())
}

func TestAlterSurfacesStoreError(t *testing.T) {
	boom := errors.New("boom")
	store := &fakeStore{execErr: boom}
	table, err := NewTable(store, "dbo", "Orders")
	require.NoError(t, err)
	require.NoError(t, table.AddColumn(Column{Name: "A", Type: sqltype.DataType{Base: sqltype.Int}}))

	err = table.Alter(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestRefreshReloadsColumns(t *testing.T) {
	store := &fakeStore{columns: map[string][]Column{
		"dbo.Orders": {{Name: "Id", Type: sqltype.DataType{Base: sqltype.Int}, Position: 1}},
	}}
	table, err := NewTable(store, "dbo", "Orders")
	require.NoError(t, err)
	require.NoError(t, table.AddColumn(Column{Name: "Stale", Type: sqltype.DataType{Base: sqltype.Bit}}))

	require.NoError(t, table.Refresh(context.Background()))
	require.Len(t, table.Columns, 1)
	assert.Equal(t, "Id", table.Columns[0].Name)
	assert.Empty(t, table.Pending())
}

func TestEnableSystemVersioning(t *testing.T) {
	table, err := NewTable(&fakeStore{}, "dbo", "Orders")
	require.NoError(t, err)

	require.NoError(t, table.EnableSystemVersioning("dbo", "OrdersHistory"))
	assert.True(t, table.SystemVersioned)
	assert.Equal(t, "OrdersHistory", table.HistoryTable)
	assert.Contains(t, table.Pending(),
		"ALTER TABLE [dbo].[Orders] SET (SYSTEM_VERSIONING = ON (HISTORY_TABLE = [dbo].[OrdersHistory]))")

	err = table.EnableSystemVersioning("", "OrdersHistory")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "[Orders]", QuoteIdentifier("Orders"))
	assert.Equal(t, "[Weird]]Name]", QuoteIdentifier("Weird]Name"))
}

func TestFindParameter(t *testing.T) {
	params := []Parameter{{Name: "@CustomerId"}, {Name: "@Amount"}}

	p, ok := FindParameter(params, "customerid")
	require.True(t, ok)
	assert.Equal(t, "@CustomerId", p.Name)

	_, ok = FindParameter(params, "@missing")
	assert.False(t, ok)
}
