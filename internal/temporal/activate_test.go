package temporal

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koba/mssql-schema/internal/schema"
	"github.com/koba/mssql-schema/internal/sqltype"
)

type fakeStore struct {
	executed []string
	exists   map[string]bool
	columns  map[string][]schema.Column
}

func (f *fakeStore) Exec(_ context.Context, stmt string) error {
	f.executed = append(f.executed, stmt)
	return nil
}

func (f *fakeStore) TableExists(_ context.Context, schemaName, tableName string) (bool, error) {
	return f.exists[schemaName+"."+tableName], nil
}

func (f *fakeStore) TableColumns(_ context.Context, schemaName, tableName string) ([]schema.Column, error) {
	return f.columns[schemaName+"."+tableName], nil
}

func ordersStore() *fakeStore {
	return &fakeStore{
		exists: map[string]bool{"dbo.Orders": true},
		columns: map[string][]schema.Column{
			"dbo.Orders": {
				{Name: "Id", Type: sqltype.DataType{Base: sqltype.Int}, Identity: true, Position: 1, Description: "Order identifier."},
				{Name: "Customer", Type: sqltype.DataType{Base: sqltype.NVarChar, MaxLength: 50}, Nullable: true, Position: 2},
			},
		},
	}
}

func TestActivate(t *testing.T) {
	store := ordersStore()
	table, err := schema.NewTable(store, "dbo", "Orders")
	require.NoError(t, err)

	require.NoError(t, Activate(context.Background(), store, table, Options{}))

	// The history table is created physically before the base table is
	// altered, with every original column plus the period columns.
	require.NotEmpty(t, store.executed)
	createIdx := indexOfPrefix(t, store.executed, "CREATE TABLE [dbo].[OrdersHistory]")
	create := store.executed[createIdx]
	assert.Contains(t, create, "[Id] INT NOT NULL")
	assert.Contains(t, create, "[Customer] NVARCHAR(50) NULL")
	assert.Contains(t, create, "[ValidFrom] DATETIME2(7) NOT NULL")
	assert.Contains(t, create, "[ValidTo] DATETIME2(7) NOT NULL")
	// History rows are never current, so the clones carry no defaults and
	// no identity.
	assert.NotContains(t, create, "DEFAULT")
	assert.NotContains(t, create, "IDENTITY")

	periodIndex := indexOfPrefix(t, store.executed,
		"CREATE INDEX [IX_OrdersHistory_Period] ON [dbo].[OrdersHistory] ([ValidFrom], [ValidTo])")
	assert.Greater(t, periodIndex, createIdx)

	alterStart := indexOfPrefix(t, store.executed,
		"ALTER TABLE [dbo].[Orders] ADD [ValidFrom] DATETIME2(7) NOT NULL DEFAULT SYSUTCDATETIME()")
	assert.Greater(t, alterStart, periodIndex)

	joined := strings.Join(store.executed[alterStart:], "\n")
	assert.Contains(t, joined, "ADD [ValidTo] DATETIME2(7) NOT NULL DEFAULT '9999-12-31 23:59:59'")
	assert.Contains(t, joined, "ADD PERIOD FOR SYSTEM_TIME ([ValidFrom], [ValidTo])")
	assert.Contains(t, joined, "ALTER COLUMN [ValidFrom] ADD HIDDEN")
	assert.Contains(t, joined, "ALTER COLUMN [ValidTo] ADD HIDDEN")
	assert.Contains(t, joined, "SET (SYSTEM_VERSIONING = ON (HISTORY_TABLE = [dbo].[OrdersHistory]))")

	assert.True(t, table.SystemVersioned)
	assert.Equal(t, "dbo", table.HistorySchema)
	assert.Equal(t, "OrdersHistory", table.HistoryTable)
}

func TestActivateExplicitHistoryName(t *testing.T) {
	store := ordersStore()
	table, err := schema.NewTable(store, "dbo", "Orders")
	require.NoError(t, err)

	opts := Options{HistorySchema: "audit", HistoryTable: "OrdersAudit"}
	require.NoError(t, Activate(context.Background(), store, table, opts))

	indexOfPrefix(t, store.executed, "CREATE TABLE [audit].[OrdersAudit]")
	assert.Equal(t, "audit", table.HistorySchema)
	assert.Equal(t, "OrdersAudit", table.HistoryTable)
}

func TestActivateDuplicateHistoryTable(t *testing.T) {
	store := ordersStore()
	store.exists["dbo.OrdersHistory"] = true
	table, err := schema.NewTable(store, "dbo", "Orders")
	require.NoError(t, err)
	require.NoError(t, table.Refresh(context.Background()))
	before := len(table.Columns)

	err = Activate(context.Background(), store, table, Options{})
	require.ErrorIs(t, err, schema.ErrDuplicateObject)
	assert.Contains(t, err.Error(), "[dbo].[OrdersHistory]")

	// The duplicate check fires before any column is added or statement
	// executed.
	assert.Empty(t, store.executed)
	assert.Len(t, table.Columns, before)
	assert.Empty(t, table.Pending())
}

func TestActivateNilTable(t *testing.T) {
	err := Activate(context.Background(), &fakeStore{}, nil, Options{})
	require.ErrorIs(t, err, schema.ErrInvalidArgument)
}

func indexOfPrefix(t *testing.T, stmts []string, prefix string) int {
	t.Helper()
	for i, stmt := range stmts {
		if strings.HasPrefix(stmt, prefix) {
			return i
		}
	}
	t.Fatalf("no statement with prefix %q in %v", prefix, stmts)
	return -1
}
