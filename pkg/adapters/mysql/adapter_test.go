package mysql

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapgate/pkg/adapter"
	"github.com/leapstack-labs/leapgate/pkg/core"
)

func TestBuildMySQLConfig(t *testing.T) {
	cfg := core.ConnectionConfig{
		Host:     "db.internal",
		Port:     3307,
		Database: "shop",
		Username: "reader",
		Password: "p@ss:word/1",
	}
	s := &Settings{}
	require.NoError(t, adapter.DecodeOptions(map[string]string{"timeout": "5s", "charset": "utf8mb4"}, s))

	dsn := buildMySQLConfig(cfg, s).FormatDSN()
	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)

	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db.internal:3307", parsed.Addr)
	assert.Equal(t, "reader", parsed.User)
	assert.Equal(t, "p@ss:word/1", parsed.Passwd)
	assert.Equal(t, "shop", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.False(t, parsed.MultiStatements)
	assert.Equal(t, 5*time.Second, parsed.Timeout)
	assert.Contains(t, dsn, "charset=utf8mb4")
	assert.Equal(t, dsn, parsed.FormatDSN(), "charset survives a round trip")
}

func TestBuildMySQLConfig_Charset(t *testing.T) {
	tests := []struct {
		name     string
		options  map[string]string
		contains []string
		absent   []string
	}{
		{
			name:   "server defaults",
			absent: []string{"charset=", "collation="},
		},
		{
			name:     "charset only",
			options:  map[string]string{"charset": "utf8mb4"},
			contains: []string{"charset=utf8mb4"},
			absent:   []string{"collation="},
		},
		{
			name:     "charset and collation",
			options:  map[string]string{"charset": "utf8mb4", "collation": "utf8mb4_bin"},
			contains: []string{"charset=utf8mb4", "collation=utf8mb4_bin"},
		},
		{
			name:     "collation only",
			options:  map[string]string{"collation": "latin1_swedish_ci"},
			contains: []string{"collation=latin1_swedish_ci"},
			absent:   []string{"charset="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Settings{}
			require.NoError(t, adapter.DecodeOptions(tt.options, s))
			dsn := buildMySQLConfig(core.ConnectionConfig{}, s).FormatDSN()

			parsed, err := mysql.ParseDSN(dsn)
			require.NoError(t, err)
			assert.Equal(t, dsn, parsed.FormatDSN())
			for _, want := range tt.contains {
				assert.Contains(t, dsn, want)
			}
			for _, unwanted := range tt.absent {
				assert.NotContains(t, dsn, unwanted)
			}
		})
	}
}

func TestBuildMySQLConfig_Defaults(t *testing.T) {
	mc := buildMySQLConfig(core.ConnectionConfig{}, &Settings{})
	assert.Equal(t, "localhost:3306", mc.Addr)
	assert.Empty(t, mc.Collation, "server default collation")
}

func attach(t *testing.T, cfg core.ConnectionConfig, s *Settings) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	adp := New(nil)
	require.NoError(t, adp.Attach(context.Background(), db, db.Close))
	adp.Cfg = cfg
	adp.settings = s
	t.Cleanup(func() { _ = adp.Close() })
	return adp, mock
}

func TestAdapter_PrepareSession(t *testing.T) {
	tests := []struct {
		name     string
		settings *Settings
		expect   []string
	}{
		{
			name:     "sql mode only",
			settings: &Settings{},
			expect:   []string{`SET SESSION sql_mode = CONCAT\(@@SESSION.sql_mode, ',NO_BACKSLASH_ESCAPES'\)`},
		},
		{
			name:     "with execution cap",
			settings: &Settings{MaxExecutionTime: 30000},
			expect: []string{
				`SET SESSION sql_mode`,
				`SET SESSION max_execution_time = 30000`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp, mock := attach(t, core.ConnectionConfig{}, tt.settings)
			for _, e := range tt.expect {
				mock.ExpectExec(e).WillReturnResult(sqlmock.NewResult(0, 0))
			}
			require.NoError(t, adp.prepareSession(context.Background()))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_Catalog(t *testing.T) {
	ctx := context.Background()
	adp, mock := attach(t, core.ConnectionConfig{Database: "shop"}, &Settings{})

	mock.ExpectQuery(`WHERE table_schema = \?`).
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_SCHEMA", "TABLE_NAME", "TABLE_TYPE"}).
			AddRow("shop", "items", "BASE TABLE").
			AddRow("shop", "stock", "VIEW"))

	refs, err := adp.ListRelations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.RelationRef{
		{Schema: "shop", Name: "items", Kind: core.RelationTable},
		{Schema: "shop", Name: "stock", Kind: core.RelationView},
	}, refs)

	mock.ExpectQuery(`FROM information_schema.columns`).
		WithArgs(driver.Value("shop"), driver.Value("items")).
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "DATA_TYPE", "IS_NULLABLE", "ORDINAL_POSITION"}).
			AddRow("sku", "varchar", "NO", uint64(1)).
			AddRow("price", "decimal", "YES", uint64(2)))

	cols, err := adp.DescribeRelation(ctx, core.RelationRef{Name: "items"})
	require.NoError(t, err)
	assert.Equal(t, []core.CatalogColumn{
		{Name: "sku", Type: "varchar", Position: 1},
		{Name: "price", Type: "decimal", Nullable: true, Position: 2},
	}, cols)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_ListRelationsCurrentDatabase(t *testing.T) {
	adp, mock := attach(t, core.ConnectionConfig{}, &Settings{})
	mock.ExpectQuery(`table_schema = DATABASE\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_SCHEMA", "TABLE_NAME", "TABLE_TYPE"}))

	refs, err := adp.ListRelations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, refs)
}
