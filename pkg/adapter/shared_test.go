package adapter

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type offlineDriver struct{}

func (offlineDriver) Open(string) (driver.Conn, error) { return nil, errors.New("offline") }

func init() {
	sql.Register("leapgate-offline", offlineDriver{})
}

func TestOpenShared_RefCounting(t *testing.T) {
	ctx := context.Background()
	before := SharedHandles()

	configured := 0
	configure := func(*sql.DB) { configured++ }

	db1, release1, err := OpenShared("leapgate-offline", "a.db", configure)
	require.NoError(t, err)
	db2, release2, err := OpenShared("leapgate-offline", "a.db", configure)
	require.NoError(t, err)
	other, releaseOther, err := OpenShared("leapgate-offline", "b.db", configure)
	require.NoError(t, err)

	assert.Same(t, db1, db2)
	assert.NotSame(t, db1, other)
	assert.Equal(t, 2, configured, "configure runs once per handle")
	assert.Equal(t, before+2, SharedHandles())

	require.NoError(t, release1())
	require.NoError(t, release1(), "release is idempotent")
	assert.NotContains(t, db2.PingContext(ctx).Error(), "database is closed")

	require.NoError(t, release2())
	assert.Contains(t, db1.PingContext(ctx).Error(), "database is closed")

	require.NoError(t, releaseOther())
	assert.Equal(t, before, SharedHandles())
}
