package db

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldpay/internal/domain/auth"
	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/platform/config"
	"fieldpay/internal/platform/querier"
)

type execLog struct {
	querier.Querier
	calls []string
	args  [][]any
}

func (e *execLog) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.calls = append(e.calls, strings.Join(strings.Fields(sql), " "))
	e.args = append(e.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (e *execLog) count(prefix string) int {
	n := 0
	for _, call := range e.calls {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

func TestSeedInsertsDefaults(t *testing.T) {
	db := &execLog{}

	err := Seed(context.Background(), db, config.Config{SeedAdminEmail: "Admin@Example.com ", SeedAdminPassword: "secret-pass"})

	require.NoError(t, err)
	assert.Equal(t, len(DefaultCommissionTypes), db.count("INSERT INTO commission_structures"))
	assert.Equal(t, len(payroll.DefaultBookTerms), db.count("INSERT INTO book_tiers"))
	assert.Equal(t, 1, db.count("INSERT INTO users"))
	assert.Positive(t, db.count("INSERT INTO role_permissions"))

	last := db.args[len(db.args)-1]
	assert.Equal(t, "admin@example.com", last[0])
	assert.Equal(t, auth.RoleAdmin, last[2])
	assert.NoError(t, auth.CheckPassword(last[1].(string), "secret-pass"))
}

func TestSeedSkipsAdminWithoutCredentials(t *testing.T) {
	db := &execLog{}

	require.NoError(t, Seed(context.Background(), db, config.Config{}))

	assert.Zero(t, db.count("INSERT INTO users"))
}
