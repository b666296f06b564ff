package postgresql_test

import (
	"context"
	"os"
	"testing"

	"github.com/cmlabs-hris/hris-payments-go/internal/pkg/database"
	"github.com/stretchr/testify/require"
)

// newTestDB connects to TEST_DATABASE_URL, applies migrations and empties the
// payment tables. Tests are skipped when no database is configured.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(ctx))

	for _, table := range []string{"payments", "shifts", "company_payment_settings", "employees"} {
		_, err := db.Exec(ctx, "TRUNCATE TABLE "+table+" RESTART IDENTITY CASCADE")
		require.NoError(t, err)
	}
	return db
}

func insertEmployee(t *testing.T, db *database.DB, companyID int64, name, status string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(context.Background(),
		`INSERT INTO employees (company_id, full_name, employment_status) VALUES ($1, $2, $3) RETURNING id`,
		companyID, name, status,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func insertShift(t *testing.T, db *database.DB, employeeID, companyID int64, date string, hours, earnings any) {
	t.Helper()
	_, err := db.Exec(context.Background(),
		`INSERT INTO shifts (employee_id, company_id, shift_date, hours_worked, earnings, job_title)
		 VALUES ($1, $2, $3::date, $4::numeric, $5::numeric, 'Barista')`,
		employeeID, companyID, date, hours, earnings,
	)
	require.NoError(t, err)
}
