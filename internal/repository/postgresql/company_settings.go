package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
	"github.com/cmlabs-hris/hris-payments-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type settingsRepository struct {
	db *database.DB
}

func NewSettingsRepository(db *database.DB) payment.SettingsRepository {
	return &settingsRepository{db: db}
}

const settingsColumns = `
	company_id, pay_frequency, first_day, calculation_day, calculation_time,
	auto_calculate, grace_period_hours, timezone, notify_on_calculation,
	notification_email, created_at, updated_at`

func scanSettings(row pgx.Row) (payment.CompanyPaymentSettings, error) {
	var (
		s        payment.CompanyPaymentSettings
		day      int16
		clock    pgtype.Time
		firstDay time.Time
	)
	err := row.Scan(
		&s.CompanyID, &s.PayFrequency, &firstDay, &day, &clock,
		&s.AutoCalculate, &s.GracePeriodHours, &s.Timezone, &s.NotifyOnCalculation,
		&s.NotificationEmail, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return payment.CompanyPaymentSettings{}, err
	}
	s.FirstDay = payment.DateOf(firstDay)
	s.CalculationDay = time.Weekday(day)
	if clock.Valid {
		s.CalculationTime = int(time.Duration(clock.Microseconds) * time.Microsecond / time.Minute)
	}
	return s, nil
}

func (r *settingsRepository) GetByCompanyID(ctx context.Context, companyID int64) (payment.CompanyPaymentSettings, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + settingsColumns + ` FROM company_payment_settings WHERE company_id = $1`

	s, err := scanSettings(q.QueryRow(ctx, query, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payment.CompanyPaymentSettings{}, payment.ErrSettingsNotFound
		}
		return payment.CompanyPaymentSettings{}, fmt.Errorf("failed to get payment settings: %w", err)
	}
	return s, nil
}

func (r *settingsRepository) ListAutoCalculate(ctx context.Context) ([]payment.CompanyPaymentSettings, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + settingsColumns + `
		FROM company_payment_settings
		WHERE auto_calculate = TRUE
		ORDER BY company_id
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-calculate settings: %w", err)
	}
	defer rows.Close()

	var list []payment.CompanyPaymentSettings
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment settings: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
