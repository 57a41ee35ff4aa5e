package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/crewdoghq/crewdog-client/internal/models"
)

// Потолки квоты по тарифам. Клиент держит собственные значения по
// умолчанию на случай, когда бэкенд недоступен.
const (
	freeSearchCap = 3
	proSearchCap  = 25
)

// ErrQuotaNotFound возвращается, когда у пользователя нет строки квоты.
var ErrQuotaNotFound = errors.New("account quota not found")

// GetQuota возвращает состояние квоты пользователя.
func (s *Storage) GetQuota(ctx context.Context, userUID string) (*models.AccountQuota, error) {
	const op = "storage.GetQuota"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, status, search_cap, used, unlimited, is_admin,
			      free_try_used, renewal_date, cancel_at_period_end
			  FROM account_summaries
			  WHERE user_uid = $1`
	q := &models.AccountQuota{}
	row := s.DB.QueryRowContext(ctx, query, userUID)

	var renewalDate sql.NullTime
	if err := row.Scan(&q.UserUID, &q.Status, &q.SearchCap, &q.Used, &q.Unlimited,
		&q.IsAdmin, &q.FreeTryUsed, &renewalDate, &q.CancelAtPeriodEnd); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrQuotaNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if renewalDate.Valid {
		q.RenewalDate = &renewalDate.Time
	}
	return q, nil
}

// ConsumeCredit атомарно списывает один поисковый кредит.
//
// Возвращает true, если списание прошло: счетчик ниже потолка либо аккаунт
// безлимитный (тогда счетчик не трогается). false означает исчерпанную квоту.
func (s *Storage) ConsumeCredit(ctx context.Context, userUID string) (bool, error) {
	const op = "storage.ConsumeCredit"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE account_summaries
			  SET used = CASE WHEN unlimited OR is_admin THEN used ELSE used + 1 END,
			      free_try_used = TRUE
			  WHERE user_uid = $1
			    AND (unlimited OR is_admin OR used < search_cap)`
	res, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}

// UpdateSubscriptionStatus переводит аккаунт между тарифами: статус и
// потолок меняются согласованно, счетчик сохраняется.
func (s *Storage) UpdateSubscriptionStatus(ctx context.Context, userUID, status string) error {
	const op = "storage.UpdateSubscriptionStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	searchCap := freeSearchCap
	switch status {
	case "active", "trialing", "past_due", "unpaid":
		searchCap = proSearchCap
	}

	query := `UPDATE account_summaries
			  SET status = $1, search_cap = $2
			  WHERE user_uid = $3`
	_, err := s.DB.ExecContext(ctx, query, status, searchCap, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
