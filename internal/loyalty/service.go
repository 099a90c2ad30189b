package loyalty

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service answers balance queries for the rewards screens.
type Service struct {
	pool *pgxpool.Pool
	goal int
}

// NewService builds Service. goal is the points needed for the main reward.
func NewService(pool *pgxpool.Pool, goal int) *Service {
	if goal <= 0 {
		goal = 10
	}
	return &Service{pool: pool, goal: goal}
}

// NormalizePhone keeps digits only. Anything fancier (country codes, E.164)
// stays out of scope.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BalanceByPhone looks up a customer's balance and reward progress.
func (s *Service) BalanceByPhone(ctx context.Context, rawPhone string) (RewardProgress, error) {
	phone := NormalizePhone(rawPhone)
	if phone == "" {
		return RewardProgress{}, ErrInvalidPhone
	}
	var customerID int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM loyalty_customers WHERE phone=$1`, phone).Scan(&customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RewardProgress{}, ErrCustomerNotFound
		}
		return RewardProgress{}, err
	}
	balance, err := Balance(ctx, s.pool, customerID)
	if err != nil {
		return RewardProgress{}, err
	}
	return Progress(balance, s.goal), nil
}
