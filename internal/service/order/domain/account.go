// internal/service/order/domain/account.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleClient   Role = "CLIENT"
	RoleReseller Role = "RESELLER"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleClient || r == RoleReseller || r == RoleAdmin
}

// Account 用 Role 区分买家、经销商与管理员；经销商专属字段仅在 RoleReseller 时有意义
type Account struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Role    Role
	Active  bool
	Address Address

	// reseller
	StoreName     string
	TaxID         string
	FeeBalance    decimal.Decimal // 欠平台的累计手续费
	PremiumActive bool
	PremiumUntil  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *Account) Validate() error {
	if a.Name == "" || a.Email == "" {
		return invalidArgument("account requires name and email")
	}
	if !a.Role.Valid() {
		return invalidArgument("unknown role %q", a.Role)
	}
	if a.Role == RoleReseller && a.StoreName == "" {
		return invalidArgument("reseller requires a store name")
	}
	return nil
}

func (a *Account) IsReseller() bool {
	return a.Role == RoleReseller
}

func (a *Account) requireReseller() error {
	if !a.IsReseller() {
		return invalidArgument("account %s is not a reseller", a.ID)
	}
	return nil
}

func (a *Account) AccrueFee(fee decimal.Decimal, now time.Time) error {
	if err := a.requireReseller(); err != nil {
		return err
	}
	a.FeeBalance = a.FeeBalance.Add(fee)
	a.UpdatedAt = now
	return nil
}

// SettleFees 扣减已结清的手续费，下限为 0；amount 为 nil 时清零
func (a *Account) SettleFees(amount *decimal.Decimal, now time.Time) error {
	if err := a.requireReseller(); err != nil {
		return err
	}
	if amount == nil {
		a.FeeBalance = decimal.Zero
	} else {
		if amount.IsNegative() {
			return invalidArgument("settled amount must not be negative")
		}
		a.FeeBalance = decimal.Max(decimal.Zero, a.FeeBalance.Sub(*amount))
	}
	a.UpdatedAt = now
	return nil
}

func (a *Account) ActivatePremium(days int, now time.Time) error {
	if err := a.requireReseller(); err != nil {
		return err
	}
	if days <= 0 {
		return invalidArgument("premium days must be positive, got %d", days)
	}
	until := now.AddDate(0, 0, days)
	a.PremiumActive = true
	a.PremiumUntil = &until
	a.UpdatedAt = now
	return nil
}

func (a *Account) DeactivatePremium(now time.Time) error {
	if err := a.requireReseller(); err != nil {
		return err
	}
	a.PremiumActive = false
	a.PremiumUntil = nil
	a.UpdatedAt = now
	return nil
}

func (a *Account) IsPremium(now time.Time) bool {
	return a.PremiumActive && a.PremiumUntil != nil && now.Before(*a.PremiumUntil)
}
