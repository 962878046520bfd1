package application

import (
	"time"

	"partsmarket/internal/service/order/domain"

	"github.com/shopspring/decimal"
)

// Config 收拢了业务参数，由 bootstrap 配置注入
type Config struct {
	FeeRate            decimal.Decimal
	ReversalWindow     time.Duration
	DefaultPremiumDays int
}

func DefaultConfig() Config {
	return Config{
		FeeRate:            domain.DefaultFeeRate,
		ReversalWindow:     domain.DefaultReversalWindow,
		DefaultPremiumDays: 30,
	}
}
