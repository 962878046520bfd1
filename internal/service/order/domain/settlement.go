// internal/service/order/domain/settlement.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultFeeRate 平台手续费率 5%
var DefaultFeeRate = decimal.RequireFromString("0.05")

// Settlement 是一次手续费结算的结果
type Settlement struct {
	OrderID    string
	ResellerID string
	Fee        decimal.Decimal
	NetAmount  decimal.Decimal
}

// SettleFee 在订单首次确认支付时计算平台手续费并计入经销商余额。
// 订单已有 PlatformFee 时直接返回 (nil, nil)，重复的确认事件不会重复记账
func SettleFee(order *Order, seller *Account, rate decimal.Decimal, now time.Time) (*Settlement, error) {
	if order.PlatformFee != nil {
		return nil, nil
	}
	if seller.ID != order.SellerID {
		return nil, invalidArgument("account %s is not the seller of order %s", seller.ID, order.ID)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, invalidArgument("fee rate must be within [0, 1], got %s", rate)
	}

	fee := order.Total.Mul(rate).Round(2)
	net := order.Total.Sub(fee)
	if err := seller.AccrueFee(fee, now); err != nil {
		return nil, err
	}
	order.PlatformFee = &fee
	order.NetAmountToSeller = &net
	order.FeeSettled = false
	order.UpdatedAt = now

	return &Settlement{OrderID: order.ID, ResellerID: seller.ID, Fee: fee, NetAmount: net}, nil
}
