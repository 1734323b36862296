package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money 统一金额类型（整数货币单位，不保留小数）
type Money struct {
	decimal.Decimal
}

// MoneyPlaces 金额保留的小数位数
const MoneyPlaces int32 = 0

// NewMoneyFromDecimal 从 decimal 创建金额，按四舍五入取整
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: RoundHalfUp(amount)}
}

// NewMoney 从整数创建金额
func NewMoney(amount int64) Money {
	return Money{Decimal: decimal.NewFromInt(amount)}
}

// RoundHalfUp 按“逢五进一”取整到 MoneyPlaces 位
// decimal.Round 对正数即为向上进位，负数金额不会出现在计价链路中
func RoundHalfUp(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyPlaces)
}

// MarshalJSON 统一输出整数字符串
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON 解析金额（字符串或数字）
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		m.Decimal = RoundHalfUp(d)
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return err
	}
	m.Decimal = RoundHalfUp(d)
	return nil
}

// Value 用于数据库写入
func (m Money) Value() (driver.Value, error) {
	return RoundHalfUp(m.Decimal).Value()
}

// Scan 用于数据库读取
func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = RoundHalfUp(m.Decimal)
	return nil
}

// String 返回整数格式
func (m Money) String() string {
	return RoundHalfUp(m.Decimal).StringFixed(MoneyPlaces)
}
