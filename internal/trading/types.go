// Package trading 封装下单、撤单与账户查询，把网关的 protobuf 结构
// 规整为平铺字段的结果类型。所有操作都在构造时解析好的账户上执行。
package trading

import (
	"errors"
	"fmt"
	"strings"

	"github.com/futuopen/ftapi4go/pb/trdcommon"
)

// Side 表示买卖方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide 解析买卖方向字符串。
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(s) {
	case string(SideBuy):
		return SideBuy, nil
	case string(SideSell):
		return SideSell, nil
	default:
		return "", fmt.Errorf("trading: 未知买卖方向 %q", s)
	}
}

func (s Side) protoSide() int32 {
	if s == SideSell {
		return int32(trdcommon.TrdSide_TrdSide_Sell)
	}
	return int32(trdcommon.TrdSide_TrdSide_Buy)
}

func sideFromProto(v int32) Side {
	switch trdcommon.TrdSide(v) {
	case trdcommon.TrdSide_TrdSide_Sell:
		return SideSell
	case trdcommon.TrdSide_TrdSide_SellShort:
		return Side("SELL_SHORT")
	case trdcommon.TrdSide_TrdSide_BuyBack:
		return Side("BUY_BACK")
	default:
		return SideBuy
	}
}

// OrderKind 表示订单类型，限价或市价。
type OrderKind string

const (
	KindLimit  OrderKind = "LIMIT"
	KindMarket OrderKind = "MARKET"
)

// ParseOrderKind 解析订单类型字符串。
func ParseOrderKind(s string) (OrderKind, error) {
	switch strings.ToUpper(s) {
	case string(KindLimit):
		return KindLimit, nil
	case string(KindMarket):
		return KindMarket, nil
	default:
		return "", fmt.Errorf("trading: 未知订单类型 %q", s)
	}
}

func (k OrderKind) protoOrderType() int32 {
	if k == KindMarket {
		return int32(trdcommon.OrderType_OrderType_Market)
	}
	return int32(trdcommon.OrderType_OrderType_Normal)
}

func kindFromProto(v int32) OrderKind {
	switch trdcommon.OrderType(v) {
	case trdcommon.OrderType_OrderType_Market:
		return KindMarket
	case trdcommon.OrderType_OrderType_Normal:
		return KindLimit
	default:
		return OrderKind("UNKNOWN")
	}
}

var orderStatusNames = map[int32]string{
	int32(trdcommon.OrderStatus_OrderStatus_Unsubmitted):    "UNSUBMITTED",
	int32(trdcommon.OrderStatus_OrderStatus_WaitingSubmit):  "WAITING_SUBMIT",
	int32(trdcommon.OrderStatus_OrderStatus_Submitting):     "SUBMITTING",
	int32(trdcommon.OrderStatus_OrderStatus_SubmitFailed):   "SUBMIT_FAILED",
	int32(trdcommon.OrderStatus_OrderStatus_TimeOut):        "TIMEOUT",
	int32(trdcommon.OrderStatus_OrderStatus_Submitted):      "SUBMITTED",
	int32(trdcommon.OrderStatus_OrderStatus_FilledPart):     "FILLED_PART",
	int32(trdcommon.OrderStatus_OrderStatus_FilledAll):      "FILLED_ALL",
	int32(trdcommon.OrderStatus_OrderStatus_CancellingPart): "CANCELLING_PART",
	int32(trdcommon.OrderStatus_OrderStatus_CancellingAll):  "CANCELLING_ALL",
	int32(trdcommon.OrderStatus_OrderStatus_CancelledPart):  "CANCELLED_PART",
	int32(trdcommon.OrderStatus_OrderStatus_CancelledAll):   "CANCELLED_ALL",
	int32(trdcommon.OrderStatus_OrderStatus_Failed):         "FAILED",
	int32(trdcommon.OrderStatus_OrderStatus_Disabled):       "DISABLED",
	int32(trdcommon.OrderStatus_OrderStatus_Deleted):        "DELETED",
}

func statusFromProto(v int32) string {
	if name, ok := orderStatusNames[v]; ok {
		return name
	}
	return "UNKNOWN"
}

// PlaceOrderRequest 描述一次下单请求。Price 为 0 配合市价单使用，
// 网关撮合时忽略市价单的价格字段。
type PlaceOrderRequest struct {
	Code   string
	Price  float64
	Qty    int64
	Side   Side
	Kind   OrderKind
	Remark string
}

// Validate 做本地入参校验。限价单价格必须为正；市价单的价格按原样
// 转发，网关不使用该值，价格与订单类型之间不做其他一致性推断。
func (r PlaceOrderRequest) Validate() error {
	if r.Code == "" {
		return errors.New("trading: 证券代码不能为空")
	}
	if r.Qty <= 0 {
		return fmt.Errorf("trading: 下单数量必须为正，当前为 %d", r.Qty)
	}
	if r.Price < 0 {
		return fmt.Errorf("trading: 下单价格不能为负，当前为 %f", r.Price)
	}
	if r.Side != SideBuy && r.Side != SideSell {
		return fmt.Errorf("trading: 未知买卖方向 %q", r.Side)
	}
	switch r.Kind {
	case KindLimit:
		if r.Price == 0 {
			return errors.New("trading: 限价单价格必须大于0")
		}
	case KindMarket:
	default:
		return fmt.Errorf("trading: 未知订单类型 %q", r.Kind)
	}
	return nil
}

// PlaceOrderResult 为下单回执，OrderID 由网关分配。
type PlaceOrderResult struct {
	OrderID uint64
	Code    string
	Qty     int64
	Price   float64
	Side    Side
	Kind    OrderKind
	Status  string
}

// Order 为今日订单的只读快照。
type Order struct {
	OrderID    uint64
	Code       string
	Name       string
	Qty        float64
	Price      float64
	FilledQty  float64
	FilledAvg  float64
	Side       Side
	Kind       OrderKind
	Status     string
	CreateTime string
	UpdateTime string
}

// Position 为持仓的只读快照，查询时点有效，本地不做缓存。
type Position struct {
	Code       string
	Name       string
	Qty        float64
	CanSellQty float64
	Price      float64
	CostPrice  float64
	MarketVal  float64
	PLVal      float64
	PLRatio    float64
}

// AccountInfo 为账户资金概览。
type AccountInfo struct {
	Power          float64
	TotalAssets    float64
	Cash           float64
	MarketVal      float64
	FrozenCash     float64
	AvailableFunds float64
}

// MaxTradableQty 为某只证券在给定价格下的最大可交易数量。
type MaxTradableQty struct {
	Code                string
	MaxCashBuy          float64
	MaxCashAndMarginBuy float64
	MaxPositionSell     float64
}

// CancelResult 为单笔撤单结果，批量撤单时逐单记录失败原因。
type CancelResult struct {
	OrderID uint64
	Err     error
}
