package trading

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/futuopen/ftapi4go/pb/trdcommon"
	"github.com/futuopen/ftapi4go/pb/trdgetacclist"
	"github.com/futuopen/ftapi4go/pb/trdgetfunds"
	"github.com/futuopen/ftapi4go/pb/trdgetmaxtrdqtys"
	"github.com/futuopen/ftapi4go/pb/trdgetorderlist"
	"github.com/futuopen/ftapi4go/pb/trdgetpositionlist"
	"github.com/futuopen/ftapi4go/pb/trdmodifyorder"
	"github.com/futuopen/ftapi4go/pb/trdplaceorder"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"futu-trader/internal/config"
	"futu-trader/internal/futu"
)

// tradeAPI 抽象交易上下文，方便在测试中用 mock 替换真实网关连接。
type tradeAPI interface {
	PlaceOrder(ctx context.Context, req *trdplaceorder.Request) (*trdplaceorder.Response, error)
	ModifyOrder(ctx context.Context, req *trdmodifyorder.Request) (*trdmodifyorder.Response, error)
	GetOrderList(ctx context.Context, req *trdgetorderlist.Request) (*trdgetorderlist.Response, error)
	GetPositionList(ctx context.Context, req *trdgetpositionlist.Request) (*trdgetpositionlist.Response, error)
	GetFunds(ctx context.Context, req *trdgetfunds.Request) (*trdgetfunds.Response, error)
	GetAccList(ctx context.Context, req *trdgetacclist.Request) (*trdgetacclist.Response, error)
	GetMaxTrdQtys(ctx context.Context, req *trdgetmaxtrdqtys.Request) (*trdgetmaxtrdqtys.Response, error)
}

var _ tradeAPI = (*futu.TradeContext)(nil)

// Manager 在一个已解析的交易账户上执行全部交易操作。账户在构造时
// 解析一次，之后统一附加到每个请求头上。Manager 不保存其他状态，
// 重复下单会产生重复订单，去重由调用方负责。
type Manager struct {
	api    tradeAPI
	env    futu.TrdEnv
	market futu.Market
	accID  uint64
	header *trdcommon.TrdHeader
	logger *zap.Logger
}

// NewManager 创建交易管理器并解析交易账户。配置了 account_id 时
// 直接使用；否则查询账户列表，取第一个匹配环境与市场的账户。
func NewManager(ctx context.Context, api tradeAPI, cfg config.TradingConfig, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	env, err := futu.ParseEnv(cfg.Env)
	if err != nil {
		return nil, err
	}
	market, err := futu.ParseMarket(cfg.Market)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		api:    api,
		env:    env,
		market: market,
		logger: logger,
	}

	accID, err := m.resolveAccountID(ctx, cfg.AccountID)
	if err != nil {
		return nil, err
	}

	m.accID = accID
	m.header = &trdcommon.TrdHeader{
		TrdEnv:    proto.Int32(env.ProtoEnv()),
		AccID:     proto.Uint64(accID),
		TrdMarket: proto.Int32(market.TrdMarket()),
	}

	logger.Info("交易账户已解析",
		zap.Uint64("acc_id", accID),
		zap.String("env", string(env)),
		zap.String("market", string(market)),
	)

	return m, nil
}

// AccountID 返回解析后的交易账户。
func (m *Manager) AccountID() uint64 {
	return m.accID
}

func (m *Manager) resolveAccountID(ctx context.Context, configured string) (uint64, error) {
	if configured != "" {
		accID, err := strconv.ParseUint(configured, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("trading: 解析配置的账户ID %q 失败: %w", configured, err)
		}
		return accID, nil
	}

	req := &trdgetacclist.Request{
		C2S: &trdgetacclist.C2S{
			UserID:                proto.Uint64(0),
			NeedGeneralSecAccount: proto.Bool(true),
		},
	}

	resp, err := m.api.GetAccList(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("trading: 查询账户列表失败: %w", err)
	}

	wantMarket := m.market.TrdMarket()
	for _, acc := range resp.GetS2C().GetAccList() {
		if acc.GetTrdEnv() != m.env.ProtoEnv() {
			continue
		}
		for _, authed := range acc.GetTrdMarketAuthList() {
			if authed == wantMarket {
				return acc.GetAccID(), nil
			}
		}
	}

	return 0, fmt.Errorf("trading: 未找到匹配 env=%s market=%s 的交易账户", m.env, m.market)
}

// PlaceOrder 下单。价格、数量、方向与订单类型原样转发给网关，本地
// 不做重复提交检测。
func (m *Manager) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (PlaceOrderResult, error) {
	if err := req.Validate(); err != nil {
		return PlaceOrderResult{}, err
	}

	sec, err := futu.ParseCode(req.Code)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	protoReq := &trdplaceorder.Request{
		C2S: &trdplaceorder.C2S{
			Header:    m.header,
			TrdSide:   proto.Int32(req.Side.protoSide()),
			OrderType: proto.Int32(req.Kind.protoOrderType()),
			Code:      proto.String(sec.Symbol),
			Qty:       proto.Float64(float64(req.Qty)),
			Price:     proto.Float64(req.Price),
			SecMarket: proto.Int32(sec.Market.SecMarket()),
		},
	}
	if req.Remark != "" {
		protoReq.C2S.Remark = proto.String(req.Remark)
	}

	resp, err := m.api.PlaceOrder(ctx, protoReq)
	if err != nil {
		return PlaceOrderResult{}, fmt.Errorf("trading: 下单失败: %w", err)
	}

	result := PlaceOrderResult{
		OrderID: resp.GetS2C().GetOrderID(),
		Code:    req.Code,
		Qty:     req.Qty,
		Price:   req.Price,
		Side:    req.Side,
		Kind:    req.Kind,
		Status:  "PLACED",
	}

	m.logger.Info("下单已提交",
		zap.Uint64("order_id", result.OrderID),
		zap.String("code", result.Code),
		zap.Int64("qty", result.Qty),
		zap.Float64("price", result.Price),
		zap.String("side", string(result.Side)),
		zap.String("kind", string(result.Kind)),
	)

	return result, nil
}

// CancelOrder 撤销一笔未成交订单。
func (m *Manager) CancelOrder(ctx context.Context, orderID uint64) error {
	protoReq := &trdmodifyorder.Request{
		C2S: &trdmodifyorder.C2S{
			Header:        m.header,
			OrderID:       proto.Uint64(orderID),
			ModifyOrderOp: proto.Int32(int32(trdcommon.ModifyOrderOp_ModifyOrderOp_Cancel)),
		},
	}

	if _, err := m.api.ModifyOrder(ctx, protoReq); err != nil {
		return fmt.Errorf("trading: 撤单失败 order_id=%d: %w", orderID, err)
	}

	m.logger.Info("撤单已提交", zap.Uint64("order_id", orderID))
	return nil
}

// CancelAllOrders 撤销全部未成交订单：先查询一次待成交订单，再逐单
// 发起撤销，单笔失败不中断后续撤单，逐单记录在结果中。
func (m *Manager) CancelAllOrders(ctx context.Context) ([]CancelResult, error) {
	pending, err := m.PendingOrders(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]CancelResult, 0, len(pending))
	for _, order := range pending {
		results = append(results, CancelResult{
			OrderID: order.OrderID,
			Err:     m.CancelOrder(ctx, order.OrderID),
		})
	}

	return results, nil
}

// TodayOrders 查询今日全部订单。
func (m *Manager) TodayOrders(ctx context.Context) ([]Order, error) {
	return m.queryOrders(ctx, nil)
}

// FilledOrders 查询今日已成交（含部分成交）订单。
func (m *Manager) FilledOrders(ctx context.Context) ([]Order, error) {
	return m.queryOrders(ctx, []int32{
		int32(trdcommon.OrderStatus_OrderStatus_FilledPart),
		int32(trdcommon.OrderStatus_OrderStatus_FilledAll),
	})
}

// PendingOrders 查询今日待成交订单。
func (m *Manager) PendingOrders(ctx context.Context) ([]Order, error) {
	return m.queryOrders(ctx, []int32{
		int32(trdcommon.OrderStatus_OrderStatus_WaitingSubmit),
		int32(trdcommon.OrderStatus_OrderStatus_Submitted),
	})
}

// codeWithPrefix 按逐行返回的证券市场还原带前缀代码。网关未填
// secMarket 时退回配置的默认市场（沪深账户下两个市场共用 TrdMarket_CN，
// 不能用配置市场反推单行的前缀）。
func (m *Manager) codeWithPrefix(secMarket int32, symbol string) string {
	if market, ok := futu.MarketFromSecMarket(secMarket); ok {
		return string(market) + "." + symbol
	}
	return string(m.market) + "." + symbol
}

func (m *Manager) queryOrders(ctx context.Context, statusFilter []int32) ([]Order, error) {
	protoReq := &trdgetorderlist.Request{
		C2S: &trdgetorderlist.C2S{
			Header:           m.header,
			FilterStatusList: statusFilter,
		},
	}

	resp, err := m.api.GetOrderList(ctx, protoReq)
	if err != nil {
		return nil, fmt.Errorf("trading: 查询订单失败: %w", err)
	}

	raw := resp.GetS2C().GetOrderList()
	orders := make([]Order, 0, len(raw))
	for _, o := range raw {
		orders = append(orders, Order{
			OrderID:    o.GetOrderID(),
			Code:       m.codeWithPrefix(o.GetSecMarket(), o.GetCode()),
			Name:       o.GetName(),
			Qty:        o.GetQty(),
			Price:      o.GetPrice(),
			FilledQty:  o.GetFillQty(),
			FilledAvg:  o.GetFillAvgPrice(),
			Side:       sideFromProto(o.GetTrdSide()),
			Kind:       kindFromProto(o.GetOrderType()),
			Status:     statusFromProto(o.GetOrderStatus()),
			CreateTime: o.GetCreateTime(),
			UpdateTime: o.GetUpdateTime(),
		})
	}

	return orders, nil
}

// Positions 查询全部持仓。
func (m *Manager) Positions(ctx context.Context) ([]Position, error) {
	return m.queryPositions(ctx, "")
}

// Position 查询单只证券的持仓，无持仓时返回 nil。
func (m *Manager) Position(ctx context.Context, code string) (*Position, error) {
	sec, err := futu.ParseCode(code)
	if err != nil {
		return nil, err
	}

	positions, err := m.queryPositions(ctx, sec.Symbol)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, nil
	}
	return &positions[0], nil
}

func (m *Manager) queryPositions(ctx context.Context, symbol string) ([]Position, error) {
	c2s := &trdgetpositionlist.C2S{
		Header: m.header,
	}
	if symbol != "" {
		c2s.FilterConditions = &trdcommon.TrdFilterConditions{
			CodeList: []string{symbol},
		}
	}

	resp, err := m.api.GetPositionList(ctx, &trdgetpositionlist.Request{C2S: c2s})
	if err != nil {
		return nil, fmt.Errorf("trading: 查询持仓失败: %w", err)
	}

	raw := resp.GetS2C().GetPositionList()
	positions := make([]Position, 0, len(raw))
	for _, p := range raw {
		positions = append(positions, Position{
			Code:       m.codeWithPrefix(p.GetSecMarket(), p.GetCode()),
			Name:       p.GetName(),
			Qty:        p.GetQty(),
			CanSellQty: p.GetCanSellQty(),
			Price:      p.GetPrice(),
			CostPrice:  p.GetCostPrice(),
			MarketVal:  p.GetVal(),
			PLVal:      p.GetPlVal(),
			PLRatio:    p.GetPlRatio(),
		})
	}

	return positions, nil
}

// AccountInfo 查询账户资金概览。
func (m *Manager) AccountInfo(ctx context.Context) (AccountInfo, error) {
	protoReq := &trdgetfunds.Request{
		C2S: &trdgetfunds.C2S{
			Header: m.header,
		},
	}

	resp, err := m.api.GetFunds(ctx, protoReq)
	if err != nil {
		return AccountInfo{}, fmt.Errorf("trading: 查询账户资金失败: %w", err)
	}

	funds := resp.GetS2C().GetFunds()
	if funds == nil {
		return AccountInfo{}, errors.New("trading: 网关返回的资金数据为空")
	}

	return AccountInfo{
		Power:          funds.GetPower(),
		TotalAssets:    funds.GetTotalAssets(),
		Cash:           funds.GetCash(),
		MarketVal:      funds.GetMarketVal(),
		FrozenCash:     funds.GetFrozenCash(),
		AvailableFunds: funds.GetAvlWithdrawalCash(),
	}, nil
}

// MaxQty 查询给定价格下的最大可交易数量，数量约束（如每手股数）
// 由交易所与网关决定，本地不做校验。
func (m *Manager) MaxQty(ctx context.Context, code string, price float64) (MaxTradableQty, error) {
	sec, err := futu.ParseCode(code)
	if err != nil {
		return MaxTradableQty{}, err
	}

	protoReq := &trdgetmaxtrdqtys.Request{
		C2S: &trdgetmaxtrdqtys.C2S{
			Header:    m.header,
			OrderType: proto.Int32(int32(trdcommon.OrderType_OrderType_Normal)),
			Code:      proto.String(sec.Symbol),
			Price:     proto.Float64(price),
			SecMarket: proto.Int32(sec.Market.SecMarket()),
		},
	}

	resp, err := m.api.GetMaxTrdQtys(ctx, protoReq)
	if err != nil {
		return MaxTradableQty{}, fmt.Errorf("trading: 查询最大可交易数量失败: %w", err)
	}

	qtys := resp.GetS2C().GetMaxTrdQtys()
	if qtys == nil {
		return MaxTradableQty{}, errors.New("trading: 网关返回的数量数据为空")
	}

	return MaxTradableQty{
		Code:                code,
		MaxCashBuy:          qtys.GetMaxCashBuy(),
		MaxCashAndMarginBuy: qtys.GetMaxCashAndMarginBuy(),
		MaxPositionSell:     qtys.GetMaxPositionSell(),
	}, nil
}
