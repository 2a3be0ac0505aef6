package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"futu-trader/internal/config"
	"futu-trader/internal/futu"
	"futu-trader/internal/journal"
	"futu-trader/internal/marketdata"
	"futu-trader/internal/trading"
)

func newTradingManager(ctx context.Context, cfg *config.Config, client *futu.Client, logger *zap.Logger) (*trading.Manager, error) {
	tradeCtx, err := client.TradeContext()
	if err != nil {
		return nil, err
	}
	return trading.NewManager(ctx, tradeCtx, cfg.Trading, logger)
}

func newMarketDataClient(client *futu.Client, logger *zap.Logger) (*marketdata.Client, error) {
	quoteCtx, err := client.QuoteContext()
	if err != nil {
		return nil, err
	}
	return marketdata.NewClient(quoteCtx, logger), nil
}

// openJournal 打开本地流水库；未启用时返回 nil，调用方需判空。
func openJournal(cfg *config.Config, logger *zap.Logger) (*journal.Journal, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	return journal.Open(cfg.Journal, logger)
}

func cmdPlace(ctx context.Context, cfg *config.Config, client *futu.Client, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("place", flag.ExitOnError)
	code := fs.String("code", "", "证券代码，如 HK.00700")
	side := fs.String("side", "", "买卖方向 BUY|SELL")
	kind := fs.String("kind", "LIMIT", "订单类型 LIMIT|MARKET")
	price := fs.Float64("price", 0, "委托价格，市价单可为0")
	qty := fs.Int64("qty", 0, "委托数量")
	remark := fs.String("remark", "", "订单备注")
	if err := fs.Parse(args); err != nil {
		return err
	}

	parsedSide, err := trading.ParseSide(*side)
	if err != nil {
		return err
	}
	parsedKind, err := trading.ParseOrderKind(*kind)
	if err != nil {
		return err
	}

	manager, err := newTradingManager(ctx, cfg, client, logger)
	if err != nil {
		return err
	}

	result, err := manager.PlaceOrder(ctx, trading.PlaceOrderRequest{
		Code:   *code,
		Price:  *price,
		Qty:    *qty,
		Side:   parsedSide,
		Kind:   parsedKind,
		Remark: *remark,
	})
	if err != nil {
		return err
	}

	fmt.Printf("下单成功 order_id=%d code=%s qty=%d price=%.3f side=%s kind=%s\n",
		result.OrderID, result.Code, result.Qty, result.Price, result.Side, result.Kind)

	return recordPlace(ctx, cfg, logger, manager, result)
}

func recordPlace(ctx context.Context, cfg *config.Config, logger *zap.Logger, manager *trading.Manager, result trading.PlaceOrderResult) error {
	jnl, err := openJournal(cfg, logger)
	if err != nil {
		// 流水只作审计，打开失败不影响已完成的下单
		logger.Warn("打开本地流水库失败", zap.Error(err))
		return nil
	}
	if jnl == nil {
		return nil
	}
	defer jnl.Close()

	if err := jnl.RecordPlace(ctx, manager.AccountID(), cfg.Trading.Env, result); err != nil {
		// 写入失败同样只告警
		logger.Warn("写入下单流水失败", zap.Error(err))
	}
	return nil
}

func cmdCancel(ctx context.Context, cfg *config.Config, client *futu.Client, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	orderID := fs.Uint64("order-id", 0, "待撤销的订单ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *orderID == 0 {
		return fmt.Errorf("cancel: 必须指定 -order-id")
	}

	manager, err := newTradingManager(ctx, cfg, client, logger)
	if err != nil {
		return err
	}

	if err := manager.CancelOrder(ctx, *orderID); err != nil {
		return err
	}
	fmt.Printf("撤单成功 order_id=%d\n", *orderID)

	return recordCancel(ctx, cfg, logger, manager, *orderID)
}

func recordCancel(ctx context.Context, cfg *config.Config, logger *zap.Logger, manager *trading.Manager, orderID uint64) error {
	jnl, err := openJournal(cfg, logger)
	if err != nil {
		// 流水只作审计，打开失败不影响已完成的撤单
		logger.Warn("打开本地流水库失败", zap.Error(err))
		return nil
	}
	if jnl == nil {
		return nil
	}
	defer jnl.Close()

	if err := jnl.RecordCancel(ctx, manager.AccountID(), cfg.Trading.Env, orderID); err != nil {
		logger.Warn("写入撤单流水失败", zap.Error(err))
	}
	return nil
}

func cmdCancelAll(ctx context.Context, cfg *config.Config, client *futu.Client, logger *zap.Logger, args []string) error {
	manager, err := newTradingManager(ctx, cfg, client, logger)
	if err != nil {
		return err
	}

	results, err := manager.CancelAllOrders(ctx)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("没有待成交订单")
		return nil
	}

	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("撤单失败 order_id=%d err=%v\n", r.OrderID, r.Err)
			continue
		}
		fmt.Printf("撤单成功 order_id=%d\n", r.OrderID)
		_ = recordCancel(ctx, cfg, logger, manager, r.OrderID)
	}

	return nil
}

func cmdPositions(ctx context.Context, cfg *config.Config, client *futu.Client, logger *zap.Logger) error {
	manager, err := newTradingManager(ctx, cfg, client, logger)
	if err != nil {
		return err
	}

	positions, err := manager.Positions(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("持仓共 %d 只\n", len(positions))
	for _, p := range positions {
		fmt.Printf("  %-12s qty=%.0f cost_price=%.3f market_val=%.2f pl_val=%.2f\n",
			p.Code, p.Qty, p.CostPrice, p.MarketVal, p.PLVal)
	}
	return nil
}

func cmdPosition(ctx context.Context, cfg *config.Config, client *futu.Client, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("position", flag.ExitOnError)
	code := fs.String("code", "", "证券代码，如 HK.00700")
	if err := fs.Parse(args); err != nil {
		return err
	}

	manager, err := newTradingManager(ctx, cfg, client, logger)
	if err != nil {
		return err
	}

	position, err := manager.Position(ctx, *code)
	if err != nil {
		return err
	}
	if position == nil {
		fmt.Printf("%s 无持仓\n", *code)
		return nil
	}

	fmt.Printf("%s qty=%.0f can_sell=%.0f cost_price=%.3f price=%.3f pl_val=%.2f\n",
		position.Code, position.Qty, position.CanSellQty, position.CostPrice, position.Price, position.PLVal)
	return nil
}

func cmdOrders(ctx context.Context, cfg *config.Config, client *futu.Client, logger *zap.Logger, scope string) error {
	manager, err := newTradingManager(ctx, cfg, client, logger)
	if err != nil {
		return err
	}

	var orders []trading.Order
	switch scope {
	case "filled":
		orders, err = manager.FilledOrders(ctx)
	case "pending":
		orders, err = manager.PendingOrders(ctx)
	default:
		orders, err = manager.TodayOrders(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Printf("订单共 %d 笔\n", len(orders))
	for _, o := range orders {
		fmt.Printf("  #%d %-12s %s %s qty=%.0f price=%.3f filled=%.0f status=%s\n",
			o.OrderID, o.Code, o.Side, o.Kind, o.Qty, o.Price, o.FilledQty, o.Status)
	}
	return nil
}

func cmdAccount(ctx context.Context, cfg *config.Config, client *futu.Client, logger *zap.Logger) error {
	manager, err := newTradingManager(ctx, cfg, client, logger)
	if err != nil {
		return err
	}

	info, err := manager.AccountInfo(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("acc_id=%d total_assets=%.2f cash=%.2f market_val=%.2f power=%.2f frozen=%.2f\n",
		manager.AccountID(), info.TotalAssets, info.Cash, info.MarketVal, info.Power, info.FrozenCash)
	return nil
}

func cmdMaxQty(ctx context.Context, cfg *config.Config, client *futu.Client, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("max-qty", flag.ExitOnError)
	code := fs.String("code", "", "证券代码，如 HK.00700")
	price := fs.Float64("price", 0, "参考价格")
	if err := fs.Parse(args); err != nil {
		return err
	}

	manager, err := newTradingManager(ctx, cfg, client, logger)
	if err != nil {
		return err
	}

	qtys, err := manager.MaxQty(ctx, *code, *price)
	if err != nil {
		return err
	}

	fmt.Printf("%s max_cash_buy=%.0f max_margin_buy=%.0f max_sell=%.0f\n",
		qtys.Code, qtys.MaxCashBuy, qtys.MaxCashAndMarginBuy, qtys.MaxPositionSell)
	return nil
}

func splitCodes(raw string) []string {
	parts := strings.Split(raw, ",")
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			codes = append(codes, trimmed)
		}
	}
	return codes
}

func cmdSubscribe(ctx context.Context, client *futu.Client, logger *zap.Logger, args []string, sub bool) error {
	name := "subscribe"
	if !sub {
		name = "unsubscribe"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	codes := fs.String("codes", "", "证券代码，逗号分隔")
	if err := fs.Parse(args); err != nil {
		return err
	}

	md, err := newMarketDataClient(client, logger)
	if err != nil {
		return err
	}

	list := splitCodes(*codes)
	if sub {
		if err := md.Subscribe(ctx, list...); err != nil {
			return err
		}
		fmt.Printf("已订阅 %s\n", strings.Join(list, ", "))
		return nil
	}
	if err := md.Unsubscribe(ctx, list...); err != nil {
		return err
	}
	fmt.Printf("已退订 %s\n", strings.Join(list, ", "))
	return nil
}

func cmdSubs(ctx context.Context, client *futu.Client, logger *zap.Logger) error {
	md, err := newMarketDataClient(client, logger)
	if err != nil {
		return err
	}

	subs, err := md.Subscriptions(ctx)
	if err != nil {
		return err
	}

	if len(subs) == 0 {
		fmt.Println("当前没有任何订阅")
		return nil
	}
	for _, s := range subs {
		fmt.Printf("%-10s %s\n", s.SubType, strings.Join(s.Codes, ", "))
	}
	return nil
}

func cmdQuote(ctx context.Context, client *futu.Client, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("quote", flag.ExitOnError)
	codes := fs.String("codes", "", "证券代码，逗号分隔")
	if err := fs.Parse(args); err != nil {
		return err
	}

	md, err := newMarketDataClient(client, logger)
	if err != nil {
		return err
	}

	quotes, err := md.Quotes(ctx, splitCodes(*codes)...)
	if err != nil {
		return err
	}

	for _, q := range quotes {
		fmt.Printf("%-12s last_price=%.3f change=%.2f%% open=%.3f high=%.3f low=%.3f volume=%d\n",
			q.Code, q.CurPrice, q.ChangeRate(), q.OpenPrice, q.HighPrice, q.LowPrice, q.Volume)
	}
	return nil
}

func cmdKLines(ctx context.Context, client *futu.Client, logger *zap.Logger, args []string, current bool) error {
	name := "klines"
	if current {
		name = "cur-klines"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	code := fs.String("code", "", "证券代码，如 HK.00700")
	period := fs.String("period", "DAY", "K线周期 MIN_1|MIN_5|MIN_15|MIN_30|MIN_60|DAY|WEEK|MONTH|YEAR")
	count := fs.Int("count", 100, "K线数量")
	if err := fs.Parse(args); err != nil {
		return err
	}

	parsedPeriod, err := marketdata.ParsePeriod(*period)
	if err != nil {
		return err
	}

	md, err := newMarketDataClient(client, logger)
	if err != nil {
		return err
	}

	var klines []marketdata.KLine
	if current {
		klines, err = md.CurKLines(ctx, *code, parsedPeriod, *count)
	} else {
		klines, err = md.KLines(ctx, *code, parsedPeriod, *count)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s %s 共 %d 根\n", *code, parsedPeriod, len(klines))
	for _, k := range klines {
		fmt.Printf("  %s open=%.3f high=%.3f low=%.3f close=%.3f volume=%d\n",
			k.Time, k.Open, k.High, k.Low, k.Close, k.Volume)
	}
	return nil
}

func cmdSnapshot(ctx context.Context, client *futu.Client, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	codes := fs.String("codes", "", "证券代码，逗号分隔")
	if err := fs.Parse(args); err != nil {
		return err
	}

	md, err := newMarketDataClient(client, logger)
	if err != nil {
		return err
	}

	snapshots, err := md.MarketSnapshot(ctx, splitCodes(*codes)...)
	if err != nil {
		return err
	}

	for _, s := range snapshots {
		fmt.Printf("%-12s cur=%.3f last_close=%.3f lot_size=%d volume=%d suspended=%v\n",
			s.Code, s.CurPrice, s.LastClosePrice, s.LotSize, s.Volume, s.Suspended)
	}
	return nil
}

func cmdJournal(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	limit := fs.Int("limit", 20, "显示条数")
	if err := fs.Parse(args); err != nil {
		return err
	}

	jnl, err := openJournal(cfg, logger)
	if err != nil {
		return err
	}
	if jnl == nil {
		fmt.Println("本地流水未启用 (journal.enabled=false)")
		return nil
	}
	defer jnl.Close()

	entries, err := jnl.Recent(ctx, *limit)
	if err != nil {
		return err
	}

	for _, e := range entries {
		switch e.Action {
		case journal.ActionPlace:
			fmt.Printf("%s %-6s #%d %s %s %s qty=%d price=%.3f env=%s\n",
				e.OccurredAt, e.Action, e.OrderID, e.Code, e.Side, e.Kind, e.Qty, e.Price, e.Env)
		default:
			fmt.Printf("%s %-6s #%d env=%s\n", e.OccurredAt, e.Action, e.OrderID, e.Env)
		}
	}
	return nil
}
