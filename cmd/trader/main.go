package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"futu-trader/internal/config"
	"futu-trader/internal/futu"
	"futu-trader/internal/log"
)

func usage() {
	fmt.Fprintf(os.Stderr, `用法: trader [-config 路径] <子命令> [参数]

交易:
  place        -code HK.00700 -side BUY -kind LIMIT -price 380 -qty 100   下单
  cancel       -order-id 123                                              撤单
  cancel-all                                                              撤销全部待成交订单
  positions                                                               查询全部持仓
  position     -code HK.00700                                             查询单只持仓
  orders                                                                  查询今日订单
  filled                                                                  查询今日已成交订单
  pending                                                                 查询今日待成交订单
  account                                                                 查询账户资金
  max-qty      -code HK.00700 -price 380                                  查询最大可交易数量

行情:
  subscribe    -codes HK.00700,US.AAPL                                    订阅实时报价
  unsubscribe  -codes HK.00700                                            退订实时报价
  subs                                                                    查询订阅状态
  quote        -codes HK.00700,US.AAPL                                    获取实时报价
  klines       -code HK.00700 -period DAY -count 30                       获取历史K线
  cur-klines   -code HK.00700 -period MIN_1 -count 60                     获取实时K线
  snapshot     -codes HK.00700                                            获取市场快照

其他:
  journal      -limit 20                                                  查看本地下单流水
`)
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	client, err := futu.NewClient(cfg.OpenD, cfg.Trading, logger)
	if err != nil {
		logger.Error("初始化网关客户端失败", zap.Error(err))
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, client, logger, args[0], args[1:]); err != nil {
		logger.Error("命令执行失败", zap.String("command", args[0]), zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, client *futu.Client, logger *zap.Logger, command string, args []string) error {
	switch command {
	case "place":
		return cmdPlace(ctx, cfg, client, logger, args)
	case "cancel":
		return cmdCancel(ctx, cfg, client, logger, args)
	case "cancel-all":
		return cmdCancelAll(ctx, cfg, client, logger, args)
	case "positions":
		return cmdPositions(ctx, cfg, client, logger)
	case "position":
		return cmdPosition(ctx, cfg, client, logger, args)
	case "orders":
		return cmdOrders(ctx, cfg, client, logger, "all")
	case "filled":
		return cmdOrders(ctx, cfg, client, logger, "filled")
	case "pending":
		return cmdOrders(ctx, cfg, client, logger, "pending")
	case "account":
		return cmdAccount(ctx, cfg, client, logger)
	case "max-qty":
		return cmdMaxQty(ctx, cfg, client, logger, args)
	case "subscribe":
		return cmdSubscribe(ctx, client, logger, args, true)
	case "unsubscribe":
		return cmdSubscribe(ctx, client, logger, args, false)
	case "subs":
		return cmdSubs(ctx, client, logger)
	case "quote":
		return cmdQuote(ctx, client, logger, args)
	case "klines":
		return cmdKLines(ctx, client, logger, args, false)
	case "cur-klines":
		return cmdKLines(ctx, client, logger, args, true)
	case "snapshot":
		return cmdSnapshot(ctx, client, logger, args)
	case "journal":
		return cmdJournal(ctx, cfg, logger, args)
	default:
		usage()
		return fmt.Errorf("未知子命令 %q", command)
	}
}
