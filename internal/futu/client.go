package futu

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	ftapi "github.com/futuopen/ftapi4go"
	"github.com/futuopen/ftapi4go/pb/trdcommon"
	"github.com/futuopen/ftapi4go/pb/trdunlocktrade"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"futu-trader/internal/config"
)

const (
	clientID  = "futu-trader"
	clientVer = 100
)

var sdkInitOnce sync.Once

// Client 持有 OpenD 网关的连接参数，按需创建并缓存行情与交易上下文。
// 同一个 Client 至多持有一条行情连接与一条交易连接，连接对象本身
// 不保证并发安全，调用方需自行串行化。
type Client struct {
	opend   config.OpenDConfig
	trading config.TradingConfig
	env     TrdEnv
	market  Market
	logger  *zap.Logger
	limiter *rateLimiter

	mu       sync.Mutex
	quoteCtx *QuoteContext
	tradeCtx *TradeContext
}

// NewClient 创建网关客户端。此时不建立连接，首次获取上下文时才拨号。
func NewClient(opend config.OpenDConfig, trading config.TradingConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	env, err := ParseEnv(trading.Env)
	if err != nil {
		return nil, err
	}
	market, err := ParseMarket(trading.Market)
	if err != nil {
		return nil, err
	}

	sdkInitOnce.Do(ftapi.FTAPI_Init)

	return &Client{
		opend:   opend,
		trading: trading,
		env:     env,
		market:  market,
		logger:  logger,
		limiter: newRateLimiter(opend.MaxRequestsPerSecond),
	}, nil
}

// Env 返回交易环境。
func (c *Client) Env() TrdEnv {
	return c.env
}

// Market 返回默认交易市场。
func (c *Client) Market() Market {
	return c.market
}

// QuoteContext 返回行情上下文，首次调用时建立连接。
func (c *Client) QuoteContext() (*QuoteContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.quoteCtx != nil {
		return c.quoteCtx, nil
	}

	qot := ftapi.NewFTAPI_Qot()
	qot.SetClientInfo(clientID, clientVer)

	waiter := newConnWaiter(c.logger)
	qot.SetConnCallback(waiter)
	qot.InitConnect(c.opend.Host, uint16(c.opend.Port), false)

	res, err := waiter.waitReady(c.opend.ConnTimeout)
	if err != nil {
		qot.Close()
		return nil, fmt.Errorf("futu: 行情连接建立失败: %w", err)
	}

	c.logger.Info("行情连接已建立",
		zap.String("host", c.opend.Host),
		zap.Int("port", c.opend.Port),
		zap.Uint64("conn_id", res.connID),
	)

	c.quoteCtx = newQuoteContext(qot, c.limiter, c.opend.RequestTimeout, c.logger)
	return c.quoteCtx, nil
}

// TradeContext 返回交易上下文，首次调用时建立连接。真实环境下如
// 配置了交易密码，会先完成解锁，解锁失败时连接被关闭并返回错误。
func (c *Client) TradeContext() (*TradeContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tradeCtx != nil {
		return c.tradeCtx, nil
	}

	trd := ftapi.NewFTAPI_Trd()
	trd.SetClientInfo(clientID, clientVer)

	waiter := newConnWaiter(c.logger)
	trd.SetConnCallback(waiter)
	trd.InitConnect(c.opend.Host, uint16(c.opend.Port), false)

	res, err := waiter.waitReady(c.opend.ConnTimeout)
	if err != nil {
		trd.Close()
		return nil, fmt.Errorf("futu: 交易连接建立失败: %w", err)
	}

	tradeCtx := newTradeContext(trd, res.connID, c.limiter, c.opend.RequestTimeout, c.logger)

	if c.env == EnvReal && c.trading.UnlockPassword != "" {
		if err := unlockTrade(tradeCtx, c.trading.UnlockPassword); err != nil {
			trd.Close()
			return nil, fmt.Errorf("futu: 交易解锁失败: %w", err)
		}
		c.logger.Info("交易解锁成功")
	}

	c.logger.Info("交易连接已建立",
		zap.String("host", c.opend.Host),
		zap.Int("port", c.opend.Port),
		zap.Uint64("conn_id", res.connID),
		zap.String("env", string(c.env)),
	)

	c.tradeCtx = tradeCtx
	return c.tradeCtx, nil
}

// Close 关闭全部已建立的连接。
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.quoteCtx != nil {
		c.quoteCtx.close()
		c.quoteCtx = nil
	}
	if c.tradeCtx != nil {
		c.tradeCtx.close()
		c.tradeCtx = nil
	}
}

func unlockTrade(tradeCtx *TradeContext, password string) error {
	sum := md5.Sum([]byte(password))
	req := &trdunlocktrade.Request{
		C2S: &trdunlocktrade.C2S{
			Unlock:       proto.Bool(true),
			PwdMD5:       proto.String(hex.EncodeToString(sum[:])),
			SecurityFirm: proto.Int32(int32(trdcommon.SecurityFirm_SecurityFirm_FutuSecurities)),
		},
	}
	return tradeCtx.unlock(req)
}

type connResult struct {
	connID  uint64
	errCode int64
	errDesc string
}

// connWaiter 把 SDK 的异步连接回调转成一次同步等待。
type connWaiter struct {
	once   sync.Once
	ready  chan connResult
	logger *zap.Logger
}

func newConnWaiter(logger *zap.Logger) *connWaiter {
	return &connWaiter{
		ready:  make(chan connResult, 1),
		logger: logger,
	}
}

// OnInitConnect 实现 SDK 的连接回调。
func (w *connWaiter) OnInitConnect(conn ftapi.FTAPI_Conn, errCode int64, errDesc string) {
	w.once.Do(func() {
		res := connResult{errCode: errCode, errDesc: errDesc}
		if errCode == 0 && conn != nil {
			res.connID = conn.GetConnID()
		}
		w.ready <- res
	})
}

// OnDisConnect 实现 SDK 的断连回调。本包不做自动重连。
func (w *connWaiter) OnDisConnect(conn ftapi.FTAPI_Conn, errCode int64) {
	w.logger.Warn("与 OpenD 连接断开", zap.Int64("err_code", errCode))
}

func (w *connWaiter) waitReady(timeout time.Duration) (connResult, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	select {
	case res := <-w.ready:
		if res.errCode != 0 {
			return res, fmt.Errorf("futu: 网关拒绝连接 err_code=%d desc=%q", res.errCode, res.errDesc)
		}
		return res, nil
	case <-time.After(timeout):
		return connResult{}, ErrTimeout
	}
}
