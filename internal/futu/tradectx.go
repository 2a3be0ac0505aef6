package futu

import (
	"context"
	"sync/atomic"
	"time"

	ftapi "github.com/futuopen/ftapi4go"
	"github.com/futuopen/ftapi4go/pb/common"
	"github.com/futuopen/ftapi4go/pb/trdgetacclist"
	"github.com/futuopen/ftapi4go/pb/trdgetfunds"
	"github.com/futuopen/ftapi4go/pb/trdgetmaxtrdqtys"
	"github.com/futuopen/ftapi4go/pb/trdgetorderlist"
	"github.com/futuopen/ftapi4go/pb/trdgetpositionlist"
	"github.com/futuopen/ftapi4go/pb/trdmodifyorder"
	"github.com/futuopen/ftapi4go/pb/trdplaceorder"
	"github.com/futuopen/ftapi4go/pb/trdunlocktrade"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

// TradeContext 是交易连接上的同步调用封装。每个方法对应 OpenD 的
// 一条交易协议，失败统一以 error 返回，不做重试。
type TradeContext struct {
	trd     *ftapi.FTAPI_Trd
	connID  uint64
	serial  uint32
	limiter *rateLimiter
	timeout time.Duration
	logger  *zap.Logger
}

func newTradeContext(trd *ftapi.FTAPI_Trd, connID uint64, limiter *rateLimiter, timeout time.Duration, logger *zap.Logger) *TradeContext {
	return &TradeContext{
		trd:     trd,
		connID:  connID,
		limiter: limiter,
		timeout: timeout,
		logger:  logger,
	}
}

// packetID 为写操作生成递增的包标识，OpenD 以此做同连接去重。
func (t *TradeContext) packetID() *common.PacketID {
	return &common.PacketID{
		ConnID:   proto.Uint64(t.connID),
		SerialNo: proto.Uint32(atomic.AddUint32(&t.serial, 1)),
	}
}

// PlaceOrder 下单。
func (t *TradeContext) PlaceOrder(ctx context.Context, req *trdplaceorder.Request) (*trdplaceorder.Response, error) {
	if err := t.limiter.wait(ctx); err != nil {
		return nil, err
	}
	if req.GetC2S() != nil && req.GetC2S().GetPacketID() == nil {
		req.C2S.PacketID = t.packetID()
	}

	resp, err := await(ctx, t.timeout, t.trd.PlaceOrder(req))
	if err != nil {
		return nil, err
	}
	if err := checkRet(resp.GetRetType(), resp.GetErrCode(), resp.GetRetMsg()); err != nil {
		return nil, err
	}
	return resp, nil
}

// ModifyOrder 改单或撤单。
func (t *TradeContext) ModifyOrder(ctx context.Context, req *trdmodifyorder.Request) (*trdmodifyorder.Response, error) {
	if err := t.limiter.wait(ctx); err != nil {
		return nil, err
	}
	if req.GetC2S() != nil && req.GetC2S().GetPacketID() == nil {
		req.C2S.PacketID = t.packetID()
	}

	resp, err := await(ctx, t.timeout, t.trd.ModifyOrder(req))
	if err != nil {
		return nil, err
	}
	if err := checkRet(resp.GetRetType(), resp.GetErrCode(), resp.GetRetMsg()); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetOrderList 查询今日订单。
func (t *TradeContext) GetOrderList(ctx context.Context, req *trdgetorderlist.Request) (*trdgetorderlist.Response, error) {
	if err := t.limiter.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := await(ctx, t.timeout, t.trd.GetOrderList(req))
	if err != nil {
		return nil, err
	}
	if err := checkRet(resp.GetRetType(), resp.GetErrCode(), resp.GetRetMsg()); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetPositionList 查询持仓。
func (t *TradeContext) GetPositionList(ctx context.Context, req *trdgetpositionlist.Request) (*trdgetpositionlist.Response, error) {
	if err := t.limiter.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := await(ctx, t.timeout, t.trd.GetPositionList(req))
	if err != nil {
		return nil, err
	}
	if err := checkRet(resp.GetRetType(), resp.GetErrCode(), resp.GetRetMsg()); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetFunds 查询账户资金。
func (t *TradeContext) GetFunds(ctx context.Context, req *trdgetfunds.Request) (*trdgetfunds.Response, error) {
	if err := t.limiter.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := await(ctx, t.timeout, t.trd.GetFunds(req))
	if err != nil {
		return nil, err
	}
	if err := checkRet(resp.GetRetType(), resp.GetErrCode(), resp.GetRetMsg()); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetAccList 查询交易账户列表。
func (t *TradeContext) GetAccList(ctx context.Context, req *trdgetacclist.Request) (*trdgetacclist.Response, error) {
	if err := t.limiter.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := await(ctx, t.timeout, t.trd.GetAccList(req))
	if err != nil {
		return nil, err
	}
	if err := checkRet(resp.GetRetType(), resp.GetErrCode(), resp.GetRetMsg()); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetMaxTrdQtys 查询最大可交易数量。
func (t *TradeContext) GetMaxTrdQtys(ctx context.Context, req *trdgetmaxtrdqtys.Request) (*trdgetmaxtrdqtys.Response, error) {
	if err := t.limiter.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := await(ctx, t.timeout, t.trd.GetMaxTrdQtys(req))
	if err != nil {
		return nil, err
	}
	if err := checkRet(resp.GetRetType(), resp.GetErrCode(), resp.GetRetMsg()); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *TradeContext) unlock(req *trdunlocktrade.Request) error {
	resp, err := await(context.Background(), t.timeout, t.trd.UnlockTrade(req))
	if err != nil {
		return err
	}
	return checkRet(resp.GetRetType(), resp.GetErrCode(), resp.GetRetMsg())
}

func (t *TradeContext) close() {
	t.trd.Close()
}
