package futu

import (
	"context"
	"time"

	ftapi "github.com/futuopen/ftapi4go"
	"github.com/futuopen/ftapi4go/pb/qotgetbasicqot"
	"github.com/futuopen/ftapi4go/pb/qotgetkl"
	"github.com/futuopen/ftapi4go/pb/qotgetsecuritysnapshot"
	"github.com/futuopen/ftapi4go/pb/qotgetsubinfo"
	"github.com/futuopen/ftapi4go/pb/qotrequesthistorykl"
	"github.com/futuopen/ftapi4go/pb/qotsub"
	"go.uber.org/zap"
)

// QuoteContext 是行情连接上的同步调用封装。订阅状态由 OpenD 维护，
// 本端不缓存任何行情数据。
type QuoteContext struct {
	qot     *ftapi.FTAPI_Qot
	limiter *rateLimiter
	timeout time.Duration
	logger  *zap.Logger
}

func newQuoteContext(qot *ftapi.FTAPI_Qot, limiter *rateLimiter, timeout time.Duration, logger *zap.Logger) *QuoteContext {
	return &QuoteContext{
		qot:     qot,
		limiter: limiter,
		timeout: timeout,
		logger:  logger,
	}
}

// Sub 订阅或退订行情。
func (q *QuoteContext) Sub(ctx context.Context, req *qotsub.Request) (*qotsub.Response, error) {
	if err := q.limiter.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := await(ctx, q.timeout, q.qot.Sub(req))
	if err != nil {
		return nil, err
	}
	if err := checkRet(resp.GetRetType(), resp.GetErrCode(), resp.GetRetMsg()); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetBasicQot 获取已订阅证券的实时报价。
func (q *QuoteContext) GetBasicQot(ctx context.Context, req *qotgetbasicqot.Request) (*qotgetbasicqot.Response, error) {
	if err := q.limiter.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := await(ctx, q.timeout, q.qot.GetBasicQot(req))
	if err != nil {
		return nil, err
	}
	if err := checkRet(resp.GetRetType(), resp.GetErrCode(), resp.GetRetMsg()); err != nil {
		return nil, err
	}
	return resp, nil
}

// RequestHistoryKL 拉取历史K线。
func (q *QuoteContext) RequestHistoryKL(ctx context.Context, req *qotrequesthistorykl.Request) (*qotrequesthistorykl.Response, error) {
	if err := q.limiter.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := await(ctx, q.timeout, q.qot.RequestHistoryKL(req))
	if err != nil {
		return nil, err
	}
	if err := checkRet(resp.GetRetType(), resp.GetErrCode(), resp.GetRetMsg()); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetKL 获取已订阅证券的实时K线。
func (q *QuoteContext) GetKL(ctx context.Context, req *qotgetkl.Request) (*qotgetkl.Response, error) {
	if err := q.limiter.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := await(ctx, q.timeout, q.qot.GetKL(req))
	if err != nil {
		return nil, err
	}
	if err := checkRet(resp.GetRetType(), resp.GetErrCode(), resp.GetRetMsg()); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetSubInfo 查询当前连接的订阅状态。
func (q *QuoteContext) GetSubInfo(ctx context.Context, req *qotgetsubinfo.Request) (*qotgetsubinfo.Response, error) {
	if err := q.limiter.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := await(ctx, q.timeout, q.qot.GetSubInfo(req))
	if err != nil {
		return nil, err
	}
	if err := checkRet(resp.GetRetType(), resp.GetErrCode(), resp.GetRetMsg()); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetSecuritySnapshot 获取市场快照，无需预先订阅。
func (q *QuoteContext) GetSecuritySnapshot(ctx context.Context, req *qotgetsecuritysnapshot.Request) (*qotgetsecuritysnapshot.Response, error) {
	if err := q.limiter.wait(ctx); err != nil {
		return nil, err
	}

	resp, err := await(ctx, q.timeout, q.qot.GetSecuritySnapshot(req))
	if err != nil {
		return nil, err
	}
	if err := checkRet(resp.GetRetType(), resp.GetErrCode(), resp.GetRetMsg()); err != nil {
		return nil, err
	}
	return resp, nil
}

func (q *QuoteContext) close() {
	q.qot.Close()
}
