package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/futuopen/ftapi4go/pb/qotcommon"
	"github.com/futuopen/ftapi4go/pb/qotgetbasicqot"
	"github.com/futuopen/ftapi4go/pb/qotgetkl"
	"github.com/futuopen/ftapi4go/pb/qotgetsecuritysnapshot"
	"github.com/futuopen/ftapi4go/pb/qotgetsubinfo"
	"github.com/futuopen/ftapi4go/pb/qotrequesthistorykl"
	"github.com/futuopen/ftapi4go/pb/qotsub"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"futu-trader/internal/futu"
)

const dateLayout = "2006-01-02"

// quoteAPI 抽象行情上下文，方便在测试中用 mock 替换真实网关连接。
type quoteAPI interface {
	Sub(ctx context.Context, req *qotsub.Request) (*qotsub.Response, error)
	GetBasicQot(ctx context.Context, req *qotgetbasicqot.Request) (*qotgetbasicqot.Response, error)
	RequestHistoryKL(ctx context.Context, req *qotrequesthistorykl.Request) (*qotrequesthistorykl.Response, error)
	GetKL(ctx context.Context, req *qotgetkl.Request) (*qotgetkl.Response, error)
	GetSubInfo(ctx context.Context, req *qotgetsubinfo.Request) (*qotgetsubinfo.Response, error)
	GetSecuritySnapshot(ctx context.Context, req *qotgetsecuritysnapshot.Request) (*qotgetsecuritysnapshot.Response, error)
}

var _ quoteAPI = (*futu.QuoteContext)(nil)

// Client 封装行情操作。
type Client struct {
	api    quoteAPI
	logger *zap.Logger
	now    func() time.Time
}

// NewClient 创建行情客户端。
func NewClient(api quoteAPI, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		api:    api,
		logger: logger,
		now:    time.Now,
	}
}

func securityList(codes []string) ([]*qotcommon.Security, error) {
	list := make([]*qotcommon.Security, 0, len(codes))
	for _, code := range codes {
		sec, err := futu.ParseCode(code)
		if err != nil {
			return nil, err
		}
		list = append(list, &qotcommon.Security{
			Market: proto.Int32(sec.Market.QotMarket()),
			Code:   proto.String(sec.Symbol),
		})
	}
	return list, nil
}

// Subscribe 订阅实时报价，订阅集合由网关维护。
func (c *Client) Subscribe(ctx context.Context, codes ...string) error {
	return c.subscribe(ctx, codes, true)
}

// Unsubscribe 退订实时报价。
func (c *Client) Unsubscribe(ctx context.Context, codes ...string) error {
	return c.subscribe(ctx, codes, false)
}

func (c *Client) subscribe(ctx context.Context, codes []string, sub bool) error {
	securities, err := securityList(codes)
	if err != nil {
		return err
	}

	req := &qotsub.Request{
		C2S: &qotsub.C2S{
			SecurityList:     securities,
			SubTypeList:      []int32{int32(qotcommon.SubType_SubType_Basic)},
			IsSubOrUnSub:     proto.Bool(sub),
			IsRegOrUnRegPush: proto.Bool(false),
		},
	}

	if _, err := c.api.Sub(ctx, req); err != nil {
		if sub {
			return fmt.Errorf("marketdata: 订阅失败: %w", err)
		}
		return fmt.Errorf("marketdata: 退订失败: %w", err)
	}

	c.logger.Info("订阅状态已更新",
		zap.Strings("codes", codes),
		zap.Bool("subscribed", sub),
	)
	return nil
}

// Quotes 获取多只已订阅证券的实时报价。
func (c *Client) Quotes(ctx context.Context, codes ...string) ([]Quote, error) {
	securities, err := securityList(codes)
	if err != nil {
		return nil, err
	}

	req := &qotgetbasicqot.Request{
		C2S: &qotgetbasicqot.C2S{
			SecurityList: securities,
		},
	}

	resp, err := c.api.GetBasicQot(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("marketdata: 获取报价失败: %w", err)
	}

	raw := resp.GetS2C().GetBasicQotList()
	quotes := make([]Quote, 0, len(raw))
	for _, q := range raw {
		sec := q.GetSecurity()
		quotes = append(quotes, Quote{
			Code:           futu.FormatCode(sec.GetMarket(), sec.GetCode()),
			CurPrice:       q.GetCurPrice(),
			OpenPrice:      q.GetOpenPrice(),
			HighPrice:      q.GetHighPrice(),
			LowPrice:       q.GetLowPrice(),
			LastClosePrice: q.GetLastClosePrice(),
			Volume:         q.GetVolume(),
			Turnover:       q.GetTurnover(),
			TurnoverRate:   q.GetTurnoverRate(),
			Amplitude:      q.GetAmplitude(),
			Suspended:      q.GetIsSuspended(),
			UpdateTime:     q.GetUpdateTime(),
		})
	}

	return quotes, nil
}

// Quote 获取单只证券的实时报价。
func (c *Client) Quote(ctx context.Context, code string) (Quote, error) {
	quotes, err := c.Quotes(ctx, code)
	if err != nil {
		return Quote{}, err
	}
	if len(quotes) == 0 {
		return Quote{}, fmt.Errorf("marketdata: 网关未返回 %s 的报价", code)
	}
	return quotes[0], nil
}

// KLines 按前复权拉取历史K线。网关自 BeginTime 起按时间升序返回，
// 最多 count 根；时间窗内K线多于 count 时返回的是窗口起点的 count 根。
func (c *Client) KLines(ctx context.Context, code string, period Period, count int) ([]KLine, error) {
	if count <= 0 {
		count = 100
	}

	sec, err := futu.ParseCode(code)
	if err != nil {
		return nil, err
	}

	end := c.now()
	begin := end.Add(-period.historyWindow(count))

	req := &qotrequesthistorykl.Request{
		C2S: &qotrequesthistorykl.C2S{
			RehabType: proto.Int32(int32(qotcommon.RehabType_RehabType_Forward)),
			KlType:    proto.Int32(period.klType()),
			Security: &qotcommon.Security{
				Market: proto.Int32(sec.Market.QotMarket()),
				Code:   proto.String(sec.Symbol),
			},
			BeginTime:   proto.String(begin.Format(dateLayout)),
			EndTime:     proto.String(end.Format(dateLayout)),
			MaxAckKLNum: proto.Int32(int32(count)),
		},
	}

	resp, err := c.api.RequestHistoryKL(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("marketdata: 获取历史K线失败: %w", err)
	}

	return convertKLines(resp.GetS2C().GetKlList()), nil
}

// CurKLines 获取已订阅证券的实时K线。
func (c *Client) CurKLines(ctx context.Context, code string, period Period, num int) ([]KLine, error) {
	if num <= 0 {
		num = 100
	}

	sec, err := futu.ParseCode(code)
	if err != nil {
		return nil, err
	}

	req := &qotgetkl.Request{
		C2S: &qotgetkl.C2S{
			RehabType: proto.Int32(int32(qotcommon.RehabType_RehabType_Forward)),
			KlType:    proto.Int32(period.klType()),
			Security: &qotcommon.Security{
				Market: proto.Int32(sec.Market.QotMarket()),
				Code:   proto.String(sec.Symbol),
			},
			ReqNum: proto.Int32(int32(num)),
		},
	}

	resp, err := c.api.GetKL(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("marketdata: 获取实时K线失败: %w", err)
	}

	return convertKLines(resp.GetS2C().GetKlList()), nil
}

func convertKLines(raw []*qotcommon.KLine) []KLine {
	klines := make([]KLine, 0, len(raw))
	for _, k := range raw {
		klines = append(klines, KLine{
			Time:      k.GetTime(),
			Open:      k.GetOpenPrice(),
			High:      k.GetHighPrice(),
			Low:       k.GetLowPrice(),
			Close:     k.GetClosePrice(),
			LastClose: k.GetLastClosePrice(),
			Volume:    k.GetVolume(),
			Turnover:  k.GetTurnover(),
		})
	}
	return klines
}

// Subscriptions 查询当前连接的订阅集合。
func (c *Client) Subscriptions(ctx context.Context) ([]Subscription, error) {
	req := &qotgetsubinfo.Request{
		C2S: &qotgetsubinfo.C2S{
			IsReqAllConn: proto.Bool(false),
		},
	}

	resp, err := c.api.GetSubInfo(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("marketdata: 查询订阅状态失败: %w", err)
	}

	var subs []Subscription
	for _, connInfo := range resp.GetS2C().GetConnSubInfoList() {
		for _, info := range connInfo.GetSubInfoList() {
			sub := Subscription{
				SubType: subTypeName(info.GetSubType()),
			}
			for _, sec := range info.GetSecurityList() {
				sub.Codes = append(sub.Codes, futu.FormatCode(sec.GetMarket(), sec.GetCode()))
			}
			subs = append(subs, sub)
		}
	}

	return subs, nil
}

// MarketSnapshot 获取市场快照，包含每手股数等静态信息，无需订阅。
func (c *Client) MarketSnapshot(ctx context.Context, codes ...string) ([]Snapshot, error) {
	securities, err := securityList(codes)
	if err != nil {
		return nil, err
	}

	req := &qotgetsecuritysnapshot.Request{
		C2S: &qotgetsecuritysnapshot.C2S{
			SecurityList: securities,
		},
	}

	resp, err := c.api.GetSecuritySnapshot(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("marketdata: 获取市场快照失败: %w", err)
	}

	raw := resp.GetS2C().GetSnapshotList()
	snapshots := make([]Snapshot, 0, len(raw))
	for _, s := range raw {
		basic := s.GetBasic()
		if basic == nil {
			continue
		}
		sec := basic.GetSecurity()
		snapshots = append(snapshots, Snapshot{
			Code:           futu.FormatCode(sec.GetMarket(), sec.GetCode()),
			LotSize:        basic.GetLotSize(),
			CurPrice:       basic.GetCurPrice(),
			OpenPrice:      basic.GetOpenPrice(),
			HighPrice:      basic.GetHighPrice(),
			LowPrice:       basic.GetLowPrice(),
			LastClosePrice: basic.GetLastClosePrice(),
			Volume:         basic.GetVolume(),
			Turnover:       basic.GetTurnover(),
			Suspended:      basic.GetIsSuspend(),
			UpdateTime:     basic.GetUpdateTime(),
		})
	}

	return snapshots, nil
}
