package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/futuopen/ftapi4go/pb/qotcommon"
	"github.com/futuopen/ftapi4go/pb/qotgetbasicqot"
	"github.com/futuopen/ftapi4go/pb/qotgetkl"
	"github.com/futuopen/ftapi4go/pb/qotgetsecuritysnapshot"
	"github.com/futuopen/ftapi4go/pb/qotgetsubinfo"
	"github.com/futuopen/ftapi4go/pb/qotrequesthistorykl"
	"github.com/futuopen/ftapi4go/pb/qotsub"
	"google.golang.org/protobuf/proto"
)

type mockQuoteAPI struct {
	calls []string

	subReqs     []*qotsub.Request
	basicReqs   []*qotgetbasicqot.Request
	historyReqs []*qotrequesthistorykl.Request
	klReqs      []*qotgetkl.Request

	quotes   []*qotcommon.BasicQot
	klines   []*qotcommon.KLine
	subInfos []*qotgetsubinfo.ConnSubInfo
}

func (m *mockQuoteAPI) Sub(_ context.Context, req *qotsub.Request) (*qotsub.Response, error) {
	m.calls = append(m.calls, "Sub")
	m.subReqs = append(m.subReqs, req)
	return &qotsub.Response{RetType: proto.Int32(0), S2C: &qotsub.S2C{}}, nil
}

func (m *mockQuoteAPI) GetBasicQot(_ context.Context, req *qotgetbasicqot.Request) (*qotgetbasicqot.Response, error) {
	m.calls = append(m.calls, "GetBasicQot")
	m.basicReqs = append(m.basicReqs, req)
	return &qotgetbasicqot.Response{
		RetType: proto.Int32(0),
		S2C:     &qotgetbasicqot.S2C{BasicQotList: m.quotes},
	}, nil
}

func (m *mockQuoteAPI) RequestHistoryKL(_ context.Context, req *qotrequesthistorykl.Request) (*qotrequesthistorykl.Response, error) {
	m.calls = append(m.calls, "RequestHistoryKL")
	m.historyReqs = append(m.historyReqs, req)
	return &qotrequesthistorykl.Response{
		RetType: proto.Int32(0),
		S2C: &qotrequesthistorykl.S2C{
			Security: req.GetC2S().GetSecurity(),
			KlList:   m.klines,
		},
	}, nil
}

func (m *mockQuoteAPI) GetKL(_ context.Context, req *qotgetkl.Request) (*qotgetkl.Response, error) {
	m.calls = append(m.calls, "GetKL")
	m.klReqs = append(m.klReqs, req)
	return &qotgetkl.Response{
		RetType: proto.Int32(0),
		S2C: &qotgetkl.S2C{
			Security: req.GetC2S().GetSecurity(),
			KlList:   m.klines,
		},
	}, nil
}

func (m *mockQuoteAPI) GetSubInfo(_ context.Context, _ *qotgetsubinfo.Request) (*qotgetsubinfo.Response, error) {
	m.calls = append(m.calls, "GetSubInfo")
	return &qotgetsubinfo.Response{
		RetType: proto.Int32(0),
		S2C:     &qotgetsubinfo.S2C{ConnSubInfoList: m.subInfos},
	}, nil
}

func (m *mockQuoteAPI) GetSecuritySnapshot(_ context.Context, req *qotgetsecuritysnapshot.Request) (*qotgetsecuritysnapshot.Response, error) {
	m.calls = append(m.calls, "GetSecuritySnapshot")
	snapshots := make([]*qotgetsecuritysnapshot.Snapshot, 0, len(req.GetC2S().GetSecurityList()))
	for _, sec := range req.GetC2S().GetSecurityList() {
		snapshots = append(snapshots, &qotgetsecuritysnapshot.Snapshot{
			Basic: &qotgetsecuritysnapshot.SnapshotBasicData{
				Security:       sec,
				Type:           proto.Int32(int32(qotcommon.SecurityType_SecurityType_Eqty)),
				IsSuspend:      proto.Bool(false),
				LotSize:        proto.Int32(100),
				PriceSpread:    proto.Float64(0.2),
				UpdateTime:     proto.String("2025-06-02 16:00:00"),
				HighPrice:      proto.Float64(392),
				OpenPrice:      proto.Float64(385),
				LowPrice:       proto.Float64(383),
				LastClosePrice: proto.Float64(384),
				CurPrice:       proto.Float64(390.2),
			},
		})
	}
	return &qotgetsecuritysnapshot.Response{
		RetType: proto.Int32(0),
		S2C:     &qotgetsecuritysnapshot.S2C{SnapshotList: snapshots},
	}, nil
}

func hkSecurity(code string) *qotcommon.Security {
	return &qotcommon.Security{
		Market: proto.Int32(int32(qotcommon.QotMarket_QotMarket_HK_Security)),
		Code:   proto.String(code),
	}
}

func TestSubscribe_BuildsBasicQuoteSub(t *testing.T) {
	api := &mockQuoteAPI{}
	client := NewClient(api, nil)

	if err := client.Subscribe(context.Background(), "HK.00700", "US.AAPL"); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	c2s := api.subReqs[0].GetC2S()
	if !c2s.GetIsSubOrUnSub() {
		t.Errorf("expected IsSubOrUnSub=true for subscribe")
	}

	securities := c2s.GetSecurityList()
	if len(securities) != 2 {
		t.Fatalf("expected 2 securities, got %d", len(securities))
	}
	if securities[0].GetCode() != "00700" || securities[0].GetMarket() != int32(qotcommon.QotMarket_QotMarket_HK_Security) {
		t.Errorf("unexpected first security: %v", securities[0])
	}
	if securities[1].GetCode() != "AAPL" || securities[1].GetMarket() != int32(qotcommon.QotMarket_QotMarket_US_Security) {
		t.Errorf("unexpected second security: %v", securities[1])
	}

	subTypes := c2s.GetSubTypeList()
	if len(subTypes) != 1 || subTypes[0] != int32(qotcommon.SubType_SubType_Basic) {
		t.Errorf("expected basic quote sub type, got %v", subTypes)
	}
}

func TestUnsubscribe_FlipsSubFlag(t *testing.T) {
	api := &mockQuoteAPI{}
	client := NewClient(api, nil)

	if err := client.Unsubscribe(context.Background(), "HK.00700"); err != nil {
		t.Fatalf("Unsubscribe returned error: %v", err)
	}

	if api.subReqs[0].GetC2S().GetIsSubOrUnSub() {
		t.Errorf("expected IsSubOrUnSub=false for unsubscribe")
	}
}

func TestSubscribe_RejectsMalformedCode(t *testing.T) {
	api := &mockQuoteAPI{}
	client := NewClient(api, nil)

	if err := client.Subscribe(context.Background(), "00700"); err == nil {
		t.Fatalf("expected error for code without market prefix")
	}
	if len(api.calls) != 0 {
		t.Errorf("expected no gateway call for invalid code, got %v", api.calls)
	}
}

func TestQuotes_NormalizesFields(t *testing.T) {
	api := &mockQuoteAPI{
		quotes: []*qotcommon.BasicQot{
			{
				Security:       hkSecurity("00700"),
				IsSuspended:    proto.Bool(false),
				ListTime:       proto.String("2004-06-16"),
				PriceSpread:    proto.Float64(0.2),
				UpdateTime:     proto.String("2025-06-02 15:59:00"),
				HighPrice:      proto.Float64(392),
				OpenPrice:      proto.Float64(385),
				LowPrice:       proto.Float64(383),
				CurPrice:       proto.Float64(390.2),
				LastClosePrice: proto.Float64(384),
				Volume:         proto.Int64(21000000),
				Turnover:       proto.Float64(8.1e9),
			},
		},
	}
	client := NewClient(api, nil)

	quote, err := client.Quote(context.Background(), "HK.00700")
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}

	if quote.Code != "HK.00700" {
		t.Errorf("expected code HK.00700, got %q", quote.Code)
	}
	if quote.CurPrice != 390.2 {
		t.Errorf("expected last price 390.2, got %f", quote.CurPrice)
	}
	if quote.Volume != 21000000 {
		t.Errorf("expected volume 21000000, got %d", quote.Volume)
	}

	wantChange := (390.2 - 384) / 384 * 100
	if diff := quote.ChangeRate() - wantChange; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("unexpected change rate: got %f want %f", quote.ChangeRate(), wantChange)
	}
}

func TestKLines_BuildsHistoryRequest(t *testing.T) {
	api := &mockQuoteAPI{
		klines: []*qotcommon.KLine{
			{
				Time:       proto.String("2025-06-02"),
				IsBlank:    proto.Bool(false),
				OpenPrice:  proto.Float64(385),
				HighPrice:  proto.Float64(392),
				LowPrice:   proto.Float64(383),
				ClosePrice: proto.Float64(390.2),
				Volume:     proto.Int64(21000000),
				Turnover:   proto.Float64(8.1e9),
			},
		},
	}
	client := NewClient(api, nil)
	client.now = func() time.Time {
		return time.Date(2025, 6, 2, 16, 0, 0, 0, time.UTC)
	}

	klines, err := client.KLines(context.Background(), "HK.00700", PeriodDay, 30)
	if err != nil {
		t.Fatalf("KLines returned error: %v", err)
	}

	c2s := api.historyReqs[0].GetC2S()
	if got := c2s.GetKlType(); got != int32(qotcommon.KLType_KLType_Day) {
		t.Errorf("expected day kl type, got %d", got)
	}
	if got := c2s.GetRehabType(); got != int32(qotcommon.RehabType_RehabType_Forward) {
		t.Errorf("expected forward rehab, got %d", got)
	}
	if got := c2s.GetMaxAckKLNum(); got != 30 {
		t.Errorf("expected max ack 30, got %d", got)
	}
	if got := c2s.GetEndTime(); got != "2025-06-02" {
		t.Errorf("expected end time 2025-06-02, got %q", got)
	}
	// 30根日K的窗口应覆盖至少60个自然日
	begin, err := time.Parse("2006-01-02", c2s.GetBeginTime())
	if err != nil {
		t.Fatalf("parse begin time: %v", err)
	}
	if days := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC).Sub(begin).Hours() / 24; days < 60 {
		t.Errorf("expected history window >= 60 days, got %.0f", days)
	}

	if len(klines) != 1 || klines[0].Close != 390.2 {
		t.Errorf("unexpected kline normalization: %+v", klines)
	}
}

func TestCurKLines_BuildsRequest(t *testing.T) {
	api := &mockQuoteAPI{}
	client := NewClient(api, nil)

	if _, err := client.CurKLines(context.Background(), "SZ.000001", PeriodMin5, 60); err != nil {
		t.Fatalf("CurKLines returned error: %v", err)
	}

	c2s := api.klReqs[0].GetC2S()
	if got := c2s.GetKlType(); got != int32(qotcommon.KLType_KLType_5Min) {
		t.Errorf("expected 5min kl type, got %d", got)
	}
	if got := c2s.GetReqNum(); got != 60 {
		t.Errorf("expected req num 60, got %d", got)
	}
	if got := c2s.GetSecurity().GetMarket(); got != int32(qotcommon.QotMarket_QotMarket_CNSZ_Security) {
		t.Errorf("expected SZ qot market, got %d", got)
	}
}

func TestSubscriptions_Normalizes(t *testing.T) {
	api := &mockQuoteAPI{
		subInfos: []*qotgetsubinfo.ConnSubInfo{
			{
				SubInfoList: []*qotcommon.SubInfo{
					{
						SubType:      proto.Int32(int32(qotcommon.SubType_SubType_Basic)),
						SecurityList: []*qotcommon.Security{hkSecurity("00700"), hkSecurity("09988")},
					},
				},
				UsedQuota:     proto.Int32(2),
				IsOwnConnData: proto.Bool(true),
			},
		},
	}
	client := NewClient(api, nil)

	subs, err := client.Subscriptions(context.Background())
	if err != nil {
		t.Fatalf("Subscriptions returned error: %v", err)
	}

	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription group, got %d", len(subs))
	}
	if subs[0].SubType != "QUOTE" {
		t.Errorf("expected sub type QUOTE, got %q", subs[0].SubType)
	}
	if len(subs[0].Codes) != 2 || subs[0].Codes[0] != "HK.00700" {
		t.Errorf("unexpected codes: %v", subs[0].Codes)
	}
}

func TestMarketSnapshot_IncludesLotSize(t *testing.T) {
	api := &mockQuoteAPI{}
	client := NewClient(api, nil)

	snapshots, err := client.MarketSnapshot(context.Background(), "HK.00700")
	if err != nil {
		t.Fatalf("MarketSnapshot returned error: %v", err)
	}

	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
	if snapshots[0].LotSize != 100 {
		t.Errorf("expected lot_size=100, got %d", snapshots[0].LotSize)
	}
	if snapshots[0].Code != "HK.00700" {
		t.Errorf("expected code HK.00700, got %q", snapshots[0].Code)
	}
}

func TestParsePeriod(t *testing.T) {
	if _, err := ParsePeriod("QUARTER"); err == nil {
		t.Errorf("expected error for unsupported period")
	}

	p, err := ParsePeriod("day")
	if err != nil {
		t.Fatalf("ParsePeriod returned error: %v", err)
	}
	if p != PeriodDay {
		t.Errorf("expected DAY, got %s", p)
	}
}
