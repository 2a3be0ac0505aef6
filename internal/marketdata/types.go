// Package marketdata 封装行情订阅、实时报价与K线查询。订阅集合是
// 网关侧状态，本包只负责发起订阅与查询，不缓存任何行情。
package marketdata

import (
	"fmt"
	"strings"
	"time"

	"github.com/futuopen/ftapi4go/pb/qotcommon"
)

// Period 表示K线周期。
type Period string

const (
	PeriodMin1  Period = "MIN_1"
	PeriodMin5  Period = "MIN_5"
	PeriodMin15 Period = "MIN_15"
	PeriodMin30 Period = "MIN_30"
	PeriodMin60 Period = "MIN_60"
	PeriodDay   Period = "DAY"
	PeriodWeek  Period = "WEEK"
	PeriodMonth Period = "MONTH"
	PeriodYear  Period = "YEAR"
)

var periodKLTypes = map[Period]qotcommon.KLType{
	PeriodMin1:  qotcommon.KLType_KLType_1Min,
	PeriodMin5:  qotcommon.KLType_KLType_5Min,
	PeriodMin15: qotcommon.KLType_KLType_15Min,
	PeriodMin30: qotcommon.KLType_KLType_30Min,
	PeriodMin60: qotcommon.KLType_KLType_60Min,
	PeriodDay:   qotcommon.KLType_KLType_Day,
	PeriodWeek:  qotcommon.KLType_KLType_Week,
	PeriodMonth: qotcommon.KLType_KLType_Month,
	PeriodYear:  qotcommon.KLType_KLType_Year,
}

// ParsePeriod 解析K线周期字符串。
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToUpper(s))
	if _, ok := periodKLTypes[p]; !ok {
		return "", fmt.Errorf("marketdata: 未知K线周期 %q", s)
	}
	return p, nil
}

func (p Period) klType() int32 {
	kl, ok := periodKLTypes[p]
	if !ok {
		kl = qotcommon.KLType_KLType_Day
	}
	return int32(kl)
}

// historyWindow 估算能覆盖 count 根K线的历史查询时间窗。网关按
// 实际交易日返回，窗口只需足够大。
func (p Period) historyWindow(count int) time.Duration {
	day := 24 * time.Hour
	switch p {
	case PeriodDay:
		return time.Duration(count*2+7) * day
	case PeriodWeek:
		return time.Duration(count*8+7) * day
	case PeriodMonth:
		return time.Duration(count*32+7) * day
	case PeriodYear:
		return time.Duration(count*366+7) * day
	default:
		// 分钟级按每个交易日至少4根估算
		return time.Duration(count/4+7) * day
	}
}

// Quote 为实时报价快照，仅在查询时点有效。
type Quote struct {
	Code           string
	CurPrice       float64
	OpenPrice      float64
	HighPrice      float64
	LowPrice       float64
	LastClosePrice float64
	Volume         int64
	Turnover       float64
	TurnoverRate   float64
	Amplitude      float64
	Suspended      bool
	UpdateTime     string
}

// ChangeRate 返回相对昨收的涨跌幅（百分比）。
func (q Quote) ChangeRate() float64 {
	if q.LastClosePrice == 0 {
		return 0
	}
	return (q.CurPrice - q.LastClosePrice) / q.LastClosePrice * 100
}

// KLine 为单根历史或实时K线。
type KLine struct {
	Time      string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	LastClose float64
	Volume    int64
	Turnover  float64
}

// Snapshot 为市场快照，无需预先订阅即可查询。
type Snapshot struct {
	Code           string
	LotSize        int32
	CurPrice       float64
	OpenPrice      float64
	HighPrice      float64
	LowPrice       float64
	LastClosePrice float64
	Volume         int64
	Turnover       float64
	Suspended      bool
	UpdateTime     string
}

// Subscription 表示一类订阅下的证券集合。
type Subscription struct {
	SubType string
	Codes   []string
}

var subTypeNames = map[int32]string{
	int32(qotcommon.SubType_SubType_Basic):     "QUOTE",
	int32(qotcommon.SubType_SubType_OrderBook): "ORDER_BOOK",
	int32(qotcommon.SubType_SubType_Ticker):    "TICKER",
	int32(qotcommon.SubType_SubType_RT):        "RT_DATA",
	int32(qotcommon.SubType_SubType_KL_Day):    "K_DAY",
	int32(qotcommon.SubType_SubType_KL_1Min):   "K_1M",
	int32(qotcommon.SubType_SubType_KL_5Min):   "K_5M",
	int32(qotcommon.SubType_SubType_KL_15Min):  "K_15M",
	int32(qotcommon.SubType_SubType_KL_30Min):  "K_30M",
	int32(qotcommon.SubType_SubType_KL_60Min):  "K_60M",
	int32(qotcommon.SubType_SubType_KL_Week):   "K_WEEK",
	int32(qotcommon.SubType_SubType_KL_Month):  "K_MONTH",
}

func subTypeName(v int32) string {
	if name, ok := subTypeNames[v]; ok {
		return name
	}
	return fmt.Sprintf("SUB_TYPE_%d", v)
}
