// Package futu 封装与 FutuOpenD 网关的连接管理，是唯一直接依赖
// 官方 ftapi4go SDK 的包。上层的交易与行情组件只通过本包暴露的
// 上下文对象发起请求。
package futu

import (
	"fmt"
	"strings"

	"github.com/futuopen/ftapi4go/pb/qotcommon"
	"github.com/futuopen/ftapi4go/pb/trdcommon"
)

// Market 表示股票所属市场。
type Market string

const (
	MarketHK Market = "HK"
	MarketUS Market = "US"
	MarketSH Market = "SH"
	MarketSZ Market = "SZ"
)

// TrdEnv 表示交易环境。
type TrdEnv string

const (
	EnvSimulate TrdEnv = "SIMULATE"
	EnvReal     TrdEnv = "REAL"
)

// ParseEnv 将配置中的环境字符串解析为 TrdEnv。
func ParseEnv(s string) (TrdEnv, error) {
	switch strings.ToUpper(s) {
	case string(EnvSimulate):
		return EnvSimulate, nil
	case string(EnvReal):
		return EnvReal, nil
	default:
		return "", fmt.Errorf("futu: 未知交易环境 %q", s)
	}
}

// ProtoEnv 返回 SDK 使用的 TrdEnv 枚举值。
func (e TrdEnv) ProtoEnv() int32 {
	if e == EnvReal {
		return int32(trdcommon.TrdEnv_TrdEnv_Real)
	}
	return int32(trdcommon.TrdEnv_TrdEnv_Simulate)
}

// ParseMarket 将配置中的市场字符串解析为 Market。
func ParseMarket(s string) (Market, error) {
	switch strings.ToUpper(s) {
	case string(MarketHK):
		return MarketHK, nil
	case string(MarketUS):
		return MarketUS, nil
	case string(MarketSH):
		return MarketSH, nil
	case string(MarketSZ):
		return MarketSZ, nil
	default:
		return "", fmt.Errorf("futu: 未知市场 %q", s)
	}
}

// TrdMarket 返回交易接口使用的市场枚举值，沪深统一映射为 CN。
func (m Market) TrdMarket() int32 {
	switch m {
	case MarketUS:
		return int32(trdcommon.TrdMarket_TrdMarket_US)
	case MarketSH, MarketSZ:
		return int32(trdcommon.TrdMarket_TrdMarket_CN)
	default:
		return int32(trdcommon.TrdMarket_TrdMarket_HK)
	}
}

// QotMarket 返回行情接口使用的市场枚举值。
func (m Market) QotMarket() int32 {
	switch m {
	case MarketUS:
		return int32(qotcommon.QotMarket_QotMarket_US_Security)
	case MarketSH:
		return int32(qotcommon.QotMarket_QotMarket_CNSH_Security)
	case MarketSZ:
		return int32(qotcommon.QotMarket_QotMarket_CNSZ_Security)
	default:
		return int32(qotcommon.QotMarket_QotMarket_HK_Security)
	}
}

// SecMarket 返回下单接口使用的证券市场枚举值。
func (m Market) SecMarket() int32 {
	switch m {
	case MarketUS:
		return int32(trdcommon.TrdSecMarket_TrdSecMarket_US)
	case MarketSH:
		return int32(trdcommon.TrdSecMarket_TrdSecMarket_CN_SH)
	case MarketSZ:
		return int32(trdcommon.TrdSecMarket_TrdSecMarket_CN_SZ)
	default:
		return int32(trdcommon.TrdSecMarket_TrdSecMarket_HK)
	}
}

// MarketFromSecMarket 将交易接口的证券市场枚举还原为 Market，沪深
// 分别还原为 SH/SZ。未识别的枚举值返回 false。
func MarketFromSecMarket(secMarket int32) (Market, bool) {
	switch trdcommon.TrdSecMarket(secMarket) {
	case trdcommon.TrdSecMarket_TrdSecMarket_HK:
		return MarketHK, true
	case trdcommon.TrdSecMarket_TrdSecMarket_US:
		return MarketUS, true
	case trdcommon.TrdSecMarket_TrdSecMarket_CN_SH:
		return MarketSH, true
	case trdcommon.TrdSecMarket_TrdSecMarket_CN_SZ:
		return MarketSZ, true
	default:
		return "", false
	}
}

// Security 表示一只带市场前缀的证券，如 "HK.00700"。
type Security struct {
	Market Market
	Symbol string
}

// ParseCode 解析形如 "HK.00700"、"US.AAPL" 的证券代码。
func ParseCode(code string) (Security, error) {
	idx := strings.Index(code, ".")
	if idx <= 0 || idx == len(code)-1 {
		return Security{}, fmt.Errorf("futu: 证券代码 %q 格式非法，应为 <市场>.<代码>", code)
	}

	market, err := ParseMarket(code[:idx])
	if err != nil {
		return Security{}, fmt.Errorf("futu: 证券代码 %q 市场前缀非法: %w", code, err)
	}

	symbol := code[idx+1:]
	return Security{Market: market, Symbol: symbol}, nil
}

// String 还原带市场前缀的代码表示。
func (s Security) String() string {
	return string(s.Market) + "." + s.Symbol
}

// FormatCode 由行情枚举市场与代码拼出带前缀表示，未识别的市场原样返回代码。
func FormatCode(qotMarket int32, symbol string) string {
	switch qotcommon.QotMarket(qotMarket) {
	case qotcommon.QotMarket_QotMarket_HK_Security:
		return "HK." + symbol
	case qotcommon.QotMarket_QotMarket_US_Security:
		return "US." + symbol
	case qotcommon.QotMarket_QotMarket_CNSH_Security:
		return "SH." + symbol
	case qotcommon.QotMarket_QotMarket_CNSZ_Security:
		return "SZ." + symbol
	default:
		return symbol
	}
}
