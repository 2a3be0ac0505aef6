package futu

import (
	"testing"

	"github.com/futuopen/ftapi4go/pb/qotcommon"
	"github.com/futuopen/ftapi4go/pb/trdcommon"
)

func TestParseCode(t *testing.T) {
	tests := []struct {
		code    string
		market  Market
		symbol  string
		wantErr bool
	}{
		{code: "HK.00700", market: MarketHK, symbol: "00700"},
		{code: "US.AAPL", market: MarketUS, symbol: "AAPL"},
		{code: "SH.600519", market: MarketSH, symbol: "600519"},
		{code: "sz.000001", market: MarketSZ, symbol: "000001"},
		{code: "00700", wantErr: true},
		{code: "HK.", wantErr: true},
		{code: ".00700", wantErr: true},
		{code: "JP.7203", wantErr: true},
		{code: "", wantErr: true},
	}

	for _, tt := range tests {
		sec, err := ParseCode(tt.code)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCode(%q): expected error", tt.code)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCode(%q): unexpected error: %v", tt.code, err)
			continue
		}
		if sec.Market != tt.market || sec.Symbol != tt.symbol {
			t.Errorf("ParseCode(%q) = %v/%q, want %v/%q", tt.code, sec.Market, sec.Symbol, tt.market, tt.symbol)
		}
	}
}

func TestParseCode_LowercaseMarketRoundTrip(t *testing.T) {
	sec, err := ParseCode("hk.00700")
	if err != nil {
		t.Fatalf("ParseCode returned error: %v", err)
	}
	if got := sec.String(); got != "HK.00700" {
		t.Errorf("expected normalized code HK.00700, got %q", got)
	}
}

func TestParseEnv(t *testing.T) {
	if env, err := ParseEnv("real"); err != nil || env != EnvReal {
		t.Errorf("ParseEnv(real) = %v, %v", env, err)
	}
	if env, err := ParseEnv("SIMULATE"); err != nil || env != EnvSimulate {
		t.Errorf("ParseEnv(SIMULATE) = %v, %v", env, err)
	}
	if _, err := ParseEnv("paper"); err == nil {
		t.Errorf("expected error for unknown env")
	}
}

func TestMarketMappings(t *testing.T) {
	tests := []struct {
		market    Market
		trd       trdcommon.TrdMarket
		qot       qotcommon.QotMarket
		secMarket trdcommon.TrdSecMarket
	}{
		{MarketHK, trdcommon.TrdMarket_TrdMarket_HK, qotcommon.QotMarket_QotMarket_HK_Security, trdcommon.TrdSecMarket_TrdSecMarket_HK},
		{MarketUS, trdcommon.TrdMarket_TrdMarket_US, qotcommon.QotMarket_QotMarket_US_Security, trdcommon.TrdSecMarket_TrdSecMarket_US},
		{MarketSH, trdcommon.TrdMarket_TrdMarket_CN, qotcommon.QotMarket_QotMarket_CNSH_Security, trdcommon.TrdSecMarket_TrdSecMarket_CN_SH},
		{MarketSZ, trdcommon.TrdMarket_TrdMarket_CN, qotcommon.QotMarket_QotMarket_CNSZ_Security, trdcommon.TrdSecMarket_TrdSecMarket_CN_SZ},
	}

	for _, tt := range tests {
		if got := tt.market.TrdMarket(); got != int32(tt.trd) {
			t.Errorf("%s.TrdMarket() = %d, want %d", tt.market, got, tt.trd)
		}
		if got := tt.market.QotMarket(); got != int32(tt.qot) {
			t.Errorf("%s.QotMarket() = %d, want %d", tt.market, got, tt.qot)
		}
		if got := tt.market.SecMarket(); got != int32(tt.secMarket) {
			t.Errorf("%s.SecMarket() = %d, want %d", tt.market, got, tt.secMarket)
		}
	}
}

func TestFormatCode(t *testing.T) {
	if got := FormatCode(int32(qotcommon.QotMarket_QotMarket_CNSH_Security), "600519"); got != "SH.600519" {
		t.Errorf("FormatCode(SH) = %q", got)
	}
	// 未识别的市场原样返回代码
	if got := FormatCode(999, "XYZ"); got != "XYZ" {
		t.Errorf("FormatCode(unknown) = %q", got)
	}
}

func TestMarketFromSecMarket(t *testing.T) {
	tests := []struct {
		secMarket trdcommon.TrdSecMarket
		want      Market
	}{
		{trdcommon.TrdSecMarket_TrdSecMarket_HK, MarketHK},
		{trdcommon.TrdSecMarket_TrdSecMarket_US, MarketUS},
		{trdcommon.TrdSecMarket_TrdSecMarket_CN_SH, MarketSH},
		{trdcommon.TrdSecMarket_TrdSecMarket_CN_SZ, MarketSZ},
	}
	for _, tt := range tests {
		got, ok := MarketFromSecMarket(int32(tt.secMarket))
		if !ok || got != tt.want {
			t.Errorf("MarketFromSecMarket(%d) = %v/%v, want %v", tt.secMarket, got, ok, tt.want)
		}
	}

	if _, ok := MarketFromSecMarket(0); ok {
		t.Errorf("expected false for unknown sec market")
	}
}

func TestProtoEnv(t *testing.T) {
	if got := EnvReal.ProtoEnv(); got != int32(trdcommon.TrdEnv_TrdEnv_Real) {
		t.Errorf("EnvReal.ProtoEnv() = %d", got)
	}
	if got := EnvSimulate.ProtoEnv(); got != int32(trdcommon.TrdEnv_TrdEnv_Simulate) {
		t.Errorf("EnvSimulate.ProtoEnv() = %d", got)
	}
}
