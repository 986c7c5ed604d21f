package report

import (
	"fmt"
	"time"

	logx "dailypush/pkg/logx"
)

const (
	JobMorning = "report"
	JobRemind  = "remind"
)

// Section names for the morning report, in the only order they render.
const (
	SectionWeather = "weather"
	SectionNews    = "news"
	SectionFinance = "finance"
	SectionQuote   = "quote"
)

// DefaultTopics mirrors the usual spread: four world headlines, three each
// for business and technology.
func DefaultTopics() []Topic {
	return []Topic{{Name: "WORLD", Limit: 4}, {Name: "BUSINESS", Limit: 3}, {Name: "TECHNOLOGY", Limit: 3}}
}

// DefaultFinanceRows lists the quoted pairs, three per line. For exchange
// pairs the rate is "units of To per one From".
func DefaultFinanceRows() [][]Ticker {
	fx := func(label, from, to string) Ticker { return Ticker{Label: label, From: from, To: to, Format: "%6.2f"} }
	crypto := func(sym, format string) Ticker {
		return Ticker{Label: "USD/" + sym, From: sym, To: "USD", Format: format}
	}
	stock := func(sym string) Ticker { return Ticker{Label: sym, Symbol: sym} }
	return [][]Ticker{
		{fx("EUR/CNY", "EUR", "CNY"), fx("EUR/USD", "USD", "EUR"), fx("EUR/GBP", "GBP", "EUR")},
		{fx("CNY/USD", "USD", "CNY"), fx("CNY/GBP", "GBP", "CNY"), fx("CNY/SGD", "SGD", "CNY")},
		{fx("CNY/JPY", "JPY", "CNY"), fx("CNY/KRW", "KRW", "CNY"), fx("CNY/HKD", "HKD", "CNY")},
		{crypto("BTC", "%.2f"), crypto("ETH", "%.2f"), crypto("USDT", "%.5f")},
		{stock("TSLA"), stock("NVDA"), stock("AAPL")},
		{stock("MSFT"), stock("GOOG"), stock("META")},
	}
}

// MorningSources carries the providers for the morning report. A nil source
// drops its section; the remaining ones keep their fixed order.
type MorningSources struct {
	Weather WeatherSource
	News    NewsSource
	Rates   RateSource
	Quote   QuoteSource
}

type MorningOptions struct {
	Location    string
	Topics      []Topic
	FinanceRows [][]Ticker
}

// NewMorning builds the morning report: time → weather → news → finance → quote.
func NewMorning(src MorningSources, opt MorningOptions, log logx.Logger) *Composer {
	if len(opt.Topics) == 0 {
		opt.Topics = DefaultTopics()
	}
	if len(opt.FinanceRows) == 0 {
		opt.FinanceRows = DefaultFinanceRows()
	}

	sections := []Section{TimeHeader{Location: opt.Location}}
	if src.Weather != nil {
		sections = append(sections, WeatherSection{Source: src.Weather, Location: opt.Location})
	}
	if src.News != nil {
		sections = append(sections, NewsSection{Source: src.News, Topics: opt.Topics})
	}
	if src.Rates != nil {
		sections = append(sections, FinanceSection{Source: src.Rates, Rows: opt.FinanceRows})
	}
	if src.Quote != nil {
		sections = append(sections, QuoteSection{Source: src.Quote})
	}
	return &Composer{Job: JobMorning, Title: MorningTitle, Sections: sections, Log: log}
}

// NewRemind builds the meal reminder: time → meal message.
func NewRemind(log logx.Logger) *Composer {
	return &Composer{
		Job:      JobRemind,
		Title:    RemindTitle,
		Sections: []Section{TimeHeader{Short: true}, MealSection{}},
		Log:      log,
	}
}

func MorningTitle(now time.Time) string { return fmt.Sprintf("🌞 早安晨报 (%s)", now.Format("01/02")) }
func RemindTitle(now time.Time) string  { return fmt.Sprintf("🍽️ 吃饭提醒 (%s)", now.Format("01/02")) }
