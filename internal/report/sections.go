package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dailypush/internal/provider"
	"dailypush/internal/provider/gnews"
	"dailypush/internal/provider/hitokoto"
	"dailypush/internal/provider/qweather"
)

// Provider ports. The provider packages satisfy these; tests use fakes.

type WeatherSource interface {
	Fetch(ctx context.Context, location string) (qweather.Snapshot, error)
}

type NewsSource interface {
	Topic(ctx context.Context, topic string) ([]gnews.Article, error)
}

type RateSource interface {
	ExchangeRate(ctx context.Context, from, to string) (float64, error)
	StockPrice(ctx context.Context, symbol string) (float64, error)
}

type QuoteSource interface {
	Today(ctx context.Context) (hitokoto.Quote, error)
}

// ---- time header ----

// TimeHeader opens every report. Location is the display name used in the
// morning variant; Short selects the reminder variant.
type TimeHeader struct {
	Location string
	Short    bool
}

func (TimeHeader) Name() string { return "time" }

func (h TimeHeader) Render(_ context.Context, now time.Time) (string, error) {
	if h.Short {
		return fmt.Sprintf("🕒 现在是%d年%d月%d日%d时%d分\n\n", now.Year(), int(now.Month()), now.Day(), now.Hour(), now.Minute()), nil
	}
	return fmt.Sprintf("🕒 现在是%d年%d月%d日，%s时间早上%d时%d分，星期%s，%s，开启元气满满的一天吧！\n\n",
		now.Year(), int(now.Month()), now.Day(), h.Location, now.Hour(), now.Minute(),
		weekdayName(now, 0), weekdayBlurbs[mondayIndex(now.Weekday())]), nil
}

// ---- weather ----

// Index type ids used by the weather section.
const (
	indexSport    = "1"
	indexDressing = "3"
	indexUV       = "5"
)

type WeatherSection struct {
	Source   WeatherSource
	Location string
}

func (WeatherSection) Name() string { return SectionWeather }

func (w WeatherSection) Render(ctx context.Context, now time.Time) (string, error) {
	snap, err := w.Source.Fetch(ctx, w.Location)
	if err != nil {
		return "", err
	}
	if len(snap.Daily) == 0 {
		return "", provider.MissingField("daily[0]")
	}
	var b strings.Builder

	n := snap.Now
	fmt.Fprintf(&b, "⛅️ 当前天气：%s，实时气温：%s°C，体感温度：%s°C，风力情况：%s%s级。\n\n",
		n.Text, n.Temp, n.FeelsLike, n.WindDir, n.WindScale)

	today := snap.Daily[0]
	fmt.Fprintf(&b, "🌡️ 今日气温：%s°C~%s°C，白天%s，%s%s级，夜晚%s，%s%s级。\n\n",
		today.TempMin, today.TempMax,
		wetText(today.TextDay), today.WindDirDay, today.WindScaleDay,
		wetText(today.TextNight), today.WindDirNight, today.WindScaleNight)

	rainHour, pop, rainy, err := rainOutlook(snap.Hourly)
	if err != nil {
		return "", err
	}
	if rainy {
		fmt.Fprintf(&b, "☔️ 今天可能会下雨，出门记得带伞哦！预计%d小时后降雨，降水概率为%d%%。\n\n", rainHour-now.Hour(), pop)
	}

	dressing, err := qweather.IndexByType(snap.Indices, indexDressing)
	if err != nil {
		return "", err
	}
	uv, err := qweather.IndexByType(snap.Indices, indexUV)
	if err != nil {
		return "", err
	}
	sport, err := qweather.IndexByType(snap.Indices, indexSport)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, "👕 天气指数：穿衣指数-%s(%s)，紫外线指数-%s(%s)，运动指数-%s(%s)。\n\n",
		dressing.Category, dressing.Level, uv.Category, uv.Level, sport.Category, sport.Level)

	fmt.Fprintf(&b, "📅 未来%d日天气预报：\n\n", len(snap.Daily)-1)
	for i, d := range snap.Daily {
		if i == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s(星期%s)：气温%s~%s°C，白天%s，夜晚%s\n\n",
			monthDay(d.FxDate), weekdayName(now, i), d.TempMin, d.TempMax, d.TextDay, d.TextNight)
	}
	return b.String(), nil
}

// ---- news ----

type Topic struct {
	Name  string // WORLD, BUSINESS, TECHNOLOGY...
	Limit int
}

type NewsSection struct {
	Source NewsSource
	Topics []Topic
}

func (NewsSection) Name() string { return SectionNews }

func (s NewsSection) Render(ctx context.Context, _ time.Time) (string, error) {
	var b strings.Builder
	b.WriteString("📰 热点新闻：\n\n")
	n := 0
	for _, t := range s.Topics {
		arts, err := s.Source.Topic(ctx, t.Name)
		if err != nil {
			return "", err
		}
		if t.Limit > 0 && len(arts) > t.Limit {
			arts = arts[:t.Limit]
		}
		for _, a := range arts {
			n++
			fmt.Fprintf(&b, "%d. %s\n\n", n, gnews.Headline(a.Title))
		}
	}
	return b.String(), nil
}

// ---- finance ----

// Ticker is one quoted value. Exchange pairs set From/To; stocks set Symbol.
type Ticker struct {
	Label  string
	From   string
	To     string
	Symbol string
	Format string // default "%.2f"
}

type FinanceSection struct {
	Source RateSource
	Rows   [][]Ticker
}

func (FinanceSection) Name() string { return SectionFinance }

func (s FinanceSection) Render(ctx context.Context, _ time.Time) (string, error) {
	var b strings.Builder
	b.WriteString("💵 实时金融市场数据：\n\n")
	for _, row := range s.Rows {
		parts := make([]string, 0, len(row))
		for _, t := range row {
			v, err := s.quote(ctx, t)
			if err != nil {
				return "", err
			}
			format := t.Format
			if format == "" {
				format = "%.2f"
			}
			parts = append(parts, t.Label+": "+fmt.Sprintf(format, v))
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

func (s FinanceSection) quote(ctx context.Context, t Ticker) (float64, error) {
	if t.Symbol != "" {
		return s.Source.StockPrice(ctx, t.Symbol)
	}
	return s.Source.ExchangeRate(ctx, t.From, t.To)
}

// ---- quote ----

type QuoteSection struct {
	Source QuoteSource
}

func (QuoteSection) Name() string { return SectionQuote }

func (s QuoteSection) Render(ctx context.Context, _ time.Time) (string, error) {
	q, err := s.Source.Today(ctx)
	if err != nil {
		return "", err
	}
	attribution := "《" + q.From + "》"
	if q.FromWho != "" {
		attribution = q.FromWho + attribution
	}
	return fmt.Sprintf("💬 每日一句：「%s」—— %s\n\n", q.Text, attribution), nil
}

// ---- meal reminder ----

type MealSection struct{}

func (MealSection) Name() string { return "meal" }

func (MealSection) Render(_ context.Context, now time.Time) (string, error) {
	switch h := now.Hour(); {
	case h < 12:
		return "🍳 新的一天刚刚开始，不要忘记吃早餐哦！", nil
	case h < 18:
		return "🍛 工作再忙，也不要忘记吃午饭哦！", nil
	default:
		return "🍝 一天的工作结束了，快去吃点好的犒劳一下自己吧！", nil
	}
}
