package app

import (
	"fmt"
	"strings"
	"time"

	"dailypush/internal/config"
	"dailypush/internal/notifier"
	"dailypush/internal/provider"
	"dailypush/internal/provider/alphavantage"
	"dailypush/internal/provider/gnews"
	"dailypush/internal/provider/hitokoto"
	"dailypush/internal/provider/qweather"
	"dailypush/internal/report"
	"dailypush/internal/storage"
	logx "dailypush/pkg/logx"
)

// components is everything derived from one config snapshot. A reload builds
// a fresh set and swaps it in.
type components struct {
	cfg       *config.Config
	loc       *time.Location
	composers map[string]*report.Composer
	notif     *notifier.Service
}

func build(cfg *config.Config, log logx.Logger, store storage.Store, dryRun bool) (*components, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	hc, err := mapHTTPConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := provider.NewClient(hc, log.With(logx.Comp("provider")))

	var src report.MorningSources
	if config.On(cfg.Weather.Enabled) {
		src.Weather = qweather.New(client, qweather.Config{
			Key:     cfg.Weather.Key,
			GeoBase: cfg.Weather.GeoBase,
			APIBase: cfg.Weather.APIBase,
			Lang:    cfg.Weather.Lang,
		})
	}
	if config.On(cfg.News.Enabled) {
		src.News = gnews.New(client, gnews.Config{
			Base:            cfg.News.Base,
			Language:        cfg.News.Language,
			Country:         cfg.News.Country,
			MaxResults:      cfg.News.MaxResults,
			ExcludeWebsites: cfg.News.ExcludeWebsites,
		})
	}
	if config.On(cfg.Finance.Enabled) {
		src.Rates = alphavantage.New(client, alphavantage.Config{Key: cfg.Finance.Key, Base: cfg.Finance.Base})
	}
	if config.On(cfg.Quote.Enabled) {
		src.Quote = hitokoto.New(client, hitokoto.Config{Base: cfg.Quote.Base, Categories: cfg.Quote.Categories})
	}

	topics := make([]report.Topic, 0, len(cfg.News.Topics))
	for _, t := range cfg.News.Topics {
		topics = append(topics, report.Topic{Name: strings.ToUpper(strings.TrimSpace(t.Name)), Limit: t.Limit})
	}
	rlog := log.With(logx.Comp("report"))
	composers := map[string]*report.Composer{
		report.JobMorning: report.NewMorning(src, report.MorningOptions{Location: cfg.Weather.Location, Topics: topics}, rlog),
		report.JobRemind:  report.NewRemind(rlog),
	}

	var gateways []notifier.Gateway
	if !dryRun {
		if gateways, err = buildGateways(cfg, log); err != nil {
			return nil, err
		}
	}
	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &components{
		cfg:       cfg,
		loc:       loc,
		composers: composers,
		notif:     notifier.New(ncfg, gateways, log, store),
	}, nil
}

func buildGateways(cfg *config.Config, log logx.Logger) ([]notifier.Gateway, error) {
	var out []notifier.Gateway
	sc := cfg.Push.ServerChan
	if strings.TrimSpace(sc.SendKey) != "" || strings.TrimSpace(sc.Endpoint) != "" {
		g, err := notifier.NewServerChan(notifier.ServerChanConfig{SendKey: sc.SendKey, Endpoint: sc.Endpoint},
			log.With(logx.Comp("serverchan")))
		if err != nil {
			return nil, fmt.Errorf("push.serverchan: %w", err)
		}
		out = append(out, g)
	}
	if tg := cfg.Push.Telegram; tg != nil {
		g, err := notifier.NewTelegram(notifier.TelegramConfig{Token: tg.Token, ChatID: tg.ChatID, APIURL: tg.APIURL},
			log.With(logx.Comp("telegram")))
		if err != nil {
			return nil, fmt.Errorf("push.telegram: %w", err)
		}
		out = append(out, g)
	}
	return out, nil
}
