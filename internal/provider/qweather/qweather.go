// Package qweather queries the QWeather API: city lookup, current
// conditions, the 24h hourly forecast, daily life indices and the 7-day
// forecast.
package qweather

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"dailypush/internal/provider"
)

const (
	DefaultGeoBase = "https://geoapi.qweather.com"
	DefaultAPIBase = "https://devapi.qweather.com"
)

type Config struct {
	Key     string
	GeoBase string // default DefaultGeoBase
	APIBase string // default DefaultAPIBase
	Lang    string // default "zh"
}

type City struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Now struct {
	Text      string `json:"text"`
	Temp      string `json:"temp"`
	FeelsLike string `json:"feelsLike"`
	WindDir   string `json:"windDir"`
	WindScale string `json:"windScale"`
}

type Hourly struct {
	FxTime string `json:"fxTime"`
	Temp   string `json:"temp"`
	Text   string `json:"text"`
	Pop    string `json:"pop"`
}

// Index is one life index entry (sport, dressing, UV...). Type is the
// numeric index id as a string ("1" sport, "3" dressing, "5" UV).
type Index struct {
	Date     string `json:"date"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Level    string `json:"level"`
	Category string `json:"category"`
}

type Daily struct {
	FxDate         string `json:"fxDate"`
	TempMax        string `json:"tempMax"`
	TempMin        string `json:"tempMin"`
	TextDay        string `json:"textDay"`
	TextNight      string `json:"textNight"`
	WindDirDay     string `json:"windDirDay"`
	WindScaleDay   string `json:"windScaleDay"`
	WindDirNight   string `json:"windDirNight"`
	WindScaleNight string `json:"windScaleNight"`
}

// Snapshot is everything the weather section renders, fetched in one pass.
type Snapshot struct {
	City    City
	Now     Now
	Hourly  []Hourly
	Indices []Index
	Daily   []Daily
}

type Client struct {
	http *provider.Client
	cfg  Config
}

func New(http *provider.Client, cfg Config) *Client {
	if strings.TrimSpace(cfg.GeoBase) == "" {
		cfg.GeoBase = DefaultGeoBase
	}
	if strings.TrimSpace(cfg.APIBase) == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if strings.TrimSpace(cfg.Lang) == "" {
		cfg.Lang = "zh"
	}
	cfg.GeoBase = strings.TrimRight(cfg.GeoBase, "/")
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	return &Client{http: http, cfg: cfg}
}

// Fetch resolves location and queries now, 24h, indices and 7d in that order.
// The first failure aborts.
func (c *Client) Fetch(ctx context.Context, location string) (Snapshot, error) {
	city, err := c.LookupCity(ctx, location)
	if err != nil {
		return Snapshot{}, err
	}
	now, err := c.Now(ctx, city.ID)
	if err != nil {
		return Snapshot{}, err
	}
	hourly, err := c.Hourly(ctx, city.ID)
	if err != nil {
		return Snapshot{}, err
	}
	indices, err := c.Indices(ctx, city.ID)
	if err != nil {
		return Snapshot{}, err
	}
	daily, err := c.Daily(ctx, city.ID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{City: city, Now: now, Hourly: hourly, Indices: indices, Daily: daily}, nil
}

func (c *Client) LookupCity(ctx context.Context, location string) (City, error) {
	var resp struct {
		Code     string `json:"code"`
		Location []City `json:"location"`
	}
	u := c.cfg.GeoBase + "/v2/city/lookup?location=" + url.QueryEscape(location)
	if err := c.get(ctx, u, &resp.Code, &resp); err != nil {
		return City{}, err
	}
	if len(resp.Location) == 0 {
		return City{}, provider.MissingField("location[0]")
	}
	city := resp.Location[0]
	if err := provider.Missing("location[0]", map[string]string{"id": city.ID}); err != nil {
		return City{}, err
	}
	return city, nil
}

func (c *Client) Now(ctx context.Context, cityID string) (Now, error) {
	var resp struct {
		Code string `json:"code"`
		Now  *Now   `json:"now"`
	}
	if err := c.get(ctx, c.apiURL("/v7/weather/now", cityID, ""), &resp.Code, &resp); err != nil {
		return Now{}, err
	}
	if resp.Now == nil {
		return Now{}, provider.MissingField("now")
	}
	n := *resp.Now
	if err := provider.Missing("now", map[string]string{
		"text": n.Text, "temp": n.Temp, "feelsLike": n.FeelsLike, "windDir": n.WindDir, "windScale": n.WindScale,
	}); err != nil {
		return Now{}, err
	}
	return n, nil
}

func (c *Client) Hourly(ctx context.Context, cityID string) ([]Hourly, error) {
	var resp struct {
		Code   string   `json:"code"`
		Hourly []Hourly `json:"hourly"`
	}
	if err := c.get(ctx, c.apiURL("/v7/weather/24h", cityID, ""), &resp.Code, &resp); err != nil {
		return nil, err
	}
	if resp.Hourly == nil {
		return nil, provider.MissingField("hourly")
	}
	for i, h := range resp.Hourly {
		if err := provider.Missing(fmt.Sprintf("hourly[%d]", i), map[string]string{"fxTime": h.FxTime, "pop": h.Pop}); err != nil {
			return nil, err
		}
	}
	return resp.Hourly, nil
}

func (c *Client) Indices(ctx context.Context, cityID string) ([]Index, error) {
	var resp struct {
		Code  string  `json:"code"`
		Daily []Index `json:"daily"`
	}
	if err := c.get(ctx, c.apiURL("/v7/indices/1d", cityID, "type=0"), &resp.Code, &resp); err != nil {
		return nil, err
	}
	if resp.Daily == nil {
		return nil, provider.MissingField("daily")
	}
	return resp.Daily, nil
}

func (c *Client) Daily(ctx context.Context, cityID string) ([]Daily, error) {
	var resp struct {
		Code  string  `json:"code"`
		Daily []Daily `json:"daily"`
	}
	if err := c.get(ctx, c.apiURL("/v7/weather/7d", cityID, ""), &resp.Code, &resp); err != nil {
		return nil, err
	}
	if len(resp.Daily) == 0 {
		return nil, provider.MissingField("daily[0]")
	}
	for i, d := range resp.Daily {
		if err := provider.Missing(fmt.Sprintf("daily[%d]", i), map[string]string{
			"fxDate": d.FxDate, "tempMax": d.TempMax, "tempMin": d.TempMin, "textDay": d.TextDay, "textNight": d.TextNight,
		}); err != nil {
			return nil, err
		}
	}
	// today's line also prints both winds
	d := resp.Daily[0]
	if err := provider.Missing("daily[0]", map[string]string{
		"windDirDay": d.WindDirDay, "windScaleDay": d.WindScaleDay, "windDirNight": d.WindDirNight, "windScaleNight": d.WindScaleNight,
	}); err != nil {
		return nil, err
	}
	return resp.Daily, nil
}

// IndexByType returns the first index entry of the given type.
func IndexByType(indices []Index, typ string) (Index, error) {
	for _, ix := range indices {
		if ix.Type == typ {
			if err := provider.Missing("daily[type="+typ+"]", map[string]string{"level": ix.Level, "category": ix.Category}); err != nil {
				return Index{}, err
			}
			return ix, nil
		}
	}
	return Index{}, provider.MissingField("daily[type=" + typ + "]")
}

func (c *Client) apiURL(path, cityID, extra string) string {
	q := "location=" + url.QueryEscape(cityID) + "&lang=" + url.QueryEscape(c.cfg.Lang)
	if extra != "" {
		q = extra + "&" + q
	}
	return c.cfg.APIBase + path + "?" + q
}

// get decodes the response and checks QWeather's in-body status code.
// An absent code is tolerated; the payload field checks catch reshaped bodies.
func (c *Client) get(ctx context.Context, u string, code *string, out any) error {
	h := http.Header{}
	h.Set("X-QW-Api-Key", c.cfg.Key)
	if err := c.http.GetJSON(ctx, u, h, out); err != nil {
		return fmt.Errorf("qweather: %w", err)
	}
	if *code != "" && *code != "200" {
		return fmt.Errorf("qweather: %w: code %s", provider.ErrUpstream, *code)
	}
	return nil
}
