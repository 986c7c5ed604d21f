package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	logx "dailypush/pkg/logx"
)

const serverChanDefault = "https://sctapi.ftqq.com"

var reSCTP = regexp.MustCompile(`^sctp(\d+)t`)

// SendURL maps a send key to its ServerChan endpoint.
//
//	sctp{N}t... -> https://{N}.push.ft07.com/send/{key}.send
//	anything else -> https://sctapi.ftqq.com/{key}.send
func SendURL(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidSendKey)
	}
	if strings.HasPrefix(key, "sctp") {
		m := reSCTP.FindStringSubmatch(key)
		if m == nil {
			return "", fmt.Errorf("%w: sctp key without server number", ErrInvalidSendKey)
		}
		return fmt.Sprintf("https://%s.push.ft07.com/send/%s.send", m[1], key), nil
	}
	return fmt.Sprintf("%s/%s.send", serverChanDefault, key), nil
}

type ServerChanConfig struct {
	SendKey string
	// Endpoint overrides the URL derived from SendKey.
	Endpoint string
	Timeout  time.Duration
}

// ServerChan posts {title, desp} to a ServerChan endpoint.
type ServerChan struct {
	url  string
	http *http.Client
	log  logx.Logger
}

func NewServerChan(cfg ServerChanConfig, log logx.Logger) (*ServerChan, error) {
	url := strings.TrimSpace(cfg.Endpoint)
	if url == "" {
		u, err := SendURL(cfg.SendKey)
		if err != nil {
			return nil, err
		}
		url = u
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &ServerChan{url: url, http: &http.Client{Timeout: cfg.Timeout}, log: log}, nil
}

func (*ServerChan) Name() string { return "serverchan" }

type serverChanReq struct {
	Title string `json:"title"`
	Desp  string `json:"desp"`
}

type serverChanResp struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Error  string `json:"error"`
		Errno  int    `json:"errno"`
		PushID string `json:"pushid"`
	} `json:"data"`
}

func (s *ServerChan) Send(ctx context.Context, title, body string) (Result, error) {
	res := Result{Gateway: s.Name()}
	payload, err := json.Marshal(serverChanReq{Title: title, Desp: body})
	if err != nil {
		return res, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return res, err
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")

	resp, err := s.http.Do(req)
	if err != nil {
		return res, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return res, err
	}

	var out serverChanResp
	if err := json.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode/100 != 2 {
			return res, fmt.Errorf("%w: serverchan http %d", ErrGateway, resp.StatusCode)
		}
		return res, fmt.Errorf("serverchan response: %w", err)
	}
	res.Error = out.Data.Error
	res.PushID = out.Data.PushID
	s.log.Debug("serverchan response",
		logx.Int("status", resp.StatusCode), logx.Int("code", out.Code), logx.String("pushid", out.Data.PushID))

	if resp.StatusCode/100 != 2 || out.Code != 0 {
		msg := out.Message
		if msg == "" {
			msg = out.Data.Error
		}
		return res, fmt.Errorf("%w: serverchan code %d: %s", ErrGateway, out.Code, msg)
	}
	return res, nil
}
