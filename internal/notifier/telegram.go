package notifier

import (
	"context"
	"errors"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "dailypush/pkg/logx"
)

const telegramTextLimit = 4096

type TelegramConfig struct {
	Token  string
	ChatID int64
	// APIURL overrides the Bot API base (tests, local bot servers).
	APIURL  string
	Timeout time.Duration
}

// Telegram posts reports through a bot. The bot never polls; it only sends.
type Telegram struct {
	bot  *tele.Bot
	chat *tele.Chat
	log  logx.Logger
}

func NewTelegram(cfg TelegramConfig, log logx.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimRight(cfg.APIURL, "/"),
		Token:   cfg.Token,
		Client:  &http.Client{Timeout: cfg.Timeout},
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Telegram{bot: b, chat: &tele.Chat{ID: cfg.ChatID}, log: log}, nil
}

func (*Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, title, body string) (Result, error) {
	res := Result{Gateway: t.Name()}
	header := "<b>" + html.EscapeString(title) + "</b>\n\n"
	budget := max(telegramTextLimit-textUnits(header), telegramTextLimit/2)
	chunks := splitText(strings.TrimRight(body, "\n"), budget)
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	opt := &tele.SendOptions{ParseMode: tele.ModeHTML, DisableWebPagePreview: true}

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		text := html.EscapeString(chunk)
		if i == 0 {
			text = header + text
		}
		msg, err := t.bot.Send(t.chat, text, opt)
		if err != nil {
			res.Error = err.Error()
			return res, errors.Join(ErrGateway, err)
		}
		if i == 0 && msg != nil {
			res.PushID = strconv.Itoa(msg.ID)
		}
	}
	res.Error = "SUCCESS"
	return res, nil
}

// units is what r costs once escaped, in UTF-16 code units (the unit
// Telegram counts message length in).
func units(r rune) int {
	switch {
	case r == '&', r == '\'', r == '"':
		return 5 // &amp; &#39; &#34;
	case r == '<', r == '>':
		return 4
	case r > 0xFFFF:
		return 2
	default:
		return 1
	}
}

// textUnits measures already-escaped text.
func textUnits(s string) int {
	n := 0
	for _, r := range s {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// splitText cuts plain (unescaped) s into chunks whose escaped form fits in
// limit units. Cuts prefer a newline in the last two thirds of the window.
// Escaping happens per chunk, so no cut lands inside an entity.
func splitText(s string, limit int) []string {
	rs := []rune(s)
	var out []string
	start := 0
	for start < len(rs) {
		end, size := start, 0
		for end < len(rs) && size+units(rs[end]) <= limit {
			size += units(rs[end])
			end++
		}
		if end == start {
			end++
		}
		if end < len(rs) {
			for i := end - 1; i > start+(end-start)/3; i-- {
				if rs[i] == '\n' {
					end = i + 1
					break
				}
			}
		}

		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
