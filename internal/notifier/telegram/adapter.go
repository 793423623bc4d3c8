// Package telegram delivers announcements through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

// Config configures the delivery adapter.
type Config struct {
	Token      string
	APITimeout time.Duration
	RatePerSec int
	// Audiences maps opaque audience references to the mention text
	// prepended to a delivered announcement, e.g. "team" -> "@team_members".
	Audiences map[string]string
}

// Adapter implements notifier.Notifier and notifier.AudienceResolver on
// top of a telebot client. It is safe for concurrent use; Apply may be
// called at any time to pick up new audience mappings or rate limits.
type Adapter struct {
	log *slog.Logger
	bot *tele.Bot

	mu        sync.Mutex
	audiences map[string]string
	limiter   *rate.Limiter
}

func New(cfg Config, log *slog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.APITimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	a := &Adapter{log: log, bot: b}
	a.Apply(cfg)
	return a, nil
}

// Apply installs the current audience map and rate limit.
func (a *Adapter) Apply(cfg Config) {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	a.mu.Lock()
	a.audiences = cfg.Audiences
	a.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	a.mu.Unlock()
}

// Deliver sends text to the channel reference, which is either a
// numeric chat id or an "@channelname".
func (a *Adapter) Deliver(ctx context.Context, channel string, text string) error {
	to, err := recipient(channel)
	if err != nil {
		return err
	}

	a.mu.Lock()
	lim := a.limiter
	a.mu.Unlock()
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
	}

	_, err = a.bot.Send(to, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	return err
}

// Resolve maps an audience reference to its mention text. Unknown
// references resolve to an empty mention so the announcement still goes
// out; the miss is logged once per firing.
func (a *Adapter) Resolve(ctx context.Context, audienceRef string) (string, error) {
	_ = ctx
	ref := strings.TrimSpace(audienceRef)
	if ref == "" {
		return "", nil
	}

	a.mu.Lock()
	mention, ok := a.audiences[ref]
	a.mu.Unlock()
	if !ok {
		a.log.Warn("unknown audience reference", slog.String("audience", ref))
		return "", nil
	}
	return mention, nil
}

type chatRef string

func (c chatRef) Recipient() string { return string(c) }

func recipient(channel string) (tele.Recipient, error) {
	ch := strings.TrimSpace(channel)
	if ch == "" {
		return nil, errors.New("channel reference is empty")
	}
	if id, err := strconv.ParseInt(ch, 10, 64); err == nil {
		return tele.ChatID(id), nil
	}
	if strings.HasPrefix(ch, "@") {
		return chatRef(ch), nil
	}
	return nil, errors.New("channel must be a chat id or @channelname: " + channel)
}
