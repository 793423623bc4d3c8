package config

// Config is the full on-disk configuration. JSON is canonical; YAML
// files are coerced to JSON before the strict decode.
//
// All durations are Go duration strings (e.g. "500ms", "10s").
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Store     StoreConfig     `json:"store"`
}

type TelegramConfig struct {
	Token      string `json:"token"`
	APITimeout string `json:"api_timeout,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	// Audiences maps audience references used on announcements to the
	// mention text sent with them.
	Audiences map[string]string `json:"audiences,omitempty"`
}

type LoggingConfig struct {
	Level   string            `json:"level,omitempty"`
	Console bool              `json:"console"`
	File    LoggingFileConfig `json:"file,omitempty"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type SchedulerConfig struct {
	// Channel is the delivery target: a chat id or "@channelname".
	Channel string `json:"channel"`
	// Timezone is an IANA name; empty means the process-local zone.
	Timezone string `json:"timezone,omitempty"`
}

type StoreConfig struct {
	// Driver is "file" (default) or "sqlite".
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}
