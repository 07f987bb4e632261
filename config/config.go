package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds the project config values
type Config struct {
	Env string `env:"ENV" envDefault:"production"`

	DiscordToken  string   `env:"DISCORD_TOKEN"`
	InviteChannel []string `env:"INVITE_CHANNEL" envSeparator:","`
	AdminPrefix   string   `env:"ADMIN_PREFIX" envDefault:">"`
	RootCommand   string   `env:"ROOT_COMMAND" envDefault:"2100"`

	InvitesFile   string `env:"INVITES_FILE" envDefault:"codes.csv"`
	WhitelistFile string `env:"WHITELIST_FILE" envDefault:"whitelist.json"`
	BotStateFile  string `env:"BOT_STATE_FILE" envDefault:"botstate.json"`
	ModLogFile    string `env:"MOD_LOG_FILE" envDefault:"moderation-log.csv"`

	// InviteStore selects the invite table backend, csv or mongo
	InviteStore  string `env:"INVITE_STORE" envDefault:"csv"`
	DatabaseURL  string `env:"DB_URI"`
	DatabaseName string `env:"DB_NAME" envDefault:"invitebot"`

	ModDeleteMessages  bool     `env:"MOD_DELETE_MESSAGES" envDefault:"true"`
	ModNotify          bool     `env:"MOD_NOTIFY" envDefault:"true"`
	ModExemptChannels  []string `env:"MOD_EXEMPT_CHANNELS" envSeparator:","`
	LogChannel         string   `env:"LOG_CHANNEL"`
	NoticeRetractAfter int      `env:"MOD_NOTICE_SECONDS" envDefault:"120"`

	NotificationsChannel  string `env:"NOTIFICATIONS_CHANNEL"`
	NotificationsSchedule string `env:"NOTIFICATIONS_CRON_SCHEDULE"`
	MinMessages           int    `env:"MIN_MESSAGES" envDefault:"10"`
	CooldownMinutes       int    `env:"COOLDOWN_MINUTES" envDefault:"15"`

	Port          string `env:"PORT"`
	AdminAPIToken string `env:"ADMIN_API_TOKEN"`
}

// Invite table backends selectable with INVITE_STORE
const (
	StoreCSV   = "csv"
	StoreMongo = "mongo"
)

// ErrMissingToken is returned when no bot token is configured
var ErrMissingToken = errors.New("DISCORD_TOKEN is required")

// New sets up all config related services. Values from a .env file in the
// working directory are loaded first and never override the real environment.
func New() (*Config, error) {
	_ = godotenv.Load()

	var conf Config
	if err := env.Parse(&conf); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	conf.InviteChannel = cleanList(conf.InviteChannel)
	conf.ModExemptChannels = cleanList(conf.ModExemptChannels)
	conf.InviteStore = strings.ToLower(strings.TrimSpace(conf.InviteStore))

	//setup zap logger and replace default logger
	logger, err := setLogger(conf.Env)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	_ = zap.ReplaceGlobals(logger)

	if conf.DiscordToken == "" {
		return &conf, ErrMissingToken
	}
	switch conf.InviteStore {
	case StoreCSV:
	case StoreMongo:
		if conf.DatabaseURL == "" {
			return &conf, errors.New("DB_URI is required when INVITE_STORE is mongo")
		}
	default:
		return &conf, fmt.Errorf("unknown INVITE_STORE %q", conf.InviteStore)
	}

	return &conf, nil
}

// IsInviteChannel reports whether claims are accepted in channelID. An empty
// INVITE_CHANNEL list places no restriction.
func (c *Config) IsInviteChannel(channelID string) bool {
	if len(c.InviteChannel) == 0 {
		return true
	}
	for _, id := range c.InviteChannel {
		if id == channelID {
			return true
		}
	}
	return false
}

func cleanList(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With("error", err).Error(message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	w.Write([]byte(fmt.Sprintf(`{"response": "%s, %v"}`, message, err)))
}
