// Package config provides YAML-based configuration loading for Switchboard.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names accepted by llm.provider.
const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
)

// Config is the top-level Switchboard configuration, loaded from switchboard.yaml.
type Config struct {
	Owner      string           `yaml:"owner"`
	BatchSize  int              `yaml:"batch_size"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	LLM        LLMConfig        `yaml:"llm"`
	Templates  TemplateConfig   `yaml:"templates"`
	Delays     DelayConfig      `yaml:"delays"`
	Hours      HoursConfig      `yaml:"hours"`
	Notify     NotifyConfig     `yaml:"notify"`
	DoubleText DoubleTextConfig `yaml:"double_text"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Browser    BrowserConfig    `yaml:"browser"`
}

// DatabaseConfig selects the persistence backend for conversation history.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "mysql"
	Path     string `yaml:"path"`   // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ServerConfig holds the command surface listen settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LLMConfig holds credentials and model choices for both chat providers.
type LLMConfig struct {
	Provider string         `yaml:"provider"`
	OpenAI   ProviderConfig `yaml:"openai"`
	Groq     ProviderConfig `yaml:"groq"`
}

// ProviderConfig configures one OpenAI-compatible endpoint.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// TemplateConfig holds the user-editable prompt templates.
type TemplateConfig struct {
	Reply        string `yaml:"reply"`
	LeadCriteria string `yaml:"lead_criteria"`
}

// DelayConfig bounds the randomized pauses, in milliseconds.
type DelayConfig struct {
	ChatMinMs int `yaml:"chat_min_ms"`
	ChatMaxMs int `yaml:"chat_max_ms"`
	LoopMinMs int `yaml:"loop_min_ms"`
	LoopMaxMs int `yaml:"loop_max_ms"`
}

// HoursConfig is the strict working-hours gate. Start is inclusive, End exclusive.
type HoursConfig struct {
	Strict bool `yaml:"strict"`
	Start  int  `yaml:"start"`
	End    int  `yaml:"end"`
}

// NotifyConfig controls where qualified-lead alerts are delivered.
type NotifyConfig struct {
	Email         string        `yaml:"email"`
	EmailFrom     string        `yaml:"email_from"`
	EmailAPIKey   string        `yaml:"email_api_key"`
	EmailEndpoint string        `yaml:"email_endpoint"`
	Slack         SlackConfig   `yaml:"slack"`
	Discord       DiscordConfig `yaml:"discord"`
}

// SlackConfig posts alerts with a bot token.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig posts alerts with a bot token.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DoubleTextConfig toggles splitting replies into two messages.
type DoubleTextConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ScheduleConfig holds the optional autostart cron expression.
type ScheduleConfig struct {
	Autostart string `yaml:"autostart"`
}

// BrowserConfig configures the rod-driven page collaborator.
type BrowserConfig struct {
	ControlURL string    `yaml:"control_url"` // attach to a running Chrome; empty launches one
	Headless   bool      `yaml:"headless"`
	InboxURL   string    `yaml:"inbox_url"`
	Selectors  Selectors `yaml:"selectors"`
}

// Selectors are the CSS selectors the page collaborator uses.
type Selectors struct {
	ThreadItem    string `yaml:"thread_item"`
	ThreadLink    string `yaml:"thread_link"`
	UnreadBadge   string `yaml:"unread_badge"`
	LeadName      string `yaml:"lead_name"`
	MessageGroup  string `yaml:"message_group"`
	MessageSender string `yaml:"message_sender"`
	MessageBody   string `yaml:"message_body"`
	Composer      string `yaml:"composer"`
	SendButton    string `yaml:"send_button"`
	ProfileLink   string `yaml:"profile_link"`
	Headline      string `yaml:"headline"`
	Location      string `yaml:"location"`
	Degree        string `yaml:"degree"`
}

// Load reads a YAML config file from path and returns a validated Config.
// A .env file next to the process, if present, is loaded first so secrets
// can stay out of the YAML.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv(os.Getenv)
	cfg.clamp()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse unmarshals YAML bytes into a validated Config without consulting the
// environment.
func Parse(data []byte) (*Config, error) {
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	cfg.clamp()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "switchboard.db"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 7420
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenAI
	}
	if c.LLM.OpenAI.Model == "" {
		c.LLM.OpenAI.Model = "gpt-4o-mini"
	}
	if c.LLM.Groq.Model == "" {
		c.LLM.Groq.Model = "llama-3.1-8b-instant"
	}
	if c.Templates.Reply == "" {
		c.Templates.Reply = DefaultReplyTemplate
	}
	if c.Templates.LeadCriteria == "" {
		c.Templates.LeadCriteria = DefaultLeadCriteria
	}
	if c.Delays == (DelayConfig{}) {
		c.Delays = DelayConfig{ChatMinMs: 20_000, ChatMaxMs: 60_000, LoopMinMs: 300_000, LoopMaxMs: 900_000}
	}
	if c.Hours.Start == 0 && c.Hours.End == 0 {
		c.Hours.Start, c.Hours.End = 9, 18
	}
	if c.Notify.EmailEndpoint == "" {
		c.Notify.EmailEndpoint = "https://api.resend.com/emails"
	}
	if c.Browser.InboxURL == "" {
		c.Browser.InboxURL = "https://www.linkedin.com/messaging/"
	}
	c.Browser.Selectors.fill()
}

// DefaultReplyTemplate is used when templates.reply is empty.
const DefaultReplyTemplate = "The lead {user_name} just wrote: \"{extracted_text}\". " +
	"Reply in one or two short sentences and move the conversation toward a quick call."

// DefaultLeadCriteria is used when templates.lead_criteria is empty.
const DefaultLeadCriteria = "The lead shows clear buying intent: asks about pricing, a demo, a call, or next steps."

func (s *Selectors) fill() {
	def := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	def(&s.ThreadItem, "li.msg-conversation-listitem")
	def(&s.ThreadLink, "a.msg-conversation-listitem__link, div.msg-conversation-listitem__link")
	def(&s.UnreadBadge, ".msg-conversation-card__unread-count, .notification-badge--show")
	def(&s.LeadName, "h2.msg-entity-lockup__entity-title, .msg-thread__link-to-profile")
	def(&s.MessageGroup, "li.msg-s-message-list__event")
	def(&s.MessageSender, ".msg-s-message-group__name")
	def(&s.MessageBody, ".msg-s-event-listitem__body")
	def(&s.Composer, "div.msg-form__contenteditable")
	def(&s.SendButton, "button.msg-form__send-button")
	def(&s.ProfileLink, "a.msg-thread__link-to-profile")
	def(&s.Headline, "div.text-body-medium")
	def(&s.Location, "span.text-body-small.inline.t-black--light")
	def(&s.Degree, "span.dist-value")
}

// applyEnv overrides secrets and a few operational values from the environment.
func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	set(&c.LLM.OpenAI.APIKey, "SWITCHBOARD_OPENAI_API_KEY", "OPENAI_API_KEY")
	set(&c.LLM.Groq.APIKey, "SWITCHBOARD_GROQ_API_KEY", "GROQ_API_KEY")
	set(&c.Notify.EmailAPIKey, "SWITCHBOARD_EMAIL_API_KEY", "EMAIL_API_KEY")
	set(&c.Notify.Slack.BotToken, "SWITCHBOARD_SLACK_BOT_TOKEN", "SLACK_BOT_TOKEN")
	set(&c.Notify.Discord.BotToken, "SWITCHBOARD_DISCORD_BOT_TOKEN", "DISCORD_BOT_TOKEN")
	set(&c.Database.Password, "SWITCHBOARD_DB_PASSWORD")
	set(&c.Database.Path, "SWITCHBOARD_DB_PATH")
	set(&c.Browser.ControlURL, "SWITCHBOARD_CHROME_URL")
}

// clamp keeps numeric settings within sane ranges and enforces min <= max.
func (c *Config) clamp() {
	c.BatchSize = clampInt(c.BatchSize, 1, 100)

	d := &c.Delays
	d.ChatMinMs = clampInt(d.ChatMinMs, 1_000, 600_000)
	d.ChatMaxMs = clampInt(d.ChatMaxMs, 1_000, 600_000)
	if d.ChatMaxMs < d.ChatMinMs {
		d.ChatMaxMs = d.ChatMinMs
	}
	d.LoopMinMs = clampInt(d.LoopMinMs, 60_000, 6*3_600_000)
	d.LoopMaxMs = clampInt(d.LoopMaxMs, 60_000, 6*3_600_000)
	if d.LoopMaxMs < d.LoopMinMs {
		d.LoopMaxMs = d.LoopMinMs
	}

	c.Hours.Start = clampInt(c.Hours.Start, 0, 23)
	c.Hours.End = clampInt(c.Hours.End, 1, 24)
	if c.Hours.End <= c.Hours.Start {
		c.Hours.End = c.Hours.Start + 1
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Owner == "" {
		errs = append(errs, "owner is required")
	}
	switch c.Database.Driver {
	case "sqlite":
	case "mysql":
		if c.Database.Name == "" {
			errs = append(errs, "database.name is required for mysql")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported", c.Database.Driver))
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGroq:
	default:
		errs = append(errs, fmt.Sprintf("llm.provider %q is not supported", c.LLM.Provider))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ActiveProvider returns the provider config selected by llm.provider.
func (c *Config) ActiveProvider() ProviderConfig {
	if c.LLM.Provider == ProviderGroq {
		return c.LLM.Groq
	}
	return c.LLM.OpenAI
}

// NotificationsEnabled reports whether any lead alert sink is configured.
func (c *Config) NotificationsEnabled() bool {
	return c.Notify.Email != "" || c.Notify.Slack.BotToken != "" || c.Notify.Discord.BotToken != ""
}
