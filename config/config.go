// Package config defines the overall configuration of the automation run.
// Values are taken from a config yml file or environment variables or both.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Debug prints debug logs and stores additional helpful debugging data when set.
var Debug bool

type ctxKey string

// LoggerCtxKey is the context key under which a run-scoped logger is stored.
const LoggerCtxKey ctxKey = "logger"

func GetLogLevel() slog.Level {
	if Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// DelayRange is a [min, max] interval in seconds from which delays are drawn
// uniformly at random.
type DelayRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Delays groups the delay ranges for the different suspension points of a run.
type Delays struct {
	LikePost        DelayRange `yaml:"like_post"`
	ViewStory       DelayRange `yaml:"view_story"`
	BetweenActions  DelayRange `yaml:"between_actions"`
	BetweenTargets  DelayRange `yaml:"between_targets"`
	BetweenAccounts DelayRange `yaml:"between_accounts"`
	PageLoad        DelayRange `yaml:"page_load"`
}

// BrowserConfig defines how browser sessions are created.
type BrowserConfig struct {
	Headless      bool     `yaml:"headless" env:"BROWSER_HEADLESS"`
	StealthMode   bool     `yaml:"stealth_mode"`
	TimeoutMS     int      `yaml:"timeout_ms" env:"BROWSER_TIMEOUT_MS" env-default:"30000"`
	UserAgents    []string `yaml:"user_agents"`
	ViewportSizes [][2]int `yaml:"viewport_sizes"`
}

// SafetyLimits are read by orchestration, not enforced by the engine itself.
type SafetyLimits struct {
	MaxAccounts        int `yaml:"max_accounts" env-default:"50"`
	MaxParallelWorkers int `yaml:"max_parallel_workers" env-default:"10"`
	DailyActionLimit   int `yaml:"daily_action_limit" env-default:"100"`
}

// Selectors groups the CSS selectors the executor operates on. They live in
// the config so that a platform markup change does not require a new binary.
type Selectors struct {
	Login   LoginSelectors  `yaml:"login"`
	Posts   PostSelectors   `yaml:"posts"`
	Stories StorySelectors  `yaml:"stories"`
	Follow  FollowSelectors `yaml:"follow"`
	Direct  DirectSelectors `yaml:"direct"`
}

type LoginSelectors struct {
	UsernameField string `yaml:"username_field"`
	PasswordField string `yaml:"password_field"`
	LoginButton   string `yaml:"login_button"`
	DismissPopup  string `yaml:"dismiss_popup"`
}

type PostSelectors struct {
	PostLinks   string `yaml:"post_links"`
	LikeButton  string `yaml:"like_button"`
	LikedButton string `yaml:"liked_button"`
	CloseButton string `yaml:"close_button"`
}

type StorySelectors struct {
	StoryRing  string `yaml:"story_ring"`
	Container  string `yaml:"container"`
	LikeButton string `yaml:"like_button"`
	ReplyField string `yaml:"reply_field"`
	SendButton string `yaml:"send_button"`
	NextButton string `yaml:"next_button"`
	CloseStory string `yaml:"close_story"`
}

type FollowSelectors struct {
	FollowButton    string `yaml:"follow_button"`
	FollowingButton string `yaml:"following_button"`
}

type DirectSelectors struct {
	SearchField  string `yaml:"search_field"`
	ResultRows   string `yaml:"result_rows"`
	NextButton   string `yaml:"next_button"`
	MessageField string `yaml:"message_field"`
	SendButton   string `yaml:"send_button"`
}

// Config defines the overall structure of the automation configuration.
type Config struct {
	BaseURL      string        `yaml:"base_url" env:"BASE_URL" env-default:"https://www.instagram.com"`
	Workers      int           `yaml:"workers" env:"WORKERS" env-default:"1"`
	DataDir      string        `yaml:"data_dir" env:"DATA_DIR" env-default:"data"`
	Browser      BrowserConfig `yaml:"browser"`
	Delays       Delays        `yaml:"delays"`
	Safety       SafetyLimits  `yaml:"safety"`
	Selectors    Selectors     `yaml:"selectors"`
	BlockPhrases []string      `yaml:"block_phrases"`
}

// DefaultBlockPhrases are the known platform rate-limit indicators, matched
// case-insensitively against page and dialog text.
var DefaultBlockPhrases = []string{
	"Try Again Later",
	"Please wait a few minutes",
	"temporarily blocked",
	"unusual activity",
	"We restrict certain activity",
	"Action Blocked",
	"temporary ban",
}

var defaultUserAgents = []string{
	"Mozilla/5.0 (iPhone; CPU iPhone OS 16_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 13; SM-G998B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 12; Pixel 6 Pro) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/107.0.0.0 Mobile Safari/537.36",
}

var defaultViewports = [][2]int{
	{375, 812},
	{414, 896},
	{390, 844},
	{360, 640},
}

var defaultDelays = Delays{
	LikePost:        DelayRange{2, 5},
	ViewStory:       DelayRange{1, 3},
	BetweenActions:  DelayRange{5, 15},
	BetweenTargets:  DelayRange{30, 90},
	BetweenAccounts: DelayRange{300, 600},
	PageLoad:        DelayRange{2, 5},
}

var defaultSelectors = Selectors{
	Login: LoginSelectors{
		UsernameField: "input[name='username']",
		PasswordField: "input[name='password']",
		LoginButton:   "button[type='submit']",
		DismissPopup:  "div[role='dialog'] button",
	},
	Posts: PostSelectors{
		PostLinks:   "article a[href*='/p/']",
		LikeButton:  "svg[aria-label='Like']",
		LikedButton: "svg[aria-label='Unlike']",
		CloseButton: "svg[aria-label='Close']",
	},
	Stories: StorySelectors{
		StoryRing:  "canvas",
		Container:  "div[role='dialog']",
		LikeButton: "svg[aria-label='Like']",
		ReplyField: "textarea[placeholder*='message']",
		SendButton: "button[type='submit']",
		NextButton: "button[aria-label='Next']",
		CloseStory: "svg[aria-label='Close']",
	},
	Follow: FollowSelectors{
		FollowButton:    "header button[type='button']",
		FollowingButton: "header button[aria-label='Following']",
	},
	Direct: DirectSelectors{
		SearchField:  "input[placeholder*='Search']",
		ResultRows:   "div[role='dialog'] span",
		NextButton:   "div[role='dialog'] div[role='button'][tabindex='0']",
		MessageField: "textarea[placeholder*='Message']",
		SendButton:   "button[type='submit']",
	},
}

func NewConfig(configPath string) (*Config, error) {
	var config Config

	if err := cleanenv.ReadConfig(configPath, &config); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %v", configPath, err)
	}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	d := yaml.NewDecoder(file)
	if err := d.Decode(&config); err != nil {
		return nil, err
	}
	config.ApplyDefaults()
	return &config, nil
}

// DefaultConfig returns a config with all defaults filled in, for callers
// that run without a config file.
func DefaultConfig() *Config {
	c := &Config{
		BaseURL: "https://www.instagram.com",
		Workers: 1,
		DataDir: "data",
		Browser: BrowserConfig{StealthMode: true, TimeoutMS: 30000},
	}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills in every field the config file left empty.
func (c *Config) ApplyDefaults() {
	if len(c.BlockPhrases) == 0 {
		c.BlockPhrases = DefaultBlockPhrases
	}
	if len(c.Browser.UserAgents) == 0 {
		c.Browser.UserAgents = defaultUserAgents
	}
	if len(c.Browser.ViewportSizes) == 0 {
		c.Browser.ViewportSizes = defaultViewports
	}
	if c.Browser.TimeoutMS == 0 {
		c.Browser.TimeoutMS = 30000
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://www.instagram.com"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	zero := DelayRange{}
	if c.Delays.LikePost == zero {
		c.Delays.LikePost = defaultDelays.LikePost
	}
	if c.Delays.ViewStory == zero {
		c.Delays.ViewStory = defaultDelays.ViewStory
	}
	if c.Delays.BetweenActions == zero {
		c.Delays.BetweenActions = defaultDelays.BetweenActions
	}
	if c.Delays.BetweenTargets == zero {
		c.Delays.BetweenTargets = defaultDelays.BetweenTargets
	}
	if c.Delays.BetweenAccounts == zero {
		c.Delays.BetweenAccounts = defaultDelays.BetweenAccounts
	}
	if c.Delays.PageLoad == zero {
		c.Delays.PageLoad = defaultDelays.PageLoad
	}
	if c.Selectors.Login == (LoginSelectors{}) {
		c.Selectors.Login = defaultSelectors.Login
	}
	if c.Selectors.Posts == (PostSelectors{}) {
		c.Selectors.Posts = defaultSelectors.Posts
	}
	if c.Selectors.Stories == (StorySelectors{}) {
		c.Selectors.Stories = defaultSelectors.Stories
	}
	if c.Selectors.Follow == (FollowSelectors{}) {
		c.Selectors.Follow = defaultSelectors.Follow
	}
	if c.Selectors.Direct == (DirectSelectors{}) {
		c.Selectors.Direct = defaultSelectors.Direct
	}
}
