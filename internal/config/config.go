package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/example/resource-island/internal/game"
)

// Config is the full configuration surface recognized by the server.
type Config struct {
	Server    ServerConfig `mapstructure:"server" validate:"required"`
	GameRules GameRules    `mapstructure:"game_rules" validate:"required"`
}

// ServerConfig covers binding and the token gate.
type ServerConfig struct {
	BindHost        string `mapstructure:"bind_host" validate:"required"`
	BindPort        int    `mapstructure:"bind_port" validate:"gte=1,lte=65535"`
	RequiredPlayers int    `mapstructure:"required_players" validate:"gte=1"`
	UseToken        bool   `mapstructure:"use_token"`
	QueryUseToken   bool   `mapstructure:"query_use_token"`
	Token           string `mapstructure:"token"`
	TokenMode       string `mapstructure:"token_mode" validate:"oneof=static signed"`
}

// Addr returns the host:port the HTTP server binds.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.BindHost, s.BindPort)
}

// GameRules groups the gameplay options.
type GameRules struct {
	Prepare        PrepareConfig    `mapstructure:"prepare" validate:"required"`
	ResourceValues map[string]int   `mapstructure:"resource_values"`
	Investment     InvestmentConfig `mapstructure:"investment"`
}

// PrepareConfig covers deck and timeline setup.
type PrepareConfig struct {
	TotalEpochs   int            `mapstructure:"total_epochs" validate:"gte=1"`
	DrawCards     int            `mapstructure:"draw_cards" validate:"gte=0"`
	DefaultAP     int            `mapstructure:"default_ap" validate:"gte=0"`
	PhaseInterval time.Duration  `mapstructure:"phase_interval" validate:"gt=0"`
	Deck          map[string]int `mapstructure:"deck"`
}

// InvestmentConfig covers the investment action surface. Action effects are
// resolved elsewhere; the server only carries the cost table.
type InvestmentConfig struct {
	Enable  bool        `mapstructure:"enable"`
	NeedsAP ActionCosts `mapstructure:"needs_ap"`
}

// ActionCosts is the per-action action-point price list.
type ActionCosts struct {
	Explore  int `mapstructure:"explore" validate:"gte=0"`
	Exchange int `mapstructure:"exchange" validate:"gte=0"`
	Build    int `mapstructure:"build" validate:"gte=0"`
	Open     int `mapstructure:"open" validate:"gte=0"`
	Bank     int `mapstructure:"bank" validate:"gte=0"`
	Mine     int `mapstructure:"mine" validate:"gte=0"`
	Pick     int `mapstructure:"pick" validate:"gte=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.bind_host", "0.0.0.0")
	v.SetDefault("server.bind_port", 8080)
	v.SetDefault("server.required_players", 4)
	v.SetDefault("server.use_token", false)
	v.SetDefault("server.query_use_token", false)
	v.SetDefault("server.token", "set_the_token_here")
	v.SetDefault("server.token_mode", "static")
	v.SetDefault("game_rules.prepare.total_epochs", 10)
	v.SetDefault("game_rules.prepare.draw_cards", 10)
	v.SetDefault("game_rules.prepare.default_ap", 5)
	v.SetDefault("game_rules.prepare.phase_interval", "5s")
	v.SetDefault("game_rules.prepare.deck", map[string]int{
		"diamond": 50, "gold": 80, "wood": 100, "ore": 100, "food": 100, "iron": 100,
	})
	v.SetDefault("game_rules.resource_values", map[string]int{
		"diamond": 8, "gold": 6, "wood": 2, "ore": 3, "food": 1, "iron": 2,
	})
	v.SetDefault("game_rules.investment.enable", true)
	v.SetDefault("game_rules.investment.needs_ap", map[string]int{
		"explore": 1, "exchange": 2, "build": 3, "open": 1, "bank": 0, "mine": 0, "pick": 0,
	})
}

// Load reads the YAML config at path, layering environment overrides
// (RESOURCE_ISLAND_ prefix) over the file over the defaults. A missing file
// is created with the defaults so operators have something to edit.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("RESOURCE_ISLAND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := v.SafeWriteConfigAs(path); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := cfg.Rules(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Rules converts the label-keyed gameplay options into their typed form,
// failing on any label the catalog does not know and on partially populated
// tables.
func (c *Config) Rules() (game.Rules, error) {
	values, err := itemTable("resource_values", c.GameRules.ResourceValues)
	if err != nil {
		return game.Rules{}, err
	}
	counts, err := itemTable("deck", c.GameRules.Prepare.Deck)
	if err != nil {
		return game.Rules{}, err
	}
	return game.Rules{
		ResourceValues:      values,
		DeckCounts:          counts,
		DrawCards:           c.GameRules.Prepare.DrawCards,
		DefaultActionPoints: c.GameRules.Prepare.DefaultAP,
		TotalEpochs:         c.GameRules.Prepare.TotalEpochs,
	}, nil
}

func itemTable(name string, labeled map[string]int) (map[game.Item]int, error) {
	table := make(map[game.Item]int, len(labeled))
	for label, n := range labeled {
		item, err := game.ItemFromLabel(label)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		table[item] = n
	}
	for _, item := range game.Items() {
		if _, ok := table[item]; !ok {
			return nil, fmt.Errorf("%s: missing entry for %q", name, item.Label())
		}
	}
	return table, nil
}
