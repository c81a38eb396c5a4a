package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Spok95/metalqms/internal/domain/notifications"
	"github.com/Spok95/metalqms/internal/domain/requirements"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env       string
		Timezone  string
		LogFormat string `mapstructure:"log_format"`
		Storage   string // postgres | memory
	} `mapstructure:"app"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
		PollTimeout int   `mapstructure:"poll_timeout"`
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Notifications struct {
		Enabled     bool
		Interval    time.Duration
		Lease       time.Duration
		BatchSize   int           `mapstructure:"batch_size"`
		MaxAttempts int           `mapstructure:"max_attempts"`
		BaseBackoff time.Duration `mapstructure:"base_backoff"`
		MaxBackoff  time.Duration `mapstructure:"max_backoff"`
	} `mapstructure:"notifications"`

	QC struct {
		AutoCreate bool `mapstructure:"auto_create"`
	} `mapstructure:"qc"`

	// Пустая таблица — берутся правила по умолчанию.
	Rules requirements.Table `mapstructure:"rules"`
}

// Dispatcher — настройки outbox-диспетчера.
func (c Config) Dispatcher() notifications.DispatcherConfig {
	n := c.Notifications
	return notifications.DispatcherConfig{
		Interval:    n.Interval,
		Lease:       n.Lease,
		BatchSize:   n.BatchSize,
		MaxAttempts: n.MaxAttempts,
		BaseBackoff: n.BaseBackoff,
		MaxBackoff:  n.MaxBackoff,
	}
}

// RuleTable — таблица из конфига или по умолчанию, уже проверенная.
func (c Config) RuleTable() (requirements.Table, error) {
	// Незаданная секция берётся из встроенной таблицы целиком.
	t, def := c.Rules, requirements.DefaultTable()
	if len(t.Ultrasonic) == 0 {
		t.Ultrasonic = def.Ultrasonic
	}
	if len(t.Ppsd.Grades) == 0 && t.Ppsd.MinChromiumPct == 0 && t.Ppsd.MinNickelPct == 0 {
		t.Ppsd = def.Ppsd
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

func (c Config) Location() *time.Location {
	if c.App.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "Europe/Moscow")
	v.SetDefault("app.log_format", "json")
	v.SetDefault("app.storage", "postgres")
	// ключи без умолчаний viper не сопоставит с окружением при Unmarshal
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_chat_id", 0)
	v.SetDefault("telegram.poll_timeout", 30)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.interval", "5s")
	v.SetDefault("notifications.lease", "1m")
	v.SetDefault("notifications.batch_size", 50)
	v.SetDefault("notifications.max_attempts", 8)
	v.SetDefault("notifications.base_backoff", "10s")
	v.SetDefault("notifications.max_backoff", "1h")
	v.SetDefault("qc.auto_create", true)
}

// New — viper с умолчаниями и переменными окружения APP_*, например
// APP_POSTGRES_DSN для postgres.dsn. Файл .env, если он есть, читается
// раньше и не перекрывает уже заданное окружение.
func New() *viper.Viper {
	_ = gotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load читает файл конфигурации. Отсутствующий файл не ошибка:
// работаем на умолчаниях и окружении.
func Load(v *viper.Viper, path string) (Config, error) {
	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return c, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	if _, err := c.RuleTable(); err != nil {
		return c, fmt.Errorf("rules: %w", err)
	}
	if c.App.Storage != "postgres" && c.App.Storage != "memory" {
		return c, fmt.Errorf("app.storage: unknown %q", c.App.Storage)
	}
	return c, nil
}
