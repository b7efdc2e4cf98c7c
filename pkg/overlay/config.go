package overlay

import (
	"errors"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config carries the engine's tuning knobs. The zero value is not usable;
// start from DefaultConfig or LoadConfig.
type Config struct {
	// MaxToasts caps concurrently visible (non-exiting) toasts.
	MaxToasts int `env:"OVERLAY_MAX_TOASTS" envDefault:"3"`
	// MaxNotifications caps concurrently visible overlay notifications.
	MaxNotifications int `env:"OVERLAY_MAX_NOTIFICATIONS" envDefault:"5"`
	// MaxPersistentItems caps the persistent archive; the oldest entries
	// are dropped beyond it.
	MaxPersistentItems int `env:"OVERLAY_MAX_PERSISTENT_ITEMS" envDefault:"200"`

	// ToastDuration is the default toast auto-dismiss duration.
	ToastDuration time.Duration `env:"OVERLAY_TOAST_DURATION" envDefault:"5s"`
	// NotificationDuration is the default duration for non-persistent
	// overlay notifications.
	NotificationDuration time.Duration `env:"OVERLAY_NOTIFICATION_DURATION" envDefault:"3s"`
	// PersistentDuration is the default duration for persistent overlay
	// notifications.
	PersistentDuration time.Duration `env:"OVERLAY_PERSISTENT_DURATION" envDefault:"5s"`
}

// DefaultConfig returns the built-in defaults without consulting the
// environment.
func DefaultConfig() Config {
	return Config{
		MaxToasts:            3,
		MaxNotifications:     5,
		MaxPersistentItems:   200,
		ToastDuration:        5 * time.Second,
		NotificationDuration: 3 * time.Second,
		PersistentDuration:   5 * time.Second,
	}
}

var loadDotenvOnce sync.Once

// LoadConfig reads the configuration from the environment. A .env file in the
// working directory is loaded once if present; a missing file is fine.
func LoadConfig() (Config, error) {
	loadDotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

// sanitize backfills nonsensical values with defaults so a partially
// populated Config cannot disable a store outright.
func (c Config) sanitize() Config {
	def := DefaultConfig()
	if c.MaxToasts <= 0 {
		c.MaxToasts = def.MaxToasts
	}
	if c.MaxNotifications <= 0 {
		c.MaxNotifications = def.MaxNotifications
	}
	if c.MaxPersistentItems <= 0 {
		c.MaxPersistentItems = def.MaxPersistentItems
	}
	if c.ToastDuration <= 0 {
		c.ToastDuration = def.ToastDuration
	}
	if c.NotificationDuration <= 0 {
		c.NotificationDuration = def.NotificationDuration
	}
	if c.PersistentDuration <= 0 {
		c.PersistentDuration = def.PersistentDuration
	}
	return c
}
