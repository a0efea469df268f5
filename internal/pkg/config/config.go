package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type Config struct {
	HA   HAConfig
	MQTT MQTTConfig

	// BindingsDir holds the device-keyed binding files plus base.json.
	BindingsDir string `env:"HOMER_BINDINGS_DIR" envDefault:"./bindings"`
	// ADCPath is the IIO sysfs channel for the shared button sense line.
	ADCPath    string `env:"HOMER_ADC_PATH" envDefault:"/sys/bus/iio/devices/iio:device0/in_voltage1_raw"`
	DeviceName string `env:"HOMER_DEVICE_NAME" envDefault:"homer"`
	Timezone   string `env:"HOMER_TZ" envDefault:"Local"`
	// RefreshSchedule is a cron expression for the binding config refresh.
	RefreshSchedule string `env:"HOMER_REFRESH_SCHEDULE" envDefault:"0 3 * * *"`
	ListenAddr      string `env:"HOMER_LISTEN_ADDR" envDefault:"0.0.0.0:8000"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"INFO"`
}

type HAConfig struct {
	// Host is the Home Assistant host[:port], no scheme.
	Host  string `env:"HOMER_HA_URL"`
	Token string `env:"HOMER_HA_AUTH"`
	Ssl   bool   `env:"HOMER_HA_SSL" envDefault:"false"`
}

type MQTTConfig struct {
	Broker   string `env:"MQTT_HOST"`
	Username string `env:"MQTT_USER"`
	Password string `env:"MQTT_PASS"`
}

func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HA.Host == "" {
		return fmt.Errorf("HOMER_HA_URL is required")
	}
	if c.HA.Token == "" {
		return fmt.Errorf("HOMER_HA_AUTH is required")
	}
	return nil
}

// Location resolves the configured timezone for the clock line.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// CheckToken inspects the long-lived access token without verifying its
// signature (the service side does that) and warns when it is expired or
// close to expiry. A token that is not a JWT is left alone.
func (c *HAConfig) CheckToken(logger *zap.Logger) {
	token, _, err := jwt.NewParser().ParseUnverified(c.Token, jwt.MapClaims{})
	if err != nil {
		return
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	switch remaining := time.Until(exp.Time); {
	case remaining <= 0:
		logger.Warn("access token is expired", zap.Time("expired_at", exp.Time))
	case remaining < 30*24*time.Hour:
		logger.Warn("access token expires soon", zap.Time("expires_at", exp.Time))
	}
}
