package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
	// TrustProxy enables client address rewriting from X-Forwarded-For /
	// X-Real-IP. Leave off unless the service sits behind a trusted proxy,
	// otherwise the claim identity is spoofable.
	TrustProxy bool `yaml:"trust_proxy" env-default:"false"`
}

type MongoConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"coupondrop"`
}

type AuthConfig struct {
	Secret string `yaml:"secret" env-default:""`
	// TokenTTLMinutes bounds admin session lifetime.
	TokenTTLMinutes int `yaml:"token_ttl_minutes" env-default:"60"`
}

type ClaimConfig struct {
	// AbuseWindowMinutes is the rolling window during which one requester
	// identity may hold at most one claimed coupon.
	AbuseWindowMinutes int `yaml:"abuse_window_minutes" env-default:"10"`
	// CookieMaxAgeSeconds is the lifetime of the advisory "claimed" cookie.
	CookieMaxAgeSeconds int `yaml:"cookie_max_age_seconds" env-default:"60"`
	// RatePerMinute and RateBurst bound claim attempts per source IP before
	// the request reaches the allocator at all.
	RatePerMinute int `yaml:"rate_per_minute" env-default:"10"`
	RateBurst     int `yaml:"rate_burst" env-default:"10"`
}

type Config struct {
	Env    string      `yaml:"env" env-default:"local"`
	Listen Listen      `yaml:"listen"`
	Mongo  MongoConfig `yaml:"mongo"`
	Auth   AuthConfig  `yaml:"auth"`
	Claim  ClaimConfig `yaml:"claim"`
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

func (c *Config) AbuseWindow() time.Duration {
	return time.Duration(c.Claim.AbuseWindowMinutes) * time.Minute
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
