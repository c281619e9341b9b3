package reactive

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

const (
	KeyLogLevel      = "reactive.log.level"
	KeyLogFormatter  = "reactive.log.formatter"
	KeyPrefetch      = "reactive.rx.prefetch"
	KeyVerifyTimeout = "reactive.verify.timeout"
	KeyVerifyHorizon = "reactive.verify.horizon"
	KeyTacoDir       = "reactive.taco.dir"
	KeyTacoCacheTTL  = "reactive.taco.cache_ttl"
	KeyTacoRecent    = "reactive.taco.recent"
)

const (
	DefaultPrefetch      = 32
	DefaultVerifyTimeout = 5 * time.Second
	DefaultVerifyHorizon = 24 * time.Hour
	DefaultTacoCacheTTL  = time.Minute
	DefaultTacoRecent    = 12
)

type Config interface {
	Get(string) interface{}
	GetBool(string) bool
	GetInt(string) int
	GetString(string) string
	GetDuration(string) time.Duration

	IsSet(string) bool

	GetDefault(string, interface{}) interface{}
	GetBoolDefault(string, bool) bool
	GetIntDefault(string, int) int
	GetStringDefault(string, string) string
	GetDurationDefault(string, time.Duration) time.Duration

	GetConfig(string) (Config, bool)
}

var envOnce sync.Once

// Settings returns the process wide configuration. Keys can be overridden by
// environment variables, e.g. REACTIVE_RX_PREFETCH.
func Settings() Config {
	v := viper.GetViper()
	envOnce.Do(func() {
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	})
	return &viperWrapper{v}
}

// LoadConfig merges the given file (yaml, json, toml...) into Settings.
func LoadConfig(path string) error {
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return E(InvalidArgument, "config", err)
	}
	configureLogging(Settings())
	return nil
}

type viperWrapper struct {
	*viper.Viper
}

func (w *viperWrapper) GetDefault(key string, v interface{}) interface{} {
	if w.IsSet(key) {
		return w.Get(key)
	}
	return v
}

func (w *viperWrapper) GetBoolDefault(key string, v bool) bool {
	if w.IsSet(key) {
		return w.GetBool(key)
	}
	return v
}

func (w *viperWrapper) GetIntDefault(key string, v int) int {
	if w.IsSet(key) {
		return w.GetInt(key)
	}
	return v
}

func (w *viperWrapper) GetStringDefault(key string, v string) string {
	if w.IsSet(key) {
		return w.GetString(key)
	}
	return v
}

func (w *viperWrapper) GetDurationDefault(key string, v time.Duration) time.Duration {
	if w.IsSet(key) {
		return w.GetDuration(key)
	}
	return v
}

func (w *viperWrapper) GetConfig(key string) (Config, bool) {
	if w.IsSet(key) {
		return &viperWrapper{
			w.Sub(key),
		}, true
	}
	return nil, false
}

// Prefetch is the per-upstream buffer bound of fan-in operators.
func Prefetch() int {
	if n := Settings().GetIntDefault(KeyPrefetch, DefaultPrefetch); n > 0 {
		return n
	}
	return DefaultPrefetch
}

func VerifyTimeout() time.Duration {
	return Settings().GetDurationDefault(KeyVerifyTimeout, DefaultVerifyTimeout)
}

// VerifyHorizon bounds how far the verifier advances virtual time while
// waiting for a single signal.
func VerifyHorizon() time.Duration {
	return Settings().GetDurationDefault(KeyVerifyHorizon, DefaultVerifyHorizon)
}
