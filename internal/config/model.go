// internal/config/model.go
//
// Typed configuration model.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `conf/.env`                      – dotenv values,
//   • `conf/global.yaml`                        – primary static file,
//   • `CONTACT_`-prefixed environment overrides – highest precedence.
//
// Validation happens immediately after unmarshal and defaults; the app fails
// fast if a value is out of range.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml`
//     tags unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Durations accept Go syntax, e.g. "2s" or "90m".

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Form section
//

// Form holds CSRF and definition settings for the forms subsystem.
//
// CSRFKey is a base64url string of at least 32 bytes.  When empty the
// service generates an ephemeral key, which invalidates rendered forms on
// restart.
type Form struct {
	CSRFKey     string        `koanf:"csrf_key"      validate:"omitempty,csrfkey"`
	MinFillTime time.Duration `koanf:"min_fill_time" validate:"gte=0"`
	TokenMaxAge time.Duration `koanf:"token_max_age" validate:"gt=0"`
	Definitions string        `koanf:"definitions"   validate:"omitempty,dir"`
}

//
// Log section
//

// Log controls the zap logger.
type Log struct {
	Level   string `koanf:"level"   validate:"oneof=debug info warn error"`
	Console bool   `koanf:"console"`
}

//
// Live section
//

// Live configures the websocket live-validation endpoint.
type Live struct {
	OriginPatterns []string      `koanf:"origin_patterns"`
	IdleTimeout    time.Duration `koanf:"idle_timeout" validate:"gt=0"`
}

//
// GeoIP section
//

// GeoIP points at an optional GeoLite2-City database.
type GeoIP struct {
	CityDB string `koanf:"city_db" validate:"omitempty,file"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // CONTACT_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP  HTTP  `koanf:"http"`
	Form  Form  `koanf:"form"`
	Log   Log   `koanf:"log"`
	Live  Live  `koanf:"live"`
	GeoIP GeoIP `koanf:"geoip"`
	Paths Paths `koanf:"-"` // not loaded from config files
}

// Defaults returns the configuration used when no file or env sets a key.
func Defaults() Config {
	return Config{
		HTTP: HTTP{ListenAddr: ":8080"},
		Form: Form{TokenMaxAge: 2 * time.Hour},
		Log:  Log{Level: "info"},
		Live: Live{IdleTimeout: 10 * time.Minute},
	}
}
