// internal/config/model.go
//
// Typed configuration model for Pesquisa.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                            – dotenv values,
//   • `conf/global.yaml`                         – primary static file,
//   • `PESQUISA_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • Durations are written as Go duration strings ("10s", "30m").
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	ReadTimeout  time.Duration `koanf:"read_timeout"  validate:"gte=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gte=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"  validate:"gte=0"`
}

//
// Backend section
//

// Backend locates the pesquisa REST API.
type Backend struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	Timeout time.Duration `koanf:"timeout"  validate:"gte=0"`
}

//
// Delivery section
//

// Delivery selects and tunes the delivery strategy.
type Delivery struct {
	Mode      string `koanf:"mode"      validate:"required,oneof=remote messaging"`
	Host      string `koanf:"host"      validate:"omitempty,hostname"`
	Recipient string `koanf:"recipient"`
	Country   string `koanf:"country"   validate:"omitempty,numeric"`
	System    string `koanf:"system"`
	Timezone  string `koanf:"timezone"  validate:"omitempty,timezone"`
}

// Location returns the configured time zone, time.Local when blank.
func (d Delivery) Location() *time.Location {
	if d.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

//
// Respondents section
//

// Respondents bounds the in-memory form sessions.
type Respondents struct {
	IdleTTL       time.Duration `koanf:"idle_ttl"       validate:"gte=0"`
	MaxEntries    int           `koanf:"max_entries"    validate:"gte=0"`
	EvictInterval time.Duration `koanf:"evict_interval" validate:"gte=0"`
}

//
// Session section
//

// Session bounds operator sessions.  Roles, when set, limits the dashboard
// to operators holding one of them.
type Session struct {
	Max   int           `koanf:"max"   validate:"gte=0"`
	TTL   time.Duration `koanf:"ttl"   validate:"gte=0"`
	Roles []string      `koanf:"roles"`
}

//
// Audit, Geo, CSRF, and Log sections
//

// Audit enables the MySQL attempt log when DSN is set.  The DSN usually
// carries a `vault:` reference for the password.
type Audit struct {
	DSN string `koanf:"dsn"`
}

// Geo points at an optional GeoLite2-City database.
type Geo struct {
	DB string `koanf:"db" validate:"omitempty,file"`
}

// CSRF holds the base64 signing key.  Blank means a random per-process key.
type CSRF struct {
	Key string `koanf:"key" validate:"omitempty,base64"`
}

// Log controls the file logger.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.  The loader
// discovers `Root` (repo root or PESQUISA_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // PESQUISA_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP        HTTP        `koanf:"http"`
	Backend     Backend     `koanf:"backend"`
	Delivery    Delivery    `koanf:"delivery"`
	Respondents Respondents `koanf:"respondents"`
	Session     Session     `koanf:"session"`
	Audit       Audit       `koanf:"audit"`
	Geo         Geo         `koanf:"geo"`
	CSRF        CSRF        `koanf:"csrf"`
	Log         Log         `koanf:"log"`
	Paths       Paths       `koanf:"-"` // not loaded from config files
}
