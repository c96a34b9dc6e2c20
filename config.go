package authkit

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config carries all tunables. Zero values are filled by defaults at Build;
// instances are treated as immutable once the engine is built.
type Config struct {
	Session SessionConfig
	Token   TokenConfig
	Passwd  PasswordConfig
	Cipher  CipherConfig
	Account AccountConfig
	Mail    MailConfig
	Audit   AuditConfig
}

// SessionConfig controls the session table.
type SessionConfig struct {
	RedisPrefix string
	// InactivityWindow is the sliding ceiling: a session idle longer than
	// this is gone. Every successful Validate pushes the deadline forward.
	InactivityWindow time.Duration
	// AbsoluteLifetime optionally caps total session age regardless of
	// activity. Zero disables the cap.
	AbsoluteLifetime time.Duration
}

// TokenConfig controls verification-token issuance.
type TokenConfig struct {
	RedisPrefix     string
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

// PasswordConfig controls hashing. Cost zero selects the fixed default.
type PasswordConfig struct {
	Cost int
}

// CipherConfig carries the two secrets the field cipher derives its key
// from. Both empty disables card encryption; exactly one set is a fatal
// misconfiguration. The values are opaque and never logged.
type CipherConfig struct {
	MasterKey string
	Salt      string
}

// AccountConfig controls registration.
type AccountConfig struct {
	DefaultRole Role
}

// MailConfig shapes outbound verification and reset messages. LinkBaseURL
// is prepended to wire tokens in email bodies.
type MailConfig struct {
	VerificationSubject string
	ResetSubject        string
	LinkBaseURL         string
}

// AuditConfig controls the async audit dispatcher. The zero value keeps the
// trail on: opting out takes an explicit Disabled, never a forgotten field.
type AuditConfig struct {
	Disabled   bool
	BufferSize int
	DropIfFull bool
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:      "sess",
			InactivityWindow: 30 * time.Minute,
		},
		Token: TokenConfig{
			RedisPrefix:     "vt",
			VerificationTTL: 24 * time.Hour,
			ResetTTL:        time.Hour,
		},
		Account: AccountConfig{
			DefaultRole: RoleCustomer,
		},
		Mail: MailConfig{
			VerificationSubject: "Verify your account",
			ResetSubject:        "Reset your password",
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

func (c *Config) applyDefaults() {
	def := defaultConfig()
	if c.Session.RedisPrefix == "" {
		c.Session.RedisPrefix = def.Session.RedisPrefix
	}
	if c.Session.InactivityWindow <= 0 {
		c.Session.InactivityWindow = def.Session.InactivityWindow
	}
	if c.Token.RedisPrefix == "" {
		c.Token.RedisPrefix = def.Token.RedisPrefix
	}
	if c.Token.VerificationTTL <= 0 {
		c.Token.VerificationTTL = def.Token.VerificationTTL
	}
	if c.Token.ResetTTL <= 0 {
		c.Token.ResetTTL = def.Token.ResetTTL
	}
	if c.Account.DefaultRole == "" {
		c.Account.DefaultRole = def.Account.DefaultRole
	}
	if c.Mail.VerificationSubject == "" {
		c.Mail.VerificationSubject = def.Mail.VerificationSubject
	}
	if c.Mail.ResetSubject == "" {
		c.Mail.ResetSubject = def.Mail.ResetSubject
	}
	if c.Audit.BufferSize <= 0 {
		c.Audit.BufferSize = def.Audit.BufferSize
	}
}

func (c *Config) validate() error {
	if !c.Account.DefaultRole.Valid() {
		return fmt.Errorf("%w: unknown default role %q", ErrConfiguration, c.Account.DefaultRole)
	}
	if c.Account.DefaultRole == PrivilegedRole {
		return fmt.Errorf("%w: default role must not be privileged", ErrConfiguration)
	}
	if (c.Cipher.MasterKey == "") != (c.Cipher.Salt == "") {
		return fmt.Errorf("%w: field cipher needs both master key and salt", ErrConfiguration)
	}
	return nil
}

// Environment variable names read by ConfigFromEnv. The cipher secrets are
// required; everything else falls back to defaults.
const (
	EnvCipherMasterKey = "ENCRYPTION_KEY"
	EnvCipherSalt      = "ENCRYPTION_SALT"
	EnvMailLinkBase    = "MAIL_LINK_BASE_URL"
)

// ConfigFromEnv loads a .env file when present (ignored when absent) and
// builds a Config from the environment. The two cipher secrets are
// mandatory here: this constructor exists for deployments that store card
// data, and running without the key material is a startup failure, not a
// degraded mode.
func ConfigFromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	cfg.Cipher.MasterKey = os.Getenv(EnvCipherMasterKey)
	cfg.Cipher.Salt = os.Getenv(EnvCipherSalt)
	cfg.Mail.LinkBaseURL = os.Getenv(EnvMailLinkBase)

	if cfg.Cipher.MasterKey == "" || cfg.Cipher.Salt == "" {
		return Config{}, fmt.Errorf("%w: %s and %s must be set", ErrConfiguration, EnvCipherMasterKey, EnvCipherSalt)
	}
	return cfg, nil
}
