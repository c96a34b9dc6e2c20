package authkit

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/bookvault/authkit/fieldcipher"
	internalaudit "github.com/bookvault/authkit/internal/audit"
	"github.com/bookvault/authkit/mailer"
	"github.com/bookvault/authkit/password"
	"github.com/bookvault/authkit/session"
	"github.com/bookvault/authkit/token"
)

// Builder assembles an Engine. Configure it fluently, then call Build once.
type Builder struct {
	config Config

	redis      redis.UniversalClient
	creds      CredentialStore
	tokenStore token.Store
	mail       mailer.Mailer
	auditSink  AuditSink
}

// New starts a Builder with default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the configuration wholesale. Zero fields are filled
// with defaults at Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis supplies the Redis client backing sessions and, unless
// WithTokenStore overrides it, verification tokens.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialStore supplies the external credential persistence.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.creds = store
	return b
}

// WithTokenStore overrides the default Redis-backed token store, e.g. with
// the pgstore implementation.
func (b *Builder) WithTokenStore(store token.Store) *Builder {
	b.tokenStore = store
	return b
}

// WithMailer supplies outbound email delivery. Without one, registration
// and reset flows still issue tokens but report EmailDelivered=false.
func (b *Builder) WithMailer(m mailer.Mailer) *Builder {
	b.mail = m
	return b
}

// WithAuditSink supplies the audit destination. Without one, events go to a
// no-op sink (the dispatcher still runs so drop accounting stays honest).
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates configuration and wires the engine. Configuration
// problems (including a half-configured field cipher) fail here, at
// startup, never at request time.
func (b *Builder) Build() (*Engine, error) {
	b.config.applyDefaults()
	if err := b.config.validate(); err != nil {
		return nil, err
	}
	if b.creds == nil {
		return nil, fmt.Errorf("%w: credential store is required", ErrConfiguration)
	}
	if b.redis == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrConfiguration)
	}

	hasher, err := password.NewHasher(b.config.Passwd.Cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	var cipher *fieldcipher.Cipher
	if b.config.Cipher.MasterKey != "" || b.config.Cipher.Salt != "" {
		cipher, err = fieldcipher.New(b.config.Cipher.MasterKey, b.config.Cipher.Salt)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	}

	tokenStore := b.tokenStore
	if tokenStore == nil {
		tokenStore = token.NewRedisStore(b.redis, b.config.Token.RedisPrefix)
	}

	sessions := session.NewStore(
		b.redis,
		b.config.Session.RedisPrefix,
		b.config.Session.InactivityWindow,
		b.config.Session.AbsoluteLifetime,
		nil,
	)

	dispatcher := internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    !b.config.Audit.Disabled,
		BufferSize: b.config.Audit.BufferSize,
		DropIfFull: b.config.Audit.DropIfFull,
	}, b.auditSink)

	return &Engine{
		config:   b.config,
		creds:    b.creds,
		sessions: sessions,
		tokens:   token.NewService(tokenStore, nil),
		hasher:   hasher,
		cipher:   cipher,
		mail:     b.mail,
		audit:    dispatcher,
	}, nil
}
