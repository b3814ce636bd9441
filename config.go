package challengeq

import (
	"errors"
	"regexp"
	"time"
)

// Config defines the tunable behavior of a [Manager].
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	Claims   ClaimConfig
	Locale   LocaleConfig
	Tenant   TenantConfig
	Recovery RecoveryConfig
}

/*
====================================
CLAIM CONFIG
====================================
*/

// ClaimConfig controls how answers are encoded into user attributes.
//
// Separator joins question text and answer digest inside one stored value,
// and joins set identifiers inside the answered-sets index attribute.
// AnswersClaim and LocaleClaim default to well-known URIs under Dialect when
// left blank.
type ClaimConfig struct {
	Dialect      string
	AnswersClaim string
	LocaleClaim  string
	Separator    string
}

/*
====================================
LOCALE CONFIG
====================================
*/

// LocaleConfig controls locale normalization. Blank locales fall back to
// Default; locales matching InvalidPattern are rejected before any lookup.
type LocaleConfig struct {
	Default        string
	InvalidPattern string
}

/*
====================================
TENANT CONFIG
====================================
*/

// TenantConfig controls tenant normalization. Users carrying a blank tenant
// domain are attributed to Default.
type TenantConfig struct {
	Default string
}

/*
====================================
RECOVERY CONFIG
====================================
*/

// RecoveryConfig controls the question-based account recovery flow. When
// Enabled, a successful verification of at least MinAnswers answers yields a
// signed recovery assertion valid for AssertionTTL. SigningKey is the HMAC
// key for the assertion and must be at least 32 bytes.
type RecoveryConfig struct {
	Enabled      bool
	MinAnswers   int
	AssertionTTL time.Duration
	SigningKey   []byte
	Issuer       string
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	const dialect = "http://schemas.authkit.dev/claims"
	return Config{
		Claims: ClaimConfig{
			Dialect:      dialect,
			AnswersClaim: dialect + "/challengeQuestionUris",
			LocaleClaim:  dialect + "/locality",
			Separator:    ";",
		},
		Locale: LocaleConfig{
			Default:        "en_US",
			InvalidPattern: `[^\w_\-]`,
		},
		Tenant: TenantConfig{
			Default: "carbon.super",
		},
		Recovery: RecoveryConfig{
			Enabled:      false,
			MinAnswers:   2,
			AssertionTTL: 10 * time.Minute,
			Issuer:       "challengeq",
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency. It is called
// by [Builder.Build]; callers constructing a Config by hand may use it
// directly.
func (c *Config) Validate() error {
	if c.Claims.Dialect == "" {
		return errors.New("Claims Dialect must not be empty")
	}
	if c.Claims.Separator == "" {
		return errors.New("Claims Separator must not be empty")
	}
	if c.Locale.Default == "" {
		return errors.New("Locale Default must not be empty")
	}
	if c.Locale.InvalidPattern != "" {
		if _, err := regexp.Compile(c.Locale.InvalidPattern); err != nil {
			return errors.New("Locale InvalidPattern is not a valid regular expression")
		}
	}
	if c.Tenant.Default == "" {
		return errors.New("Tenant Default must not be empty")
	}

	if c.Recovery.Enabled {
		if c.Recovery.MinAnswers <= 0 {
			return errors.New("Recovery MinAnswers must be > 0 when recovery is enabled")
		}
		if c.Recovery.AssertionTTL <= 0 {
			return errors.New("Recovery AssertionTTL must be > 0 when recovery is enabled")
		}
		if len(c.Recovery.SigningKey) < 32 {
			return errors.New("Recovery SigningKey must be >= 256 bits when recovery is enabled")
		}
		if c.Recovery.Issuer == "" {
			return errors.New("Recovery Issuer is required when recovery is enabled")
		}
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Recovery.SigningKey = cloneBytes(cfg.Recovery.SigningKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
