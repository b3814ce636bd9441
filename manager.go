package challengeq

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/authkit-dev/challengeq/claim"
)

// Manager orchestrates the challenge-question engine: catalog administration
// with tenant and locale normalization, per-user answer reads and writes, and
// answer verification. Construct it through [New] and [Builder.Build].
//
// A Manager holds no mutable state of its own; it is safe for concurrent use
// when its injected collaborators are.
type Manager struct {
	config  Config
	catalog CatalogStore
	attrs   UserAttributeStore
	events  EventSink
	logger  *zap.Logger

	codec         *claim.Codec
	invalidLocale *regexp.Regexp
}

// Config returns a copy of the manager's effective configuration.
func (m *Manager) Config() Config {
	return cloneConfig(m.config)
}

/*
====================================
CATALOG ADMINISTRATION
====================================
*/

// GetAllChallengeQuestions lists every challenge question registered for the
// tenant, across all locales.
func (m *Manager) GetAllChallengeQuestions(ctx context.Context, tenantDomain string) ([]ChallengeQuestion, error) {
	tenantDomain = m.tenantOrDefault(tenantDomain)

	questions, err := m.catalog.GetAllChallengeQuestions(ctx, tenantDomain)
	if err != nil {
		return nil, asTaggedError(err, CodeStorageFailure, "reading challenge questions of tenant %s", tenantDomain)
	}
	return questions, nil
}

// GetAllChallengeQuestionsByLocale lists the tenant's challenge questions
// for one locale. A blank locale resolves to the configured default.
func (m *Manager) GetAllChallengeQuestionsByLocale(ctx context.Context, tenantDomain, locale string) ([]ChallengeQuestion, error) {
	tenantDomain = m.tenantOrDefault(tenantDomain)

	locale, err := m.normalizeLocale(locale)
	if err != nil {
		return nil, err
	}

	questions, err := m.catalog.GetChallengeQuestionsByLocale(ctx, tenantDomain, locale)
	if err != nil {
		return nil, asTaggedError(err, CodeStorageFailure, "reading %s challenge questions of tenant %s", locale, tenantDomain)
	}
	return questions, nil
}

// GetChallengeSetIDs lists the distinct question-set identifiers registered
// for the tenant.
func (m *Manager) GetChallengeSetIDs(ctx context.Context, tenantDomain string) ([]string, error) {
	tenantDomain = m.tenantOrDefault(tenantDomain)

	ids, err := m.catalog.GetChallengeSetIDs(ctx, tenantDomain)
	if err != nil {
		return nil, asTaggedError(err, CodeStorageFailure, "reading challenge set ids of tenant %s", tenantDomain)
	}
	return ids, nil
}

// AddChallengeQuestions registers or updates challenge questions for the
// tenant. Each question needs a set id, question id and text; locales are
// normalized, and set and question ids must be path safe.
func (m *Manager) AddChallengeQuestions(ctx context.Context, questions []ChallengeQuestion, tenantDomain string) error {
	tenantDomain = m.tenantOrDefault(tenantDomain)

	normalized := make([]ChallengeQuestion, 0, len(questions))
	for _, q := range questions {
		if strings.TrimSpace(q.QuestionSetID) == "" || strings.TrimSpace(q.QuestionID) == "" || strings.TrimSpace(q.Question) == "" {
			return NewClientError(CodeMissingQuestionDetails, "challenge question is missing a set id, question id or question text")
		}

		setDir := SetDirFromURI(q.QuestionSetID, m.config.Claims.Dialect)
		if err := ValidatePathParams(setDir, q.QuestionID); err != nil {
			return err
		}

		locale, err := m.normalizeLocale(q.Locale)
		if err != nil {
			return err
		}
		q.Locale = locale
		normalized = append(normalized, q)
	}

	if err := m.catalog.AddChallengeQuestions(ctx, normalized, tenantDomain); err != nil {
		return asTaggedError(err, CodeStorageFailure, "adding challenge questions to tenant %s", tenantDomain)
	}

	m.logger.Debug("challenge questions added",
		zap.String("tenant", tenantDomain),
		zap.Int("count", len(normalized)))
	return nil
}

// DeleteChallengeQuestions removes challenge questions from the tenant. A
// question with a locale removes only that locale's entry; without one, the
// question is removed across all locales.
func (m *Manager) DeleteChallengeQuestions(ctx context.Context, questions []ChallengeQuestion, tenantDomain string) error {
	tenantDomain = m.tenantOrDefault(tenantDomain)

	normalized := make([]ChallengeQuestion, 0, len(questions))
	for _, q := range questions {
		if strings.TrimSpace(q.QuestionSetID) == "" || strings.TrimSpace(q.QuestionID) == "" {
			return NewClientError(CodeMissingQuestionDetails, "challenge question is missing a set id or question id")
		}

		setDir := SetDirFromURI(q.QuestionSetID, m.config.Claims.Dialect)
		if err := ValidatePathParams(setDir, q.QuestionID); err != nil {
			return err
		}

		if q.Locale != "" {
			locale, err := m.normalizeLocale(q.Locale)
			if err != nil {
				return err
			}
			q.Locale = locale
		}
		normalized = append(normalized, q)
	}

	if err := m.catalog.DeleteChallengeQuestions(ctx, normalized, tenantDomain); err != nil {
		return asTaggedError(err, CodeStorageFailure, "deleting challenge questions of tenant %s", tenantDomain)
	}
	return nil
}

// DeleteChallengeQuestionSet removes a whole question set, or one locale of
// it when locale is non-blank.
func (m *Manager) DeleteChallengeQuestionSet(ctx context.Context, questionSetID, locale, tenantDomain string) error {
	tenantDomain = m.tenantOrDefault(tenantDomain)

	setDir := SetDirFromURI(questionSetID, m.config.Claims.Dialect)
	if err := ValidatePathParams(setDir); err != nil {
		return err
	}

	if locale != "" {
		normalized, err := m.normalizeLocale(locale)
		if err != nil {
			return err
		}
		locale = normalized
	}

	if err := m.catalog.DeleteChallengeQuestionSet(ctx, questionSetID, locale, tenantDomain); err != nil {
		return asTaggedError(err, CodeStorageFailure, "deleting challenge set %s of tenant %s", questionSetID, tenantDomain)
	}
	return nil
}

/*
====================================
USER-FACING CATALOG READS
====================================
*/

// GetAllChallengeQuestionsForUser lists the challenge questions a user
// should be offered: the tenant's catalog in the user's locale, falling back
// to the default locale when the user's locale has no questions. The user's
// locale comes from the configured locale claim; a missing or unreadable
// claim resolves to the default locale.
func (m *Manager) GetAllChallengeQuestionsForUser(ctx context.Context, user User) ([]ChallengeQuestion, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}
	tenantDomain := m.tenantOrDefault(user.TenantDomain)

	locale := m.userLocale(ctx, user)

	questions, err := m.catalog.GetChallengeQuestionsByLocale(ctx, tenantDomain, locale)
	if err != nil {
		return nil, asTaggedError(err, CodeStorageFailure, "reading %s challenge questions of tenant %s", locale, tenantDomain)
	}

	if len(questions) == 0 && locale != m.config.Locale.Default {
		m.logger.Error("no challenge questions for user locale, falling back to default",
			zap.String("tenant", tenantDomain),
			zap.String("locale", locale),
			zap.String("default_locale", m.config.Locale.Default))

		questions, err = m.catalog.GetChallengeQuestionsByLocale(ctx, tenantDomain, m.config.Locale.Default)
		if err != nil {
			return nil, asTaggedError(err, CodeStorageFailure, "reading %s challenge questions of tenant %s", m.config.Locale.Default, tenantDomain)
		}
	}

	return questions, nil
}

// SeedDefaultQuestions inserts the built-in default question sets for a
// tenant. A tenant whose catalog already holds questions is left untouched.
func (m *Manager) SeedDefaultQuestions(ctx context.Context, tenantDomain string) error {
	tenantDomain = m.tenantOrDefault(tenantDomain)

	existing, err := m.catalog.GetAllChallengeQuestions(ctx, tenantDomain)
	if err != nil {
		return asTaggedError(err, CodeStorageFailure, "reading challenge questions of tenant %s", tenantDomain)
	}
	if len(existing) > 0 {
		m.logger.Debug("tenant already has challenge questions, skipping seed",
			zap.String("tenant", tenantDomain))
		return nil
	}

	defaults := defaultQuestions(m.config.Claims.Dialect, m.config.Locale.Default)
	if err := m.catalog.AddChallengeQuestions(ctx, defaults, tenantDomain); err != nil {
		return asTaggedError(err, CodeStorageFailure, "seeding default challenge questions for tenant %s", tenantDomain)
	}

	m.logger.Debug("seeded default challenge questions",
		zap.String("tenant", tenantDomain),
		zap.Int("count", len(defaults)))
	return nil
}

/*
====================================
HELPERS
====================================
*/

func (m *Manager) tenantOrDefault(tenantDomain string) string {
	if strings.TrimSpace(tenantDomain) == "" {
		return m.config.Tenant.Default
	}
	return tenantDomain
}

func (m *Manager) normalizeLocale(locale string) (string, error) {
	return ValidateLocale(locale, m.config.Locale.Default, m.invalidLocale)
}

// userLocale resolves the user's preferred locale from the locale claim.
// Read failures and absent claims resolve to the default locale; the listing
// must not fail because a profile attribute is unreadable.
func (m *Manager) userLocale(ctx context.Context, user User) string {
	values, err := m.attrs.GetAttributes(ctx, user, []string{m.config.Claims.LocaleClaim})
	if err != nil {
		m.logger.Debug("reading locale claim failed, using default locale",
			zap.String("username", user.Username),
			zap.Error(err))
		return m.config.Locale.Default
	}

	locale, err := m.normalizeLocale(values[m.config.Claims.LocaleClaim])
	if err != nil {
		m.logger.Debug("user locale claim is invalid, using default locale",
			zap.String("username", user.Username),
			zap.Error(err))
		return m.config.Locale.Default
	}
	return locale
}

func validateUser(user User) error {
	if strings.TrimSpace(user.Username) == "" {
		return NewClientError(CodeInvalidUser, "user identity is empty")
	}
	return nil
}
