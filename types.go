package challengeq

import "context"

// ChallengeQuestion is one catalog entry. Entries are uniquely identified by
// (QuestionSetID, QuestionID, Locale) within a tenant; QuestionSetID is a
// URI-like identifier whose final path segment (after the claim dialect
// prefix) names the question set.
type ChallengeQuestion struct {
	QuestionSetID string `json:"questionSetId"`
	QuestionID    string `json:"questionId,omitempty"`
	Question      string `json:"question"`
	Locale        string `json:"locale,omitempty"`
}

// UserChallengeAnswer pairs a challenge question reference with an answer.
// On the way in (SetChallengeAnswers, Verify*) Answer holds the user's
// plaintext answer; on the way out (GetChallengeAnswers) Answer holds the
// stored digest. Plaintext answers are never persisted.
type UserChallengeAnswer struct {
	Question *ChallengeQuestion `json:"question"`
	Answer   string             `json:"answer"`
}

// User identifies the account whose answers are read or written. A blank
// TenantDomain is normalized to the configured default tenant.
type User struct {
	Username        string
	TenantDomain    string
	UserStoreDomain string
}

// CatalogStore is the capability set every question-catalog backend
// implements. All operations are tenant scoped; implementations live in the
// catalog package (relational, registry and hybrid variants).
type CatalogStore interface {
	// GetAllChallengeQuestions returns every question of the tenant across
	// all locales.
	GetAllChallengeQuestions(ctx context.Context, tenantDomain string) ([]ChallengeQuestion, error)

	// GetChallengeQuestionsByLocale returns the tenant's questions for one
	// locale. The locale is already normalized by the caller.
	GetChallengeQuestionsByLocale(ctx context.Context, tenantDomain, locale string) ([]ChallengeQuestion, error)

	// GetChallengeSetIDs returns the distinct question-set identifiers of
	// the tenant, without duplicates.
	GetChallengeSetIDs(ctx context.Context, tenantDomain string) ([]string, error)

	// AddChallengeQuestions validates and upserts questions: an existing
	// (setID, questionID, locale) key is updated in place, anything else is
	// inserted.
	AddChallengeQuestions(ctx context.Context, questions []ChallengeQuestion, tenantDomain string) error

	// DeleteChallengeQuestions removes questions. A question carrying a
	// locale removes only that locale's entry; a blank locale removes the
	// question across all locales. Deleting an absent question is a no-op.
	DeleteChallengeQuestions(ctx context.Context, questions []ChallengeQuestion, tenantDomain string) error

	// DeleteChallengeQuestionSet removes a whole question set, or only one
	// locale of it when locale is non-blank.
	DeleteChallengeQuestionSet(ctx context.Context, questionSetID, locale, tenantDomain string) error
}

// UserAttributeStore is the external user-attribute collaborator. One
// attribute holds each answered question set's encoded claim value, plus one
// index attribute enumerating the answered set identifiers.
type UserAttributeStore interface {
	// GetAttributes returns the requested attribute values. Absent
	// attributes are simply missing from the returned map.
	GetAttributes(ctx context.Context, user User, names []string) (map[string]string, error)

	// SetAttributes writes all given attribute values in one batch.
	SetAttributes(ctx context.Context, user User, values map[string]string) error

	// DeleteAttributes removes the named attributes. Deleting an absent
	// attribute is a no-op.
	DeleteAttributes(ctx context.Context, user User, names []string) error
}
