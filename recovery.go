package challengeq

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecoveryChallenge is the set of questions a user must answer to recover
// their account.
type RecoveryChallenge struct {
	RecoveryID string
	Questions  []ChallengeQuestion
}

type recoveryClaims struct {
	jwt.RegisteredClaims
	TenantDomain string `json:"tenant,omitempty"`
}

// InitiateQuestionRecovery starts a question-based recovery flow: it returns
// the questions the user has answered, which the caller presents as the
// recovery challenge. Users who answered fewer than the configured minimum
// cannot recover through questions.
func (m *Manager) InitiateQuestionRecovery(ctx context.Context, user User) (*RecoveryChallenge, error) {
	if !m.config.Recovery.Enabled {
		return nil, NewClientError(CodeRecoveryDisabled, "question-based recovery is disabled")
	}
	if err := validateUser(user); err != nil {
		return nil, err
	}

	stored, err := m.storedAnswers(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(stored) < m.config.Recovery.MinAnswers {
		return nil, NewClientError(CodeInsufficientAnswers,
			"user has answered %d challenge questions, %d required for recovery",
			len(stored), m.config.Recovery.MinAnswers)
	}

	questions := make([]ChallengeQuestion, 0, len(stored))
	for _, s := range stored {
		questions = append(questions, ChallengeQuestion{QuestionSetID: s.setID, Question: s.text})
	}

	challenge := &RecoveryChallenge{
		RecoveryID: uuid.NewString(),
		Questions:  questions,
	}

	m.logger.Debug("question recovery initiated",
		zap.String("username", user.Username),
		zap.String("recovery_id", challenge.RecoveryID),
		zap.Int("questions", len(questions)))
	return challenge, nil
}

// VerifyAnswersForRecovery verifies the supplied answers and, when all of
// them match and meet the configured minimum, issues a signed recovery
// assertion the caller exchanges for the actual credential reset.
func (m *Manager) VerifyAnswersForRecovery(ctx context.Context, user User, answers []UserChallengeAnswer) (string, error) {
	if !m.config.Recovery.Enabled {
		return "", NewClientError(CodeRecoveryDisabled, "question-based recovery is disabled")
	}
	if err := validateUser(user); err != nil {
		return "", err
	}
	if len(answers) < m.config.Recovery.MinAnswers {
		return "", NewClientError(CodeInsufficientAnswers,
			"%d answers supplied, %d required for recovery",
			len(answers), m.config.Recovery.MinAnswers)
	}

	ok, err := m.VerifyChallengeAnswers(ctx, user, answers)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", NewClientError(CodeAnswerMismatch, "supplied answers do not match the stored answers")
	}

	now := time.Now()
	claims := recoveryClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Recovery.Issuer,
			Subject:   user.Username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.Recovery.AssertionTTL)),
		},
		TenantDomain: m.tenantOrDefault(user.TenantDomain),
	}

	assertion, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Recovery.SigningKey)
	if err != nil {
		return "", NewServerError(CodeRecoveryAssertion, err, "signing recovery assertion for user %s", user.Username)
	}

	m.logger.Debug("recovery assertion issued",
		zap.String("username", user.Username),
		zap.String("assertion_id", claims.ID))
	return assertion, nil
}

// ValidateRecoveryAssertion checks a recovery assertion previously issued by
// [Manager.VerifyAnswersForRecovery]: signature, expiry, issuer, and that it
// was issued for the given user.
func (m *Manager) ValidateRecoveryAssertion(assertion string, user User) error {
	if !m.config.Recovery.Enabled {
		return NewClientError(CodeRecoveryDisabled, "question-based recovery is disabled")
	}
	if err := validateUser(user); err != nil {
		return err
	}

	var claims recoveryClaims
	_, err := jwt.ParseWithClaims(assertion, &claims,
		func(*jwt.Token) (any, error) { return m.config.Recovery.SigningKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Recovery.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return NewClientError(CodeInvalidAssertion, "recovery assertion is invalid: %v", err)
	}

	if claims.Subject != user.Username || claims.TenantDomain != m.tenantOrDefault(user.TenantDomain) {
		return NewClientError(CodeInvalidAssertion, "recovery assertion was not issued for this user")
	}
	return nil
}
