package challengeq

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/authkit-dev/challengeq/claim"
)

// storedAnswer is one decoded answer claim.
type storedAnswer struct {
	setID  string
	text   string
	digest string
}

/*
====================================
ANSWER WRITES
====================================
*/

// SetChallengeAnswers stores a user's challenge answers. The batch is
// validated before any write: the user must be identified, no two answers
// may target the same question set, and every answered question must exist
// in the tenant catalog. Blank answers and answers whose digest equals the
// already stored one are skipped; changed claims plus the answered-set index
// are written in one batch, bracketed by pre and post events.
func (m *Manager) SetChallengeAnswers(ctx context.Context, user User, answers []UserChallengeAnswer) error {
	if err := validateUser(user); err != nil {
		return err
	}
	if err := m.validateNoDuplicateSets(answers); err != nil {
		return err
	}
	if err := m.validateAnswersRegistered(ctx, user, answers); err != nil {
		return err
	}
	return m.writeAnswers(ctx, user, answers)
}

// SetChallengeAnswer stores one challenge answer, leaving the user's other
// answered sets untouched. Validation matches [Manager.SetChallengeAnswers].
func (m *Manager) SetChallengeAnswer(ctx context.Context, user User, answer UserChallengeAnswer) error {
	if err := validateUser(user); err != nil {
		return err
	}
	answers := []UserChallengeAnswer{answer}
	if err := m.validateNoDuplicateSets(answers); err != nil {
		return err
	}
	if err := m.validateAnswersRegistered(ctx, user, answers); err != nil {
		return err
	}
	return m.writeAnswers(ctx, user, answers)
}

func (m *Manager) validateNoDuplicateSets(answers []UserChallengeAnswer) error {
	seen := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		if a.Question == nil || strings.TrimSpace(a.Question.QuestionSetID) == "" {
			return NewClientError(CodeMissingQuestionDetails, "challenge answer is missing its question details")
		}
		setID := a.Question.QuestionSetID
		if _, ok := seen[setID]; ok {
			return NewClientError(CodeDuplicateAnswers, "multiple answers target challenge set %s", setID)
		}
		seen[setID] = struct{}{}
	}
	return nil
}

// validateAnswersRegistered checks each answered question against the tenant
// catalog, matched by set id and trimmed question text within the answer's
// normalized locale.
func (m *Manager) validateAnswersRegistered(ctx context.Context, user User, answers []UserChallengeAnswer) error {
	tenantDomain := m.tenantOrDefault(user.TenantDomain)

	// Catalog reads are cached per locale for the duration of the batch.
	byLocale := make(map[string][]ChallengeQuestion)

	for _, a := range answers {
		locale, err := m.normalizeLocale(a.Question.Locale)
		if err != nil {
			return err
		}

		catalog, ok := byLocale[locale]
		if !ok {
			catalog, err = m.catalog.GetChallengeQuestionsByLocale(ctx, tenantDomain, locale)
			if err != nil {
				return asTaggedError(err, CodeStorageFailure, "reading %s challenge questions of tenant %s", locale, tenantDomain)
			}
			byLocale[locale] = catalog
		}

		if !questionRegistered(catalog, a.Question.QuestionSetID, a.Question.Question) {
			return NewClientError(CodeQuestionNotRegistered,
				"challenge question %q of set %s is not registered for tenant %s",
				a.Question.Question, a.Question.QuestionSetID, tenantDomain)
		}
	}
	return nil
}

func questionRegistered(catalog []ChallengeQuestion, setID, text string) bool {
	text = strings.TrimSpace(text)
	for _, q := range catalog {
		if q.QuestionSetID == setID && strings.TrimSpace(q.Question) == text {
			return true
		}
	}
	return false
}

// writeAnswers performs the validated write: fetch existing claims, fire the
// pre event, write changed claims plus the recomputed set index in one
// batch, fire the post event. An identical batch produces zero writes.
func (m *Manager) writeAnswers(ctx context.Context, user User, answers []UserChallengeAnswer) error {
	existing, err := m.existingAnswerClaims(ctx, user)
	if err != nil {
		return err
	}

	if err := m.events.HandleEvent(ctx, Event{
		Timestamp:       time.Now(),
		Name:            EventPreSetChallengeAnswers,
		User:            user,
		Answers:         answers,
		ExistingAnswers: existing,
	}); err != nil {
		return asTaggedError(err, CodeEventDeliveryFailure, "pre-set event rejected the answer write")
	}

	values := make(map[string]string, len(answers)+1)
	written := make([]UserChallengeAnswer, 0, len(answers))
	indexed := make([]UserChallengeAnswer, 0, len(answers))
	for _, a := range answers {
		setID := a.Question.QuestionSetID

		// A blank answer is never stored: verification rejects blank
		// candidates, so persisting hash("") would leave the set
		// permanently unverifiable.
		if strings.TrimSpace(a.Answer) == "" {
			m.logger.Debug("skipping blank challenge answer",
				zap.String("username", user.Username),
				zap.String("set_id", setID))
			continue
		}
		indexed = append(indexed, a)

		digest := claim.Hash(claim.Normalize(a.Answer))

		if stored, ok := existing[setID]; ok {
			if _, storedDigest, err := m.codec.Decode(stored); err == nil && storedDigest == digest {
				m.logger.Debug("challenge answer unchanged, skipping write",
					zap.String("username", user.Username),
					zap.String("set_id", setID))
				continue
			}
		}

		values[setID] = m.codec.Encode(a.Question.Question, digest)
		written = append(written, UserChallengeAnswer{
			Question: a.Question,
			Answer:   digest,
		})
	}

	oldIndex := m.codec.DecodeSetIndex(existing[m.config.Claims.AnswersClaim])
	newIndex := unionSetIDs(oldIndex, indexed)

	if len(values) > 0 || len(newIndex) != len(oldIndex) {
		values[m.config.Claims.AnswersClaim] = m.codec.EncodeSetIndex(newIndex)
		if err := m.attrs.SetAttributes(ctx, user, values); err != nil {
			return asTaggedError(err, CodeAttributeStoreFailure, "writing challenge answers for user %s", user.Username)
		}
	}

	if err := m.events.HandleEvent(ctx, Event{
		Timestamp:       time.Now(),
		Name:            EventPostSetChallengeAnswers,
		User:            user,
		Answers:         written,
		ExistingAnswers: existing,
	}); err != nil {
		return asTaggedError(err, CodeEventDeliveryFailure, "post-set event failed after the answer write")
	}
	return nil
}

// existingAnswerClaims fetches the answered-set index plus every claim it
// references, keyed by claim URI.
func (m *Manager) existingAnswerClaims(ctx context.Context, user User) (map[string]string, error) {
	indexClaim := m.config.Claims.AnswersClaim

	values, err := m.attrs.GetAttributes(ctx, user, []string{indexClaim})
	if err != nil {
		return nil, asTaggedError(err, CodeAttributeStoreFailure, "reading answered challenge sets of user %s", user.Username)
	}

	setIDs := m.codec.DecodeSetIndex(values[indexClaim])
	if len(setIDs) == 0 {
		return values, nil
	}

	claims, err := m.attrs.GetAttributes(ctx, user, setIDs)
	if err != nil {
		return nil, asTaggedError(err, CodeAttributeStoreFailure, "reading challenge answers of user %s", user.Username)
	}
	for k, v := range claims {
		values[k] = v
	}
	return values, nil
}

func unionSetIDs(existing []string, answers []UserChallengeAnswer) []string {
	out := make([]string, 0, len(existing)+len(answers))
	seen := make(map[string]struct{}, len(existing)+len(answers))
	for _, id := range existing {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, a := range answers {
		id := a.Question.QuestionSetID
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

/*
====================================
ANSWER READS
====================================
*/

// GetChallengeAnswers returns the user's stored answers. Answer values hold
// the stored digest, never plaintext. Malformed stored values are skipped.
func (m *Manager) GetChallengeAnswers(ctx context.Context, user User) ([]UserChallengeAnswer, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}

	stored, err := m.storedAnswers(ctx, user)
	if err != nil {
		return nil, err
	}

	answers := make([]UserChallengeAnswer, 0, len(stored))
	for _, s := range stored {
		answers = append(answers, UserChallengeAnswer{
			Question: &ChallengeQuestion{QuestionSetID: s.setID, Question: s.text},
			Answer:   s.digest,
		})
	}
	return answers, nil
}

// GetUserChallengeQuestion returns the question a user has answered for one
// set, or nil when the set is unanswered.
func (m *Manager) GetUserChallengeQuestion(ctx context.Context, user User, questionSetID string) (*ChallengeQuestion, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}

	stored, err := m.storedAnswers(ctx, user)
	if err != nil {
		return nil, err
	}
	for _, s := range stored {
		if s.setID == questionSetID {
			return &ChallengeQuestion{QuestionSetID: s.setID, Question: s.text}, nil
		}
	}
	return nil, nil
}

// GetAnsweredSetIDs returns the set identifiers the user has answered, in
// stored index order.
func (m *Manager) GetAnsweredSetIDs(ctx context.Context, user User) ([]string, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}

	indexClaim := m.config.Claims.AnswersClaim
	values, err := m.attrs.GetAttributes(ctx, user, []string{indexClaim})
	if err != nil {
		return nil, asTaggedError(err, CodeAttributeStoreFailure, "reading answered challenge sets of user %s", user.Username)
	}
	return m.codec.DecodeSetIndex(values[indexClaim]), nil
}

// storedAnswers reads and decodes every answer claim referenced by the
// user's answered-set index. A claim that fails to decode is skipped with a
// debug line; the rest of the listing survives.
func (m *Manager) storedAnswers(ctx context.Context, user User) ([]storedAnswer, error) {
	claims, err := m.existingAnswerClaims(ctx, user)
	if err != nil {
		return nil, err
	}

	setIDs := m.codec.DecodeSetIndex(claims[m.config.Claims.AnswersClaim])
	answers := make([]storedAnswer, 0, len(setIDs))
	for _, setID := range setIDs {
		value, ok := claims[setID]
		if !ok {
			continue
		}
		text, digest, err := m.codec.Decode(value)
		if err != nil {
			if errors.Is(err, claim.ErrMalformedValue) {
				m.logger.Debug("skipping malformed challenge answer claim",
					zap.String("username", user.Username),
					zap.String("set_id", setID))
				continue
			}
			return nil, asTaggedError(err, CodeAttributeStoreFailure, "decoding challenge answer of set %s", setID)
		}
		answers = append(answers, storedAnswer{setID: setID, text: text, digest: digest})
	}
	return answers, nil
}

/*
====================================
ANSWER REMOVAL
====================================
*/

// RemoveChallengeAnswers deletes every stored answer claim of the user plus
// the answered-set index.
func (m *Manager) RemoveChallengeAnswers(ctx context.Context, user User) error {
	if err := validateUser(user); err != nil {
		return err
	}

	indexClaim := m.config.Claims.AnswersClaim
	values, err := m.attrs.GetAttributes(ctx, user, []string{indexClaim})
	if err != nil {
		return asTaggedError(err, CodeAttributeStoreFailure, "reading answered challenge sets of user %s", user.Username)
	}

	names := append(m.codec.DecodeSetIndex(values[indexClaim]), indexClaim)
	if err := m.attrs.DeleteAttributes(ctx, user, names); err != nil {
		return asTaggedError(err, CodeAttributeStoreFailure, "removing challenge answers of user %s", user.Username)
	}
	return nil
}

// RemoveChallengeAnswer deletes one stored answer and rewrites the
// answered-set index without it. Removing an unanswered set is a no-op.
func (m *Manager) RemoveChallengeAnswer(ctx context.Context, user User, questionSetID string) error {
	if err := validateUser(user); err != nil {
		return err
	}

	indexClaim := m.config.Claims.AnswersClaim
	values, err := m.attrs.GetAttributes(ctx, user, []string{indexClaim})
	if err != nil {
		return asTaggedError(err, CodeAttributeStoreFailure, "reading answered challenge sets of user %s", user.Username)
	}

	setIDs := m.codec.DecodeSetIndex(values[indexClaim])
	remaining := make([]string, 0, len(setIDs))
	found := false
	for _, id := range setIDs {
		if id == questionSetID {
			found = true
			continue
		}
		remaining = append(remaining, id)
	}
	if !found {
		return nil
	}

	if len(remaining) == 0 {
		if err := m.attrs.DeleteAttributes(ctx, user, []string{questionSetID, indexClaim}); err != nil {
			return asTaggedError(err, CodeAttributeStoreFailure, "removing challenge answer %s of user %s", questionSetID, user.Username)
		}
		return nil
	}

	if err := m.attrs.DeleteAttributes(ctx, user, []string{questionSetID}); err != nil {
		return asTaggedError(err, CodeAttributeStoreFailure, "removing challenge answer %s of user %s", questionSetID, user.Username)
	}
	if err := m.attrs.SetAttributes(ctx, user, map[string]string{
		indexClaim: m.codec.EncodeSetIndex(remaining),
	}); err != nil {
		return asTaggedError(err, CodeAttributeStoreFailure, "rewriting answered-set index of user %s", user.Username)
	}
	return nil
}
