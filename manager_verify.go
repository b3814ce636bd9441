package challengeq

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/authkit-dev/challengeq/claim"
)

/*
====================================
ANSWER VERIFICATION
====================================
*/

// VerifyChallengeAnswers checks a batch of candidate answers against the
// user's stored answers. It returns true only when at least one answer is
// supplied and every supplied answer matches a stored one; an empty batch, a
// blank answer, a digest mismatch or an answer matching no stored question
// all yield false. Supplied answers are matched to stored ones by set id, or
// by exact question text when the set id is absent.
func (m *Manager) VerifyChallengeAnswers(ctx context.Context, user User, answers []UserChallengeAnswer) (bool, error) {
	if err := validateUser(user); err != nil {
		return false, err
	}

	stored, err := m.storedAnswers(ctx, user)
	if err != nil {
		return false, err
	}

	verified := false
	for _, a := range answers {
		if a.Question == nil {
			return false, NewClientError(CodeMissingQuestionDetails, "challenge answer is missing its question details")
		}
		if strings.TrimSpace(a.Answer) == "" {
			return false, nil
		}

		matched := false
		for _, s := range stored {
			if !answerTargets(a, s) {
				continue
			}
			if !claim.Verify(a.Answer, s.digest) {
				m.logger.Debug("challenge answer mismatch",
					zap.String("username", user.Username),
					zap.String("set_id", s.setID))
				return false, nil
			}
			matched = true
		}
		if !matched {
			return false, nil
		}
		verified = true
	}
	return verified, nil
}

// VerifyChallengeAnswer checks one candidate answer against the stored
// answer of its question set. Every stored entry for the set is compared: a
// mismatch returns false immediately, while a match keeps scanning, so with
// duplicate index entries the last one decides.
func (m *Manager) VerifyChallengeAnswer(ctx context.Context, user User, answer UserChallengeAnswer) (bool, error) {
	if err := validateUser(user); err != nil {
		return false, err
	}
	if answer.Question == nil || strings.TrimSpace(answer.Question.QuestionSetID) == "" {
		return false, NewClientError(CodeMissingQuestionDetails, "challenge answer is missing its question details")
	}
	if strings.TrimSpace(answer.Answer) == "" {
		return false, nil
	}

	stored, err := m.storedAnswers(ctx, user)
	if err != nil {
		return false, err
	}

	verified := false
	for _, s := range stored {
		if s.setID != answer.Question.QuestionSetID {
			continue
		}
		if !claim.Verify(answer.Answer, s.digest) {
			return false, nil
		}
		verified = true
	}
	return verified, nil
}

// answerTargets reports whether a supplied answer addresses a stored one:
// by set id when the answer carries one, otherwise by exact question text.
func answerTargets(a UserChallengeAnswer, s storedAnswer) bool {
	if strings.TrimSpace(a.Question.QuestionSetID) != "" {
		return a.Question.QuestionSetID == s.setID
	}
	return strings.TrimSpace(a.Question.Question) == s.text
}
