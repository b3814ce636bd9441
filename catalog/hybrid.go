package catalog

import (
	"context"

	"github.com/authkit-dev/challengeq"
)

// relationalBackend is what Hybrid needs from its authoritative side: the
// full store contract plus the existence checks driving delete precedence.
type relationalBackend interface {
	challengeq.CatalogStore
	questionExists(ctx context.Context, tenantDomain string, q challengeq.ChallengeQuestion) (bool, error)
	setExists(ctx context.Context, tenantDomain, questionSetID, locale string) (bool, error)
}

// Hybrid composes the relational store with a legacy registry store. Reads
// merge both backends with relational-wins precedence; all writes go to the
// relational backend only, and deletes pick their backend per element by
// checking where the row lives.
type Hybrid struct {
	relational relationalBackend
	registry   challengeq.CatalogStore
}

func NewHybrid(relational *Relational, registry *Registry) *Hybrid {
	return &Hybrid{relational: relational, registry: registry}
}

// GetAllChallengeQuestions merges both backends: the relational list comes
// first in its own order, then registry entries whose
// (set id, question id, locale) key the relational side does not already
// hold. A registry entry colliding on the key but differing in text is
// dropped; the relational copy wins.
func (h *Hybrid) GetAllChallengeQuestions(ctx context.Context, tenantDomain string) ([]challengeq.ChallengeQuestion, error) {
	relational, err := h.relational.GetAllChallengeQuestions(ctx, tenantDomain)
	if err != nil {
		return nil, err
	}
	registry, err := h.registry.GetAllChallengeQuestions(ctx, tenantDomain)
	if err != nil {
		return nil, err
	}
	return mergeQuestions(relational, registry), nil
}

func (h *Hybrid) GetChallengeQuestionsByLocale(ctx context.Context, tenantDomain, locale string) ([]challengeq.ChallengeQuestion, error) {
	relational, err := h.relational.GetChallengeQuestionsByLocale(ctx, tenantDomain, locale)
	if err != nil {
		return nil, err
	}
	registry, err := h.registry.GetChallengeQuestionsByLocale(ctx, tenantDomain, locale)
	if err != nil {
		return nil, err
	}
	return mergeQuestions(relational, registry), nil
}

// GetChallengeSetIDs unions both backends' set ids, dropping duplicates and
// blanks.
func (h *Hybrid) GetChallengeSetIDs(ctx context.Context, tenantDomain string) ([]string, error) {
	relational, err := h.relational.GetChallengeSetIDs(ctx, tenantDomain)
	if err != nil {
		return nil, err
	}
	registry, err := h.registry.GetChallengeSetIDs(ctx, tenantDomain)
	if err != nil {
		return nil, err
	}

	var ids []string
	seen := make(map[string]struct{}, len(relational)+len(registry))
	for _, id := range append(relational, registry...) {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// AddChallengeQuestions writes to the relational backend only. The registry
// side is legacy data and never gains new entries.
func (h *Hybrid) AddChallengeQuestions(ctx context.Context, questions []challengeq.ChallengeQuestion, tenantDomain string) error {
	return h.relational.AddChallengeQuestions(ctx, questions, tenantDomain)
}

// DeleteChallengeQuestions deletes element by element, routing each question
// to the relational backend when a matching row exists there and to the
// registry otherwise. The routing check and the delete are not atomic;
// concurrent deletes on the same key are tolerated because deleting an
// absent entry is a no-op on both backends. A failure partway through leaves
// earlier elements deleted and is surfaced naming the failed question.
func (h *Hybrid) DeleteChallengeQuestions(ctx context.Context, questions []challengeq.ChallengeQuestion, tenantDomain string) error {
	for i, q := range questions {
		inRelational, err := h.relational.questionExists(ctx, tenantDomain, q)
		if err != nil {
			return h.deleteError(i, err, "checking challenge question %s/%s", q.QuestionSetID, q.QuestionID)
		}

		target := h.registry
		if inRelational {
			target = h.relational
		}
		if err := target.DeleteChallengeQuestions(ctx, []challengeq.ChallengeQuestion{q}, tenantDomain); err != nil {
			return h.deleteError(i, err, "deleting challenge question %s/%s", q.QuestionSetID, q.QuestionID)
		}
	}
	return nil
}

// DeleteChallengeQuestionSet routes by the same relational-first existence
// precedence. Routing checks set existence across all locales: a set held
// relationally in any locale is deleted there, even when the requested locale
// only exists on the registry side.
func (h *Hybrid) DeleteChallengeQuestionSet(ctx context.Context, questionSetID, locale, tenantDomain string) error {
	inRelational, err := h.relational.setExists(ctx, tenantDomain, questionSetID, "")
	if err != nil {
		return err
	}
	if inRelational {
		return h.relational.DeleteChallengeQuestionSet(ctx, questionSetID, locale, tenantDomain)
	}
	return h.registry.DeleteChallengeQuestionSet(ctx, questionSetID, locale, tenantDomain)
}

// deleteError tags a mid-batch failure as a partial delete so callers know
// earlier elements are already gone.
func (h *Hybrid) deleteError(index int, cause error, format string, args ...any) error {
	if index == 0 {
		return cause
	}
	return challengeq.NewServerError(challengeq.CodePartialDeleteFailure, cause, format, args...)
}

func mergeQuestions(relational, registry []challengeq.ChallengeQuestion) []challengeq.ChallengeQuestion {
	out := make([]challengeq.ChallengeQuestion, 0, len(relational)+len(registry))
	seen := make(map[string]struct{}, len(relational))

	for _, q := range relational {
		seen[mergeKey(q)] = struct{}{}
		out = append(out, q)
	}
	for _, q := range registry {
		if _, ok := seen[mergeKey(q)]; ok {
			continue
		}
		seen[mergeKey(q)] = struct{}{}
		out = append(out, q)
	}
	return out
}

func mergeKey(q challengeq.ChallengeQuestion) string {
	return q.QuestionSetID + "|" + q.QuestionID + "|" + q.Locale
}
