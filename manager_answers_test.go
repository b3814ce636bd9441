package challengeq

import (
	"context"
	"errors"
	"testing"

	"github.com/authkit-dev/challengeq/claim"
)

func answer(setID, text, plaintext string) UserChallengeAnswer {
	return UserChallengeAnswer{
		Question: &ChallengeQuestion{QuestionSetID: setID, Question: text},
		Answer:   plaintext,
	}
}

func answersTestManager(t *testing.T) (*Manager, *countingAttrs, *recordingSink) {
	t.Helper()

	catalog := &fakeCatalog{questions: []ChallengeQuestion{
		seedQuestion("challengeQuestion1", "question1", "What city were you born in?", "en_US"),
		seedQuestion("challengeQuestion2", "question1", "Favorite food ?", "en_US"),
	}}
	attrs := newCountingAttrs()
	sink := &recordingSink{}

	m, err := New().
		WithCatalogStore(catalog).
		WithAttributeStore(attrs).
		WithEventSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return m, attrs, sink
}

func TestSetChallengeAnswersRejectsBlankUser(t *testing.T) {
	m, _, _ := answersTestManager(t)

	err := m.SetChallengeAnswers(context.Background(), User{Username: "  "}, nil)
	var tagged *Error
	if !errors.As(err, &tagged) || tagged.Code != CodeInvalidUser {
		t.Fatalf("err = %v, want %s", err, CodeInvalidUser)
	}
}

func TestSetChallengeAnswersRejectsDuplicateSets(t *testing.T) {
	m, attrs, _ := answersTestManager(t)
	set1 := testDialect + "/challengeQuestion1"

	err := m.SetChallengeAnswers(context.Background(), User{Username: "alice"}, []UserChallengeAnswer{
		answer(set1, "What city were you born in?", "Colombo"),
		answer(set1, "What city were you born in?", "Kandy"),
	})
	var tagged *Error
	if !errors.As(err, &tagged) || tagged.Code != CodeDuplicateAnswers {
		t.Fatalf("err = %v, want %s", err, CodeDuplicateAnswers)
	}
	if attrs.setCalls != 0 {
		t.Errorf("client error must prevent writes, got %d write batches", attrs.setCalls)
	}
}

func TestSetChallengeAnswersRejectsUnregisteredQuestion(t *testing.T) {
	m, attrs, _ := answersTestManager(t)

	err := m.SetChallengeAnswers(context.Background(), User{Username: "alice"}, []UserChallengeAnswer{
		answer(testDialect+"/challengeQuestion1", "A question nobody registered", "Colombo"),
	})
	var tagged *Error
	if !errors.As(err, &tagged) || tagged.Code != CodeQuestionNotRegistered {
		t.Fatalf("err = %v, want %s", err, CodeQuestionNotRegistered)
	}
	if attrs.setCalls != 0 {
		t.Errorf("client error must prevent writes, got %d write batches", attrs.setCalls)
	}
}

func TestSetChallengeAnswersRejectsMissingQuestion(t *testing.T) {
	m, _, _ := answersTestManager(t)

	err := m.SetChallengeAnswers(context.Background(), User{Username: "alice"}, []UserChallengeAnswer{
		{Answer: "Colombo"},
	})
	var tagged *Error
	if !errors.As(err, &tagged) || tagged.Code != CodeMissingQuestionDetails {
		t.Fatalf("err = %v, want %s", err, CodeMissingQuestionDetails)
	}
}

func TestSetChallengeAnswersStoresDigestsAndIndex(t *testing.T) {
	m, _, _ := answersTestManager(t)
	ctx := context.Background()
	user := User{Username: "alice", TenantDomain: "carbon.super"}
	set1 := testDialect + "/challengeQuestion1"
	set2 := testDialect + "/challengeQuestion2"

	err := m.SetChallengeAnswers(ctx, user, []UserChallengeAnswer{
		answer(set1, "What city were you born in?", "Colombo"),
		answer(set2, "Favorite food ?", "Rice"),
	})
	if err != nil {
		t.Fatalf("SetChallengeAnswers failed: %v", err)
	}

	stored, err := m.GetChallengeAnswers(ctx, user)
	if err != nil {
		t.Fatalf("GetChallengeAnswers failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d answers, want 2: %v", len(stored), stored)
	}
	for _, s := range stored {
		if s.Answer == "Colombo" || s.Answer == "Rice" {
			t.Fatalf("plaintext answer leaked into storage: %v", s)
		}
	}

	wantDigest := claim.Hash(claim.Normalize("Colombo"))
	for _, s := range stored {
		if s.Question.QuestionSetID == set1 && s.Answer != wantDigest {
			t.Errorf("stored digest = %q, want the normalized SHA-256 form", s.Answer)
		}
	}

	ids, err := m.GetAnsweredSetIDs(ctx, user)
	if err != nil {
		t.Fatalf("GetAnsweredSetIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("answered set ids = %v, want both sets", ids)
	}
}

func TestSetChallengeAnswersSkipsBlankAnswers(t *testing.T) {
	m, attrs, _ := answersTestManager(t)
	ctx := context.Background()
	user := User{Username: "alice"}
	set1 := testDialect + "/challengeQuestion1"
	set2 := testDialect + "/challengeQuestion2"

	err := m.SetChallengeAnswers(ctx, user, []UserChallengeAnswer{
		answer(set1, "What city were you born in?", "Colombo"),
		answer(set2, "Favorite food ?", "   "),
	})
	if err != nil {
		t.Fatalf("SetChallengeAnswers failed: %v", err)
	}

	stored, err := m.GetChallengeAnswers(ctx, user)
	if err != nil {
		t.Fatalf("GetChallengeAnswers failed: %v", err)
	}
	if len(stored) != 1 || stored[0].Question.QuestionSetID != set1 {
		t.Fatalf("stored = %v, want only the non-blank answer", stored)
	}

	ids, err := m.GetAnsweredSetIDs(ctx, user)
	if err != nil {
		t.Fatalf("GetAnsweredSetIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != set1 {
		t.Fatalf("answered set ids = %v, want only %s", ids, set1)
	}

	// A batch of nothing but blank answers performs no write at all.
	writesBefore := attrs.setCalls
	err = m.SetChallengeAnswer(ctx, user, answer(set2, "Favorite food ?", ""))
	if err != nil {
		t.Fatalf("SetChallengeAnswer failed: %v", err)
	}
	if attrs.setCalls != writesBefore {
		t.Errorf("blank-only batch performed %d write batches", attrs.setCalls-writesBefore)
	}
}

func TestSetChallengeAnswersUnchangedSecondCallWritesNothing(t *testing.T) {
	m, attrs, _ := answersTestManager(t)
	ctx := context.Background()
	user := User{Username: "alice"}
	batch := []UserChallengeAnswer{
		answer(testDialect+"/challengeQuestion1", "What city were you born in?", "Colombo"),
	}

	if err := m.SetChallengeAnswers(ctx, user, batch); err != nil {
		t.Fatalf("first SetChallengeAnswers failed: %v", err)
	}
	writesAfterFirst := attrs.setCalls

	if err := m.SetChallengeAnswers(ctx, user, batch); err != nil {
		t.Fatalf("second SetChallengeAnswers failed: %v", err)
	}
	if attrs.setCalls != writesAfterFirst {
		t.Fatalf("identical second call performed %d extra write batches", attrs.setCalls-writesAfterFirst)
	}
}

func TestSetChallengeAnswerUnionsIndex(t *testing.T) {
	m, _, _ := answersTestManager(t)
	ctx := context.Background()
	user := User{Username: "alice"}
	set1 := testDialect + "/challengeQuestion1"
	set2 := testDialect + "/challengeQuestion2"

	if err := m.SetChallengeAnswer(ctx, user, answer(set1, "What city were you born in?", "Colombo")); err != nil {
		t.Fatalf("SetChallengeAnswer failed: %v", err)
	}
	if err := m.SetChallengeAnswer(ctx, user, answer(set2, "Favorite food ?", "Rice")); err != nil {
		t.Fatalf("SetChallengeAnswer failed: %v", err)
	}

	ids, err := m.GetAnsweredSetIDs(ctx, user)
	if err != nil {
		t.Fatalf("GetAnsweredSetIDs failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != set1 || ids[1] != set2 {
		t.Fatalf("answered set ids = %v, want [%s %s]", ids, set1, set2)
	}
}

func TestSetChallengeAnswersFiresEventsAroundWrite(t *testing.T) {
	m, _, sink := answersTestManager(t)
	user := User{Username: "alice"}

	err := m.SetChallengeAnswers(context.Background(), user, []UserChallengeAnswer{
		answer(testDialect+"/challengeQuestion1", "What city were you born in?", "Colombo"),
	})
	if err != nil {
		t.Fatalf("SetChallengeAnswers failed: %v", err)
	}

	if len(sink.events) != 2 {
		t.Fatalf("got %d events, want pre and post", len(sink.events))
	}
	if sink.events[0].Name != EventPreSetChallengeAnswers || sink.events[1].Name != EventPostSetChallengeAnswers {
		t.Fatalf("event order = [%s %s]", sink.events[0].Name, sink.events[1].Name)
	}
	if sink.events[0].Answers[0].Answer != "Colombo" {
		t.Error("pre event should carry the plaintext answer")
	}
	if post := sink.events[1].Answers[0].Answer; post == "Colombo" {
		t.Error("post event must not carry plaintext")
	}
}

func TestSetChallengeAnswersPreEventAbortsWrite(t *testing.T) {
	m, attrs, sink := answersTestManager(t)
	sink.preErr = NewClientError(CodeInvalidQuestionValue, "rejected by policy")

	err := m.SetChallengeAnswers(context.Background(), User{Username: "alice"}, []UserChallengeAnswer{
		answer(testDialect+"/challengeQuestion1", "What city were you born in?", "Colombo"),
	})

	// Sink classification passes through untouched.
	var tagged *Error
	if !errors.As(err, &tagged) || tagged.Kind != KindClient || tagged.Code != CodeInvalidQuestionValue {
		t.Fatalf("err = %v, want the sink's own client error", err)
	}
	if attrs.setCalls != 0 {
		t.Errorf("pre event rejection must prevent writes, got %d batches", attrs.setCalls)
	}
}

func TestGetChallengeAnswersSkipsMalformedClaims(t *testing.T) {
	m, attrs, _ := answersTestManager(t)
	ctx := context.Background()
	user := User{Username: "alice"}
	set1 := testDialect + "/challengeQuestion1"
	set2 := testDialect + "/challengeQuestion2"

	cfg := m.Config()
	if err := attrs.SetAttributes(ctx, user, map[string]string{
		cfg.Claims.AnswersClaim: set1 + ";" + set2,
		set1:                    "no separator here",
		set2:                    "Favorite food ?;" + claim.Hash(claim.Normalize("Rice")),
	}); err != nil {
		t.Fatalf("seeding claims failed: %v", err)
	}

	stored, err := m.GetChallengeAnswers(ctx, user)
	if err != nil {
		t.Fatalf("GetChallengeAnswers failed: %v", err)
	}
	if len(stored) != 1 || stored[0].Question.QuestionSetID != set2 {
		t.Fatalf("stored = %v, want only the well-formed claim", stored)
	}
}

func TestGetUserChallengeQuestion(t *testing.T) {
	m, _, _ := answersTestManager(t)
	ctx := context.Background()
	user := User{Username: "alice"}
	set1 := testDialect + "/challengeQuestion1"

	if err := m.SetChallengeAnswer(ctx, user, answer(set1, "What city were you born in?", "Colombo")); err != nil {
		t.Fatalf("SetChallengeAnswer failed: %v", err)
	}

	got, err := m.GetUserChallengeQuestion(ctx, user, set1)
	if err != nil {
		t.Fatalf("GetUserChallengeQuestion failed: %v", err)
	}
	if got == nil || got.Question != "What city were you born in?" {
		t.Fatalf("got %v, want the stored question text", got)
	}

	missing, err := m.GetUserChallengeQuestion(ctx, user, testDialect+"/challengeQuestion2")
	if err != nil {
		t.Fatalf("GetUserChallengeQuestion failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("unanswered set returned %v, want nil", missing)
	}
}

func TestRemoveChallengeAnswers(t *testing.T) {
	m, _, _ := answersTestManager(t)
	ctx := context.Background()
	user := User{Username: "alice"}

	err := m.SetChallengeAnswers(ctx, user, []UserChallengeAnswer{
		answer(testDialect+"/challengeQuestion1", "What city were you born in?", "Colombo"),
		answer(testDialect+"/challengeQuestion2", "Favorite food ?", "Rice"),
	})
	if err != nil {
		t.Fatalf("SetChallengeAnswers failed: %v", err)
	}

	if err := m.RemoveChallengeAnswers(ctx, user); err != nil {
		t.Fatalf("RemoveChallengeAnswers failed: %v", err)
	}

	stored, err := m.GetChallengeAnswers(ctx, user)
	if err != nil {
		t.Fatalf("GetChallengeAnswers failed: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("answers survived removal: %v", stored)
	}
	ids, err := m.GetAnsweredSetIDs(ctx, user)
	if err != nil {
		t.Fatalf("GetAnsweredSetIDs failed: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("index survived removal: %v", ids)
	}
}

func TestRemoveChallengeAnswerRewritesIndex(t *testing.T) {
	m, _, _ := answersTestManager(t)
	ctx := context.Background()
	user := User{Username: "alice"}
	set1 := testDialect + "/challengeQuestion1"
	set2 := testDialect + "/challengeQuestion2"

	err := m.SetChallengeAnswers(ctx, user, []UserChallengeAnswer{
		answer(set1, "What city were you born in?", "Colombo"),
		answer(set2, "Favorite food ?", "Rice"),
	})
	if err != nil {
		t.Fatalf("SetChallengeAnswers failed: %v", err)
	}

	if err := m.RemoveChallengeAnswer(ctx, user, set1); err != nil {
		t.Fatalf("RemoveChallengeAnswer failed: %v", err)
	}

	ids, err := m.GetAnsweredSetIDs(ctx, user)
	if err != nil {
		t.Fatalf("GetAnsweredSetIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != set2 {
		t.Fatalf("index = %v, want only %s", ids, set2)
	}

	// Removing an unanswered set is a no-op.
	if err := m.RemoveChallengeAnswer(ctx, user, set1); err != nil {
		t.Fatalf("removing an unanswered set failed: %v", err)
	}
}
