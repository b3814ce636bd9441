package catalog

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/authkit-dev/challengeq"
)

// newTestDB connects to the database named by CHALLENGEQ_TEST_POSTGRES_DSN
// and prepares a clean catalog table. Without the variable the relational
// suite is skipped.
func newTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("CHALLENGEQ_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CHALLENGEQ_TEST_POSTGRES_DSN not set, skipping relational catalog tests")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("pgxpool.New failed: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(context.Background(), Schema); err != nil {
		t.Fatalf("applying schema failed: %v", err)
	}
	if _, err := pool.Exec(context.Background(), `TRUNCATE challenge_questions`); err != nil {
		t.Fatalf("truncating table failed: %v", err)
	}
	return pool
}

func TestRelationalUpsert(t *testing.T) {
	store := NewRelational(newTestDB(t))
	ctx := context.Background()

	first := q("set1", "question1", "Old text", "en_US")
	if err := store.AddChallengeQuestions(ctx, []challengeq.ChallengeQuestion{first}, "carbon.super"); err != nil {
		t.Fatalf("AddChallengeQuestions failed: %v", err)
	}

	updated := q("set1", "question1", "New text", "en_US")
	if err := store.AddChallengeQuestions(ctx, []challengeq.ChallengeQuestion{updated}, "carbon.super"); err != nil {
		t.Fatalf("AddChallengeQuestions (update) failed: %v", err)
	}

	all, err := store.GetAllChallengeQuestions(ctx, "carbon.super")
	if err != nil {
		t.Fatalf("GetAllChallengeQuestions failed: %v", err)
	}
	if len(all) != 1 || all[0].Question != "New text" {
		t.Fatalf("upsert result = %v, want one row with the new text", all)
	}

	var version int
	err = store.db.QueryRow(ctx, `
SELECT version FROM challenge_questions
WHERE tenant_domain=$1 AND question_set_id=$2 AND question_id=$3 AND locale=$4
`, "carbon.super", "set1", "question1", "en_US").Scan(&version)
	if err != nil {
		t.Fatalf("reading version failed: %v", err)
	}
	if version != 2 {
		t.Errorf("version = %d, want 2 after one update", version)
	}
}

func TestRelationalLocaleAndSetQueries(t *testing.T) {
	store := NewRelational(newTestDB(t))
	ctx := context.Background()

	err := store.AddChallengeQuestions(ctx, []challengeq.ChallengeQuestion{
		q("set1", "question1", "A", "en_US"),
		q("set1", "question1", "A-fr", "fr_FR"),
		q("set2", "question1", "B", "en_US"),
	}, "carbon.super")
	if err != nil {
		t.Fatalf("AddChallengeQuestions failed: %v", err)
	}

	enOnly, err := store.GetChallengeQuestionsByLocale(ctx, "carbon.super", "en_US")
	if err != nil {
		t.Fatalf("GetChallengeQuestionsByLocale failed: %v", err)
	}
	if len(enOnly) != 2 {
		t.Fatalf("en_US questions = %v, want 2", enOnly)
	}

	ids, err := store.GetChallengeSetIDs(ctx, "carbon.super")
	if err != nil {
		t.Fatalf("GetChallengeSetIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("set ids = %v, want 2 distinct", ids)
	}

	foreign, err := store.GetAllChallengeQuestions(ctx, "acme.com")
	if err != nil {
		t.Fatalf("GetAllChallengeQuestions failed: %v", err)
	}
	if len(foreign) != 0 {
		t.Fatalf("tenant acme.com sees foreign rows: %v", foreign)
	}
}

func TestRelationalDeletes(t *testing.T) {
	store := NewRelational(newTestDB(t))
	ctx := context.Background()

	err := store.AddChallengeQuestions(ctx, []challengeq.ChallengeQuestion{
		q("set1", "question1", "A", "en_US"),
		q("set1", "question1", "A-fr", "fr_FR"),
		q("set1", "question2", "B", "en_US"),
		q("set2", "question1", "C", "en_US"),
	}, "carbon.super")
	if err != nil {
		t.Fatalf("AddChallengeQuestions failed: %v", err)
	}

	// Blank locale deletes every variant of the question.
	err = store.DeleteChallengeQuestions(ctx,
		[]challengeq.ChallengeQuestion{q("set1", "question1", "", "")}, "carbon.super")
	if err != nil {
		t.Fatalf("DeleteChallengeQuestions failed: %v", err)
	}
	all, err := store.GetAllChallengeQuestions(ctx, "carbon.super")
	if err != nil {
		t.Fatalf("GetAllChallengeQuestions failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("after question delete got %v, want 2 left", all)
	}

	// Deleting an absent question is a no-op.
	err = store.DeleteChallengeQuestions(ctx,
		[]challengeq.ChallengeQuestion{q("set9", "question9", "", "")}, "carbon.super")
	if err != nil {
		t.Fatalf("delete of absent question failed: %v", err)
	}

	if err := store.DeleteChallengeQuestionSet(ctx, "set1", "", "carbon.super"); err != nil {
		t.Fatalf("DeleteChallengeQuestionSet failed: %v", err)
	}
	ids, err := store.GetChallengeSetIDs(ctx, "carbon.super")
	if err != nil {
		t.Fatalf("GetChallengeSetIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "set2" {
		t.Fatalf("after set delete ids = %v, want only set2", ids)
	}
}

func TestRelationalExistenceChecks(t *testing.T) {
	store := NewRelational(newTestDB(t))
	ctx := context.Background()

	err := store.AddChallengeQuestions(ctx,
		[]challengeq.ChallengeQuestion{q("set1", "question1", "A", "en_US")}, "carbon.super")
	if err != nil {
		t.Fatalf("AddChallengeQuestions failed: %v", err)
	}

	exists, err := store.questionExists(ctx, "carbon.super", q("set1", "question1", "", ""))
	if err != nil || !exists {
		t.Fatalf("questionExists(any locale) = %v, %v; want true", exists, err)
	}
	exists, err = store.questionExists(ctx, "carbon.super", q("set1", "question1", "", "fr_FR"))
	if err != nil || exists {
		t.Fatalf("questionExists(fr_FR) = %v, %v; want false", exists, err)
	}
	exists, err = store.setExists(ctx, "carbon.super", "set1", "")
	if err != nil || !exists {
		t.Fatalf("setExists = %v, %v; want true", exists, err)
	}
	exists, err = store.setExists(ctx, "acme.com", "set1", "")
	if err != nil || exists {
		t.Fatalf("setExists under foreign tenant = %v, %v; want false", exists, err)
	}
}
