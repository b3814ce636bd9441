package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/authkit-dev/challengeq"
)

// DBTX is the subset of pgx a [Relational] store needs. *pgxpool.Pool and
// pgx.Tx both satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Schema creates the catalog table. Run it once at deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS challenge_questions (
  id              BIGSERIAL PRIMARY KEY,
  tenant_domain   TEXT NOT NULL,
  question_set_id TEXT NOT NULL,
  question_id     TEXT NOT NULL,
  locale          TEXT NOT NULL,
  question        BYTEA NOT NULL,
  version         INT NOT NULL DEFAULT 1,
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (tenant_domain, question_set_id, question_id, locale)
);`

// Relational is the table-backed catalog store. One row per
// (tenant, set id, question id, locale); question text is stored as bytes.
type Relational struct {
	db DBTX
}

func NewRelational(db DBTX) *Relational {
	return &Relational{db: db}
}

func (s *Relational) GetAllChallengeQuestions(ctx context.Context, tenantDomain string) ([]challengeq.ChallengeQuestion, error) {
	rows, err := s.db.Query(ctx, `
SELECT question_set_id,question_id,question,locale
FROM challenge_questions
WHERE tenant_domain=$1
ORDER BY question_set_id ASC, question_id ASC, locale ASC
`, tenantDomain)
	if err != nil {
		return nil, challengeq.NewServerError(challengeq.CodeStorageFailure, err, "querying challenge questions")
	}
	return scanQuestions(rows)
}

func (s *Relational) GetChallengeQuestionsByLocale(ctx context.Context, tenantDomain, locale string) ([]challengeq.ChallengeQuestion, error) {
	rows, err := s.db.Query(ctx, `
SELECT question_set_id,question_id,question,locale
FROM challenge_questions
WHERE tenant_domain=$1 AND locale=$2
ORDER BY question_set_id ASC, question_id ASC
`, tenantDomain, locale)
	if err != nil {
		return nil, challengeq.NewServerError(challengeq.CodeStorageFailure, err, "querying challenge questions by locale")
	}
	return scanQuestions(rows)
}

func (s *Relational) GetChallengeSetIDs(ctx context.Context, tenantDomain string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
SELECT DISTINCT question_set_id
FROM challenge_questions
WHERE tenant_domain=$1
ORDER BY question_set_id ASC
`, tenantDomain)
	if err != nil {
		return nil, challengeq.NewServerError(challengeq.CodeStorageFailure, err, "querying challenge set ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, challengeq.NewServerError(challengeq.CodeStorageFailure, err, "scanning challenge set id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, challengeq.NewServerError(challengeq.CodeStorageFailure, err, "reading challenge set ids")
	}
	return ids, nil
}

// AddChallengeQuestions upserts each question: an existing
// (set id, question id, locale) row gets its text replaced and version
// bumped, anything else is inserted at version 1.
func (s *Relational) AddChallengeQuestions(ctx context.Context, questions []challengeq.ChallengeQuestion, tenantDomain string) error {
	for _, q := range questions {
		exists, err := s.questionExists(ctx, tenantDomain, q)
		if err != nil {
			return err
		}
		if exists {
			_, err = s.db.Exec(ctx, `
UPDATE challenge_questions
SET question=$5, version=version+1, updated_at=now()
WHERE tenant_domain=$1 AND question_set_id=$2 AND question_id=$3 AND locale=$4
`, tenantDomain, q.QuestionSetID, q.QuestionID, q.Locale, []byte(q.Question))
		} else {
			_, err = s.db.Exec(ctx, `
INSERT INTO challenge_questions(tenant_domain,question_set_id,question_id,locale,question)
VALUES($1,$2,$3,$4,$5)
`, tenantDomain, q.QuestionSetID, q.QuestionID, q.Locale, []byte(q.Question))
		}
		if err != nil {
			return challengeq.NewServerError(challengeq.CodeStorageFailure, err,
				"writing challenge question %s/%s", q.QuestionSetID, q.QuestionID)
		}
	}
	return nil
}

func (s *Relational) DeleteChallengeQuestions(ctx context.Context, questions []challengeq.ChallengeQuestion, tenantDomain string) error {
	for _, q := range questions {
		var err error
		if q.Locale != "" {
			_, err = s.db.Exec(ctx, `
DELETE FROM challenge_questions
WHERE tenant_domain=$1 AND question_set_id=$2 AND question_id=$3 AND locale=$4
`, tenantDomain, q.QuestionSetID, q.QuestionID, q.Locale)
		} else {
			_, err = s.db.Exec(ctx, `
DELETE FROM challenge_questions
WHERE tenant_domain=$1 AND question_set_id=$2 AND question_id=$3
`, tenantDomain, q.QuestionSetID, q.QuestionID)
		}
		if err != nil {
			return challengeq.NewServerError(challengeq.CodeStorageFailure, err,
				"deleting challenge question %s/%s", q.QuestionSetID, q.QuestionID)
		}
	}
	return nil
}

func (s *Relational) DeleteChallengeQuestionSet(ctx context.Context, questionSetID, locale, tenantDomain string) error {
	var err error
	if locale != "" {
		_, err = s.db.Exec(ctx, `
DELETE FROM challenge_questions
WHERE tenant_domain=$1 AND question_set_id=$2 AND locale=$3
`, tenantDomain, questionSetID, locale)
	} else {
		_, err = s.db.Exec(ctx, `
DELETE FROM challenge_questions
WHERE tenant_domain=$1 AND question_set_id=$2
`, tenantDomain, questionSetID)
	}
	if err != nil {
		return challengeq.NewServerError(challengeq.CodeStorageFailure, err,
			"deleting challenge set %s", questionSetID)
	}
	return nil
}

// questionExists checks for a row matching the question's key. A blank
// locale matches any locale.
func (s *Relational) questionExists(ctx context.Context, tenantDomain string, q challengeq.ChallengeQuestion) (bool, error) {
	var exists bool
	var err error
	if q.Locale != "" {
		err = s.db.QueryRow(ctx, `
SELECT EXISTS(
  SELECT 1 FROM challenge_questions
  WHERE tenant_domain=$1 AND question_set_id=$2 AND question_id=$3 AND locale=$4
)
`, tenantDomain, q.QuestionSetID, q.QuestionID, q.Locale).Scan(&exists)
	} else {
		err = s.db.QueryRow(ctx, `
SELECT EXISTS(
  SELECT 1 FROM challenge_questions
  WHERE tenant_domain=$1 AND question_set_id=$2 AND question_id=$3
)
`, tenantDomain, q.QuestionSetID, q.QuestionID).Scan(&exists)
	}
	if err != nil {
		return false, challengeq.NewServerError(challengeq.CodeStorageFailure, err,
			"checking challenge question %s/%s", q.QuestionSetID, q.QuestionID)
	}
	return exists, nil
}

// setExists checks for any row of the set, optionally restricted to one
// locale.
func (s *Relational) setExists(ctx context.Context, tenantDomain, questionSetID, locale string) (bool, error) {
	var exists bool
	var err error
	if locale != "" {
		err = s.db.QueryRow(ctx, `
SELECT EXISTS(
  SELECT 1 FROM challenge_questions
  WHERE tenant_domain=$1 AND question_set_id=$2 AND locale=$3
)
`, tenantDomain, questionSetID, locale).Scan(&exists)
	} else {
		err = s.db.QueryRow(ctx, `
SELECT EXISTS(
  SELECT 1 FROM challenge_questions
  WHERE tenant_domain=$1 AND question_set_id=$2
)
`, tenantDomain, questionSetID).Scan(&exists)
	}
	if err != nil {
		return false, challengeq.NewServerError(challengeq.CodeStorageFailure, err,
			"checking challenge set %s", questionSetID)
	}
	return exists, nil
}

func scanQuestions(rows pgx.Rows) ([]challengeq.ChallengeQuestion, error) {
	defer rows.Close()

	var out []challengeq.ChallengeQuestion
	for rows.Next() {
		var q challengeq.ChallengeQuestion
		var text []byte
		if err := rows.Scan(&q.QuestionSetID, &q.QuestionID, &text, &q.Locale); err != nil {
			return nil, challengeq.NewServerError(challengeq.CodeStorageFailure, err, "scanning challenge question")
		}
		q.Question = string(text)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, challengeq.NewServerError(challengeq.CodeStorageFailure, err, "reading challenge questions")
	}
	return out, nil
}
