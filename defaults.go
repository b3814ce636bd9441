package challengeq

import "strconv"

// Built-in question sets seeded for a fresh tenant.
const (
	DefaultQuestionSet1 = "challengeQuestion1"
	DefaultQuestionSet2 = "challengeQuestion2"
)

var defaultQuestionTexts = map[string][]string{
	DefaultQuestionSet1: {
		"City where you were born ?",
		"Father's middle name ?",
		"Favorite food ?",
		"Favorite vacation location ?",
		"Model of your first car ?",
	},
	DefaultQuestionSet2: {
		"Name of the hospital where you were born ?",
		"Name of your first pet ?",
		"Favorite sport ?",
		"Name of your best friend in childhood ?",
		"Title of your favorite book ?",
	},
}

// defaultQuestions expands the built-in texts into catalog entries under the
// given claim dialect, all at the given locale. Question ids are question1..N
// within each set.
func defaultQuestions(dialect, locale string) []ChallengeQuestion {
	questions := make([]ChallengeQuestion, 0, 10)
	for _, setDir := range []string{DefaultQuestionSet1, DefaultQuestionSet2} {
		for i, text := range defaultQuestionTexts[setDir] {
			questions = append(questions, ChallengeQuestion{
				QuestionSetID: dialect + "/" + setDir,
				QuestionID:    "question" + strconv.Itoa(i+1),
				Question:      text,
				Locale:        locale,
			})
		}
	}
	return questions
}
