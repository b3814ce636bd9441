package catalog

import (
	"context"
	"strings"

	"github.com/authkit-dev/challengeq"
)

// DefaultBasePath roots the registry store's tree when no base path is
// configured.
const DefaultBasePath = "identity/questionCollection"

// Resource property names carried by question leaves.
const (
	propSetID      = "questionSetId"
	propQuestionID = "questionId"
	propLocale     = "locale"
)

// localeSep separates a question id from its locale qualifier in a leaf
// name: question1@en_US.
const localeSep = "@"

// legacyLocale is assumed for leaves stored without a locale property, which
// predate per-locale question variants.
const legacyLocale = "en_US"

// Registry is the hierarchical catalog store. The tree is laid out as
// basePath/tenant/setDir/questionId@locale, one leaf per locale variant,
// with the question text as leaf content and the identifying key as leaf
// properties.
type Registry struct {
	client   ResourceClient
	basePath string
	dialect  string
}

func NewRegistry(client ResourceClient, basePath, dialect string) *Registry {
	if basePath == "" {
		basePath = DefaultBasePath
	}
	return &Registry{client: client, basePath: strings.TrimSuffix(basePath, "/"), dialect: dialect}
}

func (s *Registry) GetAllChallengeQuestions(ctx context.Context, tenantDomain string) ([]challengeq.ChallengeQuestion, error) {
	return s.collect(ctx, tenantDomain, "")
}

func (s *Registry) GetChallengeQuestionsByLocale(ctx context.Context, tenantDomain, locale string) ([]challengeq.ChallengeQuestion, error) {
	return s.collect(ctx, tenantDomain, locale)
}

func (s *Registry) GetChallengeSetIDs(ctx context.Context, tenantDomain string) ([]string, error) {
	questions, err := s.collect(ctx, tenantDomain, "")
	if err != nil {
		return nil, err
	}
	var ids []string
	seen := make(map[string]struct{})
	for _, q := range questions {
		if q.QuestionSetID == "" {
			continue
		}
		if _, ok := seen[q.QuestionSetID]; !ok {
			seen[q.QuestionSetID] = struct{}{}
			ids = append(ids, q.QuestionSetID)
		}
	}
	return ids, nil
}

func (s *Registry) AddChallengeQuestions(ctx context.Context, questions []challengeq.ChallengeQuestion, tenantDomain string) error {
	for _, q := range questions {
		path := s.questionPath(tenantDomain, q.QuestionSetID, q.QuestionID, q.Locale)
		res := &Resource{
			Content: []byte(q.Question),
			Properties: map[string]string{
				propSetID:      q.QuestionSetID,
				propQuestionID: q.QuestionID,
				propLocale:     q.Locale,
			},
		}
		if err := s.client.Put(ctx, path, res); err != nil {
			return challengeq.NewServerError(challengeq.CodeStorageFailure, err,
				"writing challenge question resource %s", path)
		}
	}
	return nil
}

func (s *Registry) DeleteChallengeQuestions(ctx context.Context, questions []challengeq.ChallengeQuestion, tenantDomain string) error {
	for _, q := range questions {
		if q.Locale != "" {
			path := s.questionPath(tenantDomain, q.QuestionSetID, q.QuestionID, q.Locale)
			if err := s.client.Delete(ctx, path); err != nil {
				return challengeq.NewServerError(challengeq.CodeStorageFailure, err,
					"deleting challenge question resource %s", path)
			}
			continue
		}

		// No locale: remove every locale variant of the question.
		setPath := s.setPath(tenantDomain, q.QuestionSetID)
		leaves, err := s.client.Children(ctx, setPath)
		if err != nil {
			return challengeq.NewServerError(challengeq.CodeStorageFailure, err,
				"listing challenge set resources %s", setPath)
		}
		for _, leaf := range leaves {
			if leafQuestionID(leaf) != q.QuestionID {
				continue
			}
			if err := s.client.Delete(ctx, leaf); err != nil {
				return challengeq.NewServerError(challengeq.CodeStorageFailure, err,
					"deleting challenge question resource %s", leaf)
			}
		}
	}
	return nil
}

func (s *Registry) DeleteChallengeQuestionSet(ctx context.Context, questionSetID, locale, tenantDomain string) error {
	setPath := s.setPath(tenantDomain, questionSetID)

	if locale == "" {
		if err := s.client.Delete(ctx, setPath); err != nil {
			return challengeq.NewServerError(challengeq.CodeStorageFailure, err,
				"deleting challenge set resources %s", setPath)
		}
		return nil
	}

	leaves, err := s.client.Children(ctx, setPath)
	if err != nil {
		return challengeq.NewServerError(challengeq.CodeStorageFailure, err,
			"listing challenge set resources %s", setPath)
	}
	for _, leaf := range leaves {
		if leafLocale(leaf) != locale {
			continue
		}
		if err := s.client.Delete(ctx, leaf); err != nil {
			return challengeq.NewServerError(challengeq.CodeStorageFailure, err,
				"deleting challenge question resource %s", leaf)
		}
	}
	return nil
}

// collect walks the tenant's subtree and decodes every question leaf,
// optionally filtered by locale.
func (s *Registry) collect(ctx context.Context, tenantDomain, locale string) ([]challengeq.ChallengeQuestion, error) {
	tenantPath := s.tenantPath(tenantDomain)

	setDirs, err := s.client.Children(ctx, tenantPath)
	if err != nil {
		return nil, challengeq.NewServerError(challengeq.CodeStorageFailure, err,
			"listing challenge set resources under %s", tenantPath)
	}

	var out []challengeq.ChallengeQuestion
	for _, setDir := range setDirs {
		leaves, err := s.client.Children(ctx, setDir)
		if err != nil {
			return nil, challengeq.NewServerError(challengeq.CodeStorageFailure, err,
				"listing challenge question resources under %s", setDir)
		}
		for _, leaf := range leaves {
			res, ok, err := s.client.Get(ctx, leaf)
			if err != nil {
				return nil, challengeq.NewServerError(challengeq.CodeStorageFailure, err,
					"reading challenge question resource %s", leaf)
			}
			if !ok {
				continue
			}
			q := decodeQuestion(res)
			if locale != "" && q.Locale != locale {
				continue
			}
			out = append(out, q)
		}
	}
	return out, nil
}

func decodeQuestion(res *Resource) challengeq.ChallengeQuestion {
	locale := res.Properties[propLocale]
	if locale == "" {
		locale = legacyLocale
	}
	return challengeq.ChallengeQuestion{
		QuestionSetID: res.Properties[propSetID],
		QuestionID:    res.Properties[propQuestionID],
		Question:      string(res.Content),
		Locale:        locale,
	}
}

func (s *Registry) tenantPath(tenantDomain string) string {
	return s.basePath + "/" + tenantDomain
}

func (s *Registry) setPath(tenantDomain, questionSetID string) string {
	return s.tenantPath(tenantDomain) + "/" + challengeq.SetDirFromURI(questionSetID, s.dialect)
}

func (s *Registry) questionPath(tenantDomain, questionSetID, questionID, locale string) string {
	return s.setPath(tenantDomain, questionSetID) + "/" + questionID + localeSep + locale
}

func leafName(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

func leafQuestionID(path string) string {
	name := leafName(path)
	if i := strings.Index(name, localeSep); i >= 0 {
		return name[:i]
	}
	return name
}

func leafLocale(path string) string {
	name := leafName(path)
	if i := strings.Index(name, localeSep); i >= 0 {
		return name[i+1:]
	}
	return ""
}
