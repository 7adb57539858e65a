package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"polcomp/internal/model"
	"sort"

	"gopkg.in/yaml.v3"
)

// QuestionSource supplies the question bank.
type QuestionSource interface {
	ListQuestions(ctx context.Context) ([]model.Question, error)
}

// FileQuestions reads the question bank from a JSON or YAML file.
type FileQuestions struct {
	Path string
}

// ListQuestions implements QuestionSource.
func (f FileQuestions) ListQuestions(ctx context.Context) ([]model.Question, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	return ParseQuestions(data, filepath.Ext(f.Path))
}

// ParseQuestions decodes a question bank. ext selects YAML for ".yaml" and
// ".yml" and JSON otherwise.
func ParseQuestions(data []byte, ext string) ([]model.Question, error) {
	var qs []model.Question
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &qs); err != nil {
			return nil, fmt.Errorf("decode questions: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &qs); err != nil {
			return nil, fmt.Errorf("decode questions: %w", err)
		}
	}
	if err := checkQuestions(qs); err != nil {
		return nil, err
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
	return qs, nil
}

func checkQuestions(qs []model.Question) error {
	if len(qs) == 0 {
		return fmt.Errorf("question bank is empty")
	}
	seen := make(map[int]struct{}, len(qs))
	for _, q := range qs {
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("duplicate question id %d", q.ID)
		}
		seen[q.ID] = struct{}{}
		for a := range q.Weights {
			if !model.IsAxis(a) {
				return fmt.Errorf("question %d weighs unknown axis %q", q.ID, a)
			}
		}
	}
	return nil
}
