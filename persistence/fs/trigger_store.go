package fs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kriyahq/kriya/model"
	"github.com/kriyahq/kriya/persistence"
	"github.com/kriyahq/kriya/util"
)

var _ persistence.TriggerStorage = new(fsTriggerStorage)

type fsTriggerStorage struct {
	dataDir string
	encDec  util.EncoderDecoder[model.TriggerRule]
}

func NewTriggerStorage(dataDir string) *fsTriggerStorage {
	return &fsTriggerStorage{
		dataDir: dataDir,
		encDec:  util.NewJsonEncoderDecoder[model.TriggerRule](),
	}
}

func (s *fsTriggerStorage) dir(project string) string {
	return filepath.Join(s.dataDir, project, "triggers")
}

func (s *fsTriggerStorage) path(project string, ruleId string) string {
	return filepath.Join(s.dir(project), ruleId+".json")
}

func (s *fsTriggerStorage) Save(project string, rule *model.TriggerRule) error {
	if err := os.MkdirAll(s.dir(project), 0755); err != nil {
		return err
	}
	data, err := s.encDec.Encode(*rule)
	if err != nil {
		return err
	}
	path := s.path(project, rule.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *fsTriggerStorage) Get(project string, ruleId string) (*model.TriggerRule, error) {
	data, err := os.ReadFile(s.path(project, ruleId))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.NotFoundError{Kind: "trigger rule", ID: ruleId}
		}
		return nil, err
	}
	return s.encDec.Decode(data)
}

func (s *fsTriggerStorage) Delete(project string, ruleId string) error {
	err := os.Remove(s.path(project, ruleId))
	if os.IsNotExist(err) {
		return model.NotFoundError{Kind: "trigger rule", ID: ruleId}
	}
	return err
}

func (s *fsTriggerStorage) List(project string) ([]model.TriggerRule, error) {
	entries, err := os.ReadDir(s.dir(project))
	if err != nil {
		if os.IsNotExist(err) {
			return []model.TriggerRule{}, nil
		}
		return nil, err
	}
	rules := make([]model.TriggerRule, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		rule, err := s.Get(project, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
	return rules, nil
}
