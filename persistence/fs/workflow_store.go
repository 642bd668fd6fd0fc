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

var _ persistence.WorkflowStorage = new(fsWorkflowStorage)

// fsWorkflowStorage keeps one JSON document per (project, workflowId) under
// <dataDir>/<project>/workflows/<id>.json. Writes go through a temp file and
// rename so readers never observe a partial document.
type fsWorkflowStorage struct {
	dataDir string
	encDec  util.EncoderDecoder[model.WorkflowInstance]
}

func NewWorkflowStorage(dataDir string) *fsWorkflowStorage {
	return &fsWorkflowStorage{
		dataDir: dataDir,
		encDec:  util.NewJsonEncoderDecoder[model.WorkflowInstance](),
	}
}

func (s *fsWorkflowStorage) dir(project string) string {
	return filepath.Join(s.dataDir, project, "workflows")
}

func (s *fsWorkflowStorage) path(project string, id string) string {
	return filepath.Join(s.dir(project), id+".json")
}

func (s *fsWorkflowStorage) Create(project string, wf *model.WorkflowInstance) error {
	if err := os.MkdirAll(s.dir(project), 0755); err != nil {
		return err
	}
	if _, err := os.Stat(s.path(project, wf.ID)); err == nil {
		return model.DuplicateError{Kind: "workflow", ID: wf.ID}
	}
	return s.replace(project, wf)
}

func (s *fsWorkflowStorage) Read(project string, id string) (*model.WorkflowInstance, error) {
	data, err := os.ReadFile(s.path(project, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.NotFoundError{Kind: "workflow", ID: id}
		}
		return nil, err
	}
	return s.encDec.Decode(data)
}

func (s *fsWorkflowStorage) Write(project string, wf *model.WorkflowInstance) error {
	if err := os.MkdirAll(s.dir(project), 0755); err != nil {
		return err
	}
	return s.replace(project, wf)
}

func (s *fsWorkflowStorage) replace(project string, wf *model.WorkflowInstance) error {
	data, err := s.encDec.Encode(*wf)
	if err != nil {
		return err
	}
	path := s.path(project, wf.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *fsWorkflowStorage) List(project string, filter persistence.WorkflowFilter) ([]model.WorkflowSummary, error) {
	entries, err := os.ReadDir(s.dir(project))
	if err != nil {
		if os.IsNotExist(err) {
			return []model.WorkflowSummary{}, nil
		}
		return nil, err
	}
	summaries := make([]model.WorkflowSummary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		wf, err := s.Read(project, id)
		if err != nil {
			return nil, err
		}
		if !persistence.MatchesFilter(wf, filter) {
			continue
		}
		summaries = append(summaries, persistence.Summarize(wf))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

func (s *fsWorkflowStorage) Delete(project string, id string) error {
	err := os.Remove(s.path(project, id))
	if os.IsNotExist(err) {
		return model.NotFoundError{Kind: "workflow", ID: id}
	}
	return err
}
