package redis

import (
	"context"
	"sort"

	rd "github.com/redis/go-redis/v9"

	"github.com/kriyahq/kriya/model"
	"github.com/kriyahq/kriya/persistence"
	"github.com/kriyahq/kriya/util"
)

var _ persistence.WorkflowStorage = new(redisWorkflowStorage)

const WORKFLOW_DOC string = "WF"
const WORKFLOW_INDEX string = "WF_IDX"

type redisWorkflowStorage struct {
	baseDao
	encoderDecoder util.EncoderDecoder[model.WorkflowInstance]
}

func NewWorkflowStorage(conf Config) *redisWorkflowStorage {
	return &redisWorkflowStorage{
		baseDao:        *newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[model.WorkflowInstance](),
	}
}

func (rws *redisWorkflowStorage) docKey(project string, id string) string {
	return rws.getNamespaceKey(WORKFLOW_DOC, project, id)
}

func (rws *redisWorkflowStorage) indexKey(project string) string {
	return rws.getNamespaceKey(WORKFLOW_INDEX, project)
}

func (rws *redisWorkflowStorage) Create(project string, wf *model.WorkflowInstance) error {
	ctx := context.Background()
	data, err := rws.encoderDecoder.Encode(*wf)
	if err != nil {
		return err
	}
	set, err := rws.redisClient.SetNX(ctx, rws.docKey(project, wf.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !set {
		return model.DuplicateError{Kind: "workflow", ID: wf.ID}
	}
	return rws.redisClient.SAdd(ctx, rws.indexKey(project), wf.ID).Err()
}

func (rws *redisWorkflowStorage) Read(project string, id string) (*model.WorkflowInstance, error) {
	ctx := context.Background()
	val, err := rws.redisClient.Get(ctx, rws.docKey(project, id)).Result()
	if err != nil {
		if err == rd.Nil {
			return nil, model.NotFoundError{Kind: "workflow", ID: id}
		}
		return nil, err
	}
	return rws.encoderDecoder.Decode([]byte(val))
}

func (rws *redisWorkflowStorage) Write(project string, wf *model.WorkflowInstance) error {
	ctx := context.Background()
	data, err := rws.encoderDecoder.Encode(*wf)
	if err != nil {
		return err
	}
	if err := rws.redisClient.Set(ctx, rws.docKey(project, wf.ID), data, 0).Err(); err != nil {
		return err
	}
	return rws.redisClient.SAdd(ctx, rws.indexKey(project), wf.ID).Err()
}

func (rws *redisWorkflowStorage) List(project string, filter persistence.WorkflowFilter) ([]model.WorkflowSummary, error) {
	ctx := context.Background()
	ids, err := rws.redisClient.SMembers(ctx, rws.indexKey(project)).Result()
	if err != nil {
		return nil, err
	}
	summaries := make([]model.WorkflowSummary, 0, len(ids))
	for _, id := range ids {
		wf, err := rws.Read(project, id)
		if err != nil {
			if _, ok := err.(model.NotFoundError); ok {
				continue
			}
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

func (rws *redisWorkflowStorage) Delete(project string, id string) error {
	ctx := context.Background()
	removed, err := rws.redisClient.Del(ctx, rws.docKey(project, id)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return model.NotFoundError{Kind: "workflow", ID: id}
	}
	return rws.redisClient.SRem(ctx, rws.indexKey(project), id).Err()
}
