package redis

import (
	"context"
	"sort"

	rd "github.com/redis/go-redis/v9"

	"github.com/kriyahq/kriya/model"
	"github.com/kriyahq/kriya/persistence"
	"github.com/kriyahq/kriya/util"
)

var _ persistence.TriggerStorage = new(redisTriggerStorage)

const TRIGGER_DOC string = "TRG"
const TRIGGER_INDEX string = "TRG_IDX"

type redisTriggerStorage struct {
	baseDao
	encoderDecoder util.EncoderDecoder[model.TriggerRule]
}

func NewTriggerStorage(conf Config) *redisTriggerStorage {
	return &redisTriggerStorage{
		baseDao:        *newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[model.TriggerRule](),
	}
}

func (rts *redisTriggerStorage) docKey(project string, ruleId string) string {
	return rts.getNamespaceKey(TRIGGER_DOC, project, ruleId)
}

func (rts *redisTriggerStorage) indexKey(project string) string {
	return rts.getNamespaceKey(TRIGGER_INDEX, project)
}

func (rts *redisTriggerStorage) Save(project string, rule *model.TriggerRule) error {
	ctx := context.Background()
	data, err := rts.encoderDecoder.Encode(*rule)
	if err != nil {
		return err
	}
	if err := rts.redisClient.Set(ctx, rts.docKey(project, rule.ID), data, 0).Err(); err != nil {
		return err
	}
	return rts.redisClient.SAdd(ctx, rts.indexKey(project), rule.ID).Err()
}

func (rts *redisTriggerStorage) Get(project string, ruleId string) (*model.TriggerRule, error) {
	ctx := context.Background()
	val, err := rts.redisClient.Get(ctx, rts.docKey(project, ruleId)).Result()
	if err != nil {
		if err == rd.Nil {
			return nil, model.NotFoundError{Kind: "trigger rule", ID: ruleId}
		}
		return nil, err
	}
	return rts.encoderDecoder.Decode([]byte(val))
}

func (rts *redisTriggerStorage) Delete(project string, ruleId string) error {
	ctx := context.Background()
	removed, err := rts.redisClient.Del(ctx, rts.docKey(project, ruleId)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return model.NotFoundError{Kind: "trigger rule", ID: ruleId}
	}
	return rts.redisClient.SRem(ctx, rts.indexKey(project), ruleId).Err()
}

func (rts *redisTriggerStorage) List(project string) ([]model.TriggerRule, error) {
	ctx := context.Background()
	ids, err := rts.redisClient.SMembers(ctx, rts.indexKey(project)).Result()
	if err != nil {
		return nil, err
	}
	rules := make([]model.TriggerRule, 0, len(ids))
	for _, id := range ids {
		rule, err := rts.Get(project, id)
		if err != nil {
			if _, ok := err.(model.NotFoundError); ok {
				continue
			}
			return nil, err
		}
		rules = append(rules, *rule)
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
	return rules, nil
}
