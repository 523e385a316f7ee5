package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jarcoal/httpmock"
	"github.com/passlock/go-passlock-server/global"
	"github.com/passlock/go-passlock-server/types"
)

// DataAPIRepository implements Repository against the MongoDB Atlas Data API
// (HTTPS action endpoints, one POST per operation).
type DataAPIRepository struct {
	client     *resty.Client
	dataSource string
	database   string
	collection string
}

type findOneResponse struct {
	Document map[string]interface{} `json:"document"`
}

type findResponse struct {
	Documents []map[string]interface{} `json:"documents"`
}

type insertOneResponse struct {
	InsertedID string `json:"insertedId"`
}

type updateOneResponse struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

type deleteOneResponse struct {
	DeletedCount int64 `json:"deletedCount"`
}

// NewDataAPIRepository creates a repository for one collection. With mock set
// the underlying http client is handed to httpmock for tests.
func NewDataAPIRepository(conf global.DataAPIConfig, collection string, mock bool) Repository {
	cl := resty.New().
		SetBaseURL(conf.BaseURL).
		SetTimeout(time.Second * 10).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("api-key", conf.Key)

	if mock {
		httpmock.ActivateNonDefault(cl.GetClient())
	}

	return &DataAPIRepository{
		client:     cl,
		dataSource: conf.DataSource,
		database:   conf.Database,
		collection: collection,
	}
}

func (r *DataAPIRepository) Collection() string {
	return r.collection
}

// body assembles the common request payload for an action
func (r *DataAPIRepository) body(extra map[string]interface{}) map[string]interface{} {
	payload := map[string]interface{}{
		"dataSource": r.dataSource,
		"database":   r.database,
		"collection": r.collection,
	}
	for k, v := range extra {
		payload[k] = v
	}
	return payload
}

func (r *DataAPIRepository) FindOne(ctx context.Context, filter map[string]interface{}) (map[string]interface{}, error) {
	var result findOneResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(r.body(map[string]interface{}{"filter": filter})).
		SetResult(&result).
		Post("action/findOne")
	if err := handleError(resp, err); err != nil {
		return nil, err
	}
	if result.Document == nil {
		return nil, types.ErrNotFound
	}
	return result.Document, nil
}

func (r *DataAPIRepository) FindAll(ctx context.Context, filter map[string]interface{}, opts FindOptions) ([]map[string]interface{}, error) {
	extra := map[string]interface{}{"filter": filter}
	if opts.Projection != nil {
		extra["projection"] = opts.Projection
	}
	if opts.Limit > 0 {
		extra["limit"] = opts.Limit
	}
	if opts.Skip > 0 {
		extra["skip"] = opts.Skip
	}
	if opts.Sort != nil {
		extra["sort"] = opts.Sort
	}
	var result findResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(r.body(extra)).
		SetResult(&result).
		Post("action/find")
	if err := handleError(resp, err); err != nil {
		return nil, err
	}
	return result.Documents, nil
}

// Count is expressed as an aggregation since the Data API has no count action.
func (r *DataAPIRepository) Count(ctx context.Context, filter map[string]interface{}) (int64, error) {
	pipeline := []map[string]interface{}{
		{"$match": filter},
		{"$count": "total"},
	}
	var result findResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(r.body(map[string]interface{}{"pipeline": pipeline})).
		SetResult(&result).
		Post("action/aggregate")
	if err := handleError(resp, err); err != nil {
		return 0, err
	}
	if len(result.Documents) == 0 {
		return 0, nil
	}
	total, ok := result.Documents[0]["total"].(float64)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected count shape", types.ErrUpstream)
	}
	return int64(total), nil
}

func (r *DataAPIRepository) InsertOne(ctx context.Context, document interface{}) (string, error) {
	var result insertOneResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(r.body(map[string]interface{}{"document": document})).
		SetResult(&result).
		Post("action/insertOne")
	if err := handleError(resp, err); err != nil {
		return "", err
	}
	return result.InsertedID, nil
}

func (r *DataAPIRepository) UpdateOne(ctx context.Context, filter map[string]interface{}, newValue interface{}) error {
	var result updateOneResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(r.body(map[string]interface{}{
			"filter": filter,
			"update": map[string]interface{}{"$set": newValue},
		})).
		SetResult(&result).
		Post("action/updateOne")
	if err := handleError(resp, err); err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *DataAPIRepository) DeleteOne(ctx context.Context, filter map[string]interface{}) error {
	var result deleteOneResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(r.body(map[string]interface{}{"filter": filter})).
		SetResult(&result).
		Post("action/deleteOne")
	if err := handleError(resp, err); err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return types.ErrNotFound
	}
	return nil
}
