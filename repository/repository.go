package repository

import (
	"context"
)

// FindOptions narrows FindAll results. Sort maps a field name to 1 (asc) or
// -1 (desc); Projection maps a field name to 1 to include it.
type FindOptions struct {
	Projection map[string]int
	Limit      int
	Skip       int
	Sort       map[string]int
}

// Repository is the uniform query port over one collection of the external
// document store. Filters on sensitive fields always receive already
// encrypted values; encryption happens in the services before a filter is
// built, never inside persistence.
type Repository interface {
	FindOne(ctx context.Context, filter map[string]interface{}) (map[string]interface{}, error)
	FindAll(ctx context.Context, filter map[string]interface{}, opts FindOptions) ([]map[string]interface{}, error)
	Count(ctx context.Context, filter map[string]interface{}) (int64, error)
	InsertOne(ctx context.Context, document interface{}) (string, error)
	UpdateOne(ctx context.Context, filter map[string]interface{}, newValue interface{}) error
	DeleteOne(ctx context.Context, filter map[string]interface{}) error
	Collection() string
}

// DBSelector hands out the repository bound to a collection name.
type DBSelector interface {
	ChooseDB(collection string) (Repository, error)
}
