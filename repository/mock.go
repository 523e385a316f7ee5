package repository

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/passlock/go-passlock-server/types"
)

// MockRepository is the in-memory repository used by tests and by local runs
// without a database. Filters are matched by field equality, like the Data
// API does for the flat filters this server builds.
type MockRepository struct {
	mu         sync.RWMutex
	collection string
	docs       []map[string]interface{}
	seq        int
}

func NewMockRepository(collection string) *MockRepository {
	return &MockRepository{collection: collection}
}

func (m *MockRepository) Collection() string {
	return m.collection
}

func matches(doc map[string]interface{}, filter map[string]interface{}) bool {
	for key, want := range filter {
		got, ok := doc[key]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func copyDoc(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func (m *MockRepository) FindOne(ctx context.Context, filter map[string]interface{}) (map[string]interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, doc := range m.docs {
		if matches(doc, filter) {
			return copyDoc(doc), nil
		}
	}
	return nil, types.ErrNotFound
}

func (m *MockRepository) FindAll(ctx context.Context, filter map[string]interface{}, opts FindOptions) ([]map[string]interface{}, error) {
	m.mu.RLock()
	found := []map[string]interface{}{}
	for _, doc := range m.docs {
		if matches(doc, filter) {
			found = append(found, copyDoc(doc))
		}
	}
	m.mu.RUnlock()

	for key, direction := range opts.Sort {
		k, desc := key, direction < 0
		sort.SliceStable(found, func(i, j int) bool {
			a := fmt.Sprint(found[i][k])
			b := fmt.Sprint(found[j][k])
			if desc {
				return a > b
			}
			return a < b
		})
	}
	if opts.Skip > 0 {
		if opts.Skip >= len(found) {
			return []map[string]interface{}{}, nil
		}
		found = found[opts.Skip:]
	}
	if opts.Limit > 0 && opts.Limit < len(found) {
		found = found[:opts.Limit]
	}
	return found, nil
}

func (m *MockRepository) Count(ctx context.Context, filter map[string]interface{}) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, doc := range m.docs {
		if matches(doc, filter) {
			count++
		}
	}
	return count, nil
}

func (m *MockRepository) InsertOne(ctx context.Context, document interface{}) (string, error) {
	doc, err := MapFromObject(document)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("%s-%d", m.collection, m.seq)
	doc["_id"] = id
	m.docs = append(m.docs, doc)
	return id, nil
}

func (m *MockRepository) UpdateOne(ctx context.Context, filter map[string]interface{}, newValue interface{}) error {
	update, err := MapFromObject(newValue)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.docs {
		if matches(doc, filter) {
			for k, v := range update {
				if k == "_id" {
					continue
				}
				doc[k] = v
			}
			return nil
		}
	}
	return types.ErrNotFound
}

func (m *MockRepository) DeleteOne(ctx context.Context, filter map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, doc := range m.docs {
		if matches(doc, filter) {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			return nil
		}
	}
	return types.ErrNotFound
}
