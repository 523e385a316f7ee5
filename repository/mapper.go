package repository

import (
	"encoding/json"
	"errors"
	"reflect"
)

// MapToObject converts a raw document returned by the query port into a typed
// struct through a json round trip.
func MapToObject(doc map[string]interface{}, obj interface{}) error {
	val := reflect.ValueOf(obj)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return errors.New("obj is not a pointer to a struct")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, obj)
}

// MapFromObject converts a typed struct into the raw document shape the query
// port expects.
func MapFromObject(obj interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
