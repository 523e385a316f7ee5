package repository

import "github.com/passlock/go-passlock-server/types"

const (
	// collection names
	Users          = "users"
	Accounts       = "accounts"
	UserActivities = "user_activities"
)

type Selector struct {
	dbs []Repository
}

func NewSelector() *Selector {
	return &Selector{}
}

// AddDB adds a repository to the selector
func (s *Selector) AddDB(db Repository) {
	s.dbs = append(s.dbs, db)
}

// ChooseDB returns the repository bound to the given collection
func (s *Selector) ChooseDB(collection string) (Repository, error) {
	for i, r := range s.dbs {
		if r.Collection() == collection {
			return s.dbs[i], nil
		}
	}
	return nil, types.ErrNotFound
}
