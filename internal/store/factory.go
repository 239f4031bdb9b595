package store

import (
	"github.com/cpanato/mattermost-plugin-alertmanager/core/db"
)

// Stores hands out stores bound to one querier, either the pool or a
// transaction opened by db.WithTx.
type Stores struct {
	q db.Querier
}

func NewStores(q db.Querier) *Stores {
	return &Stores{q: q}
}

func (s *Stores) Settings() SettingStore {
	return newSettingStore(s.q)
}

func (s *Stores) Revisions() RevisionStore {
	return newRevisionStore(s.q)
}
