// Package reload keeps a running instance's token routing in step with the
// saved alert manager setting.
package reload

import (
	"crypto/subtle"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/cpanato/mattermost-plugin-alertmanager/internal/settings"
)

// Route is where alerts posted with a token end up.
type Route struct {
	EntryID settings.EntryID
	Team    string
	Channel string
	URL     string
	token   string
}

// Table is an immutable snapshot of the routes of one saved revision.
type Table struct {
	RevisionID int64
	routes     []Route
}

// Build decodes a saved value into a routing table. Incomplete entries are
// skipped and reported in the returned error; the table holds the rest. A
// token shared by two entries routes to the lower id.
func Build(revisionID int64, value []byte) (*Table, error) {
	c, err := settings.Decode(value)
	if err != nil {
		return nil, err
	}

	var (
		result error
		seen   = make(map[string]settings.EntryID, c.Len())
		t      = &Table{RevisionID: revisionID}
	)
	for _, item := range c.Items() {
		if err := item.Entry.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("entry %d: %w", item.ID, err))
			continue
		}
		if first, dup := seen[item.Entry.Token]; dup {
			result = multierror.Append(result, fmt.Errorf("entry %d: token already used by entry %d", item.ID, first))
			continue
		}
		seen[item.Entry.Token] = item.ID
		t.routes = append(t.routes, Route{
			EntryID: item.ID,
			Team:    item.Entry.Team,
			Channel: item.Entry.Channel,
			URL:     item.Entry.URL,
			token:   item.Entry.Token,
		})
	}
	return t, result
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.routes)
}

// Lookup finds the route for a webhook token, comparing in constant time.
func (t *Table) Lookup(token string) (Route, bool) {
	if t == nil || token == "" {
		return Route{}, false
	}
	for _, r := range t.routes {
		if subtle.ConstantTimeCompare([]byte(token), []byte(r.token)) == 1 {
			return r, true
		}
	}
	return Route{}, false
}

// Channels lists the distinct team/channel pairs alerts can reach.
func (t *Table) Channels() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]bool, len(t.routes))
	var out []string
	for _, r := range t.routes {
		key := r.Team + "/" + r.Channel
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}
