// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit is the page size used when ?limit is absent.
const DefaultLimit = 50

// MaxLimit caps ?limit.
const MaxLimit = 200

// Params is a keyset page request: ?limit=N&after=<cursor>.
type Params struct {
	Limit int
	After string
}

// Page is the JSON envelope for list responses.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// Parse reads limit and after from the query string.
func Parse(r *http.Request) (Params, error) {
	p := Params{Limit: DefaultLimit, After: strings.TrimSpace(query.Get(r, "after"))}
	if s := query.Get(r, "limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Params{}, apierr.Newf(apierr.InvalidParameterFormat, "limit must be a positive integer.")
		}
		if n > MaxLimit {
			n = MaxLimit
		}
		p.Limit = n
	}
	return p, nil
}

// LimitPlusOne is the fetch size for look-ahead pagination.
func (p Params) LimitPlusOne() int64 { return int64(p.Limit + 1) }

// ByName configures find for ascending (sortField, _id) keyset paging and
// returns the cursor condition to AND into the filter (nil on the first page).
func (p Params) ByName(find *options.FindOptions, sortField string) (bson.M, error) {
	find.SetSort(bson.D{{Key: sortField, Value: 1}, {Key: "_id", Value: 1}}).SetLimit(p.LimitPlusOne())
	if p.After == "" {
		return nil, nil
	}
	c, ok := wafflemongo.DecodeCursor(p.After)
	if !ok {
		return nil, apierr.Newf(apierr.InvalidParameterFormat, "after is not a valid cursor.")
	}
	return wafflemongo.KeysetWindow(sortField, "gt", c.CI, c.ID), nil
}

// NewestFirst configures find for descending _id paging. The cursor is the
// hex id of the last row of the previous page.
func (p Params) NewestFirst(find *options.FindOptions) (bson.M, error) {
	find.SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(p.LimitPlusOne())
	if p.After == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(p.After)
	if err != nil {
		return nil, apierr.Newf(apierr.InvalidParameterFormat, "after is not a valid cursor.")
	}
	return bson.M{"_id": bson.M{"$lt": id}}, nil
}

// TrimByName trims a look-ahead fetch and builds the next cursor from the
// last kept row.
func TrimByName[T any](rows []T, p Params, keyFn func(T) string, idFn func(T) primitive.ObjectID) Page[T] {
	if len(rows) <= p.Limit {
		return Page[T]{Items: nonNil(rows)}
	}
	rows = rows[:p.Limit]
	last := rows[len(rows)-1]
	return Page[T]{Items: rows, NextCursor: wafflemongo.EncodeCursor(keyFn(last), idFn(last))}
}

// TrimNewestFirst is TrimByName for NewestFirst queries.
func TrimNewestFirst[T any](rows []T, p Params, idFn func(T) primitive.ObjectID) Page[T] {
	if len(rows) <= p.Limit {
		return Page[T]{Items: nonNil(rows)}
	}
	rows = rows[:p.Limit]
	return Page[T]{Items: rows, NextCursor: idFn(rows[len(rows)-1]).Hex()}
}

// And merges non-nil conditions into filter.
func And(filter bson.M, conds ...bson.M) bson.M {
	var all []bson.M
	for _, c := range conds {
		if c != nil {
			all = append(all, c)
		}
	}
	if len(all) == 0 {
		return filter
	}
	return bson.M{"$and": append([]bson.M{filter}, all...)}
}

// nonNil makes empty pages encode as [] rather than null.
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
