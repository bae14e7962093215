// Package search turns a free-text list query into an indexed prefix match.
package search

import (
	"regexp"
	"strings"

	"github.com/dalemusser/perfhub/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson"
)

// Query is a parsed list search.
type Query struct {
	// Field is the indexed field to match and sort by.
	Field string
	// Term is the normalized prefix; empty means no search.
	Term string
}

// EmailPivotOK reports whether a search should match and sort by email
// instead of name. It requires the query to look like an email and the list
// to be constrained by status, which keeps the email index selective.
func EmailPivotOK(q, status string) bool {
	return strings.Contains(q, "@") && status != ""
}

// Parse builds a Query over nameField, pivoting to emailField when
// EmailPivotOK allows it.
func Parse(q, status, nameField, emailField string) Query {
	q = strings.TrimSpace(q)
	if q == "" {
		return Query{Field: nameField}
	}
	if EmailPivotOK(q, status) {
		return Query{Field: emailField, Term: normalize.Email(q)}
	}
	return Query{Field: nameField, Term: normalize.NameCI(q)}
}

// Filter returns the prefix condition, or nil when there is no term.
func (q Query) Filter() bson.M {
	if q.Term == "" {
		return nil
	}
	return bson.M{q.Field: bson.M{"$regex": "^" + regexp.QuoteMeta(q.Term)}}
}
