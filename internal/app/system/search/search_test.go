package search

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestEmailPivotOK(t *testing.T) {
	tests := []struct {
		name   string
		search string
		status string
		want   bool
	}{
		{"email search with status", "user@example.com", "active", true},
		{"partial email with status", "@domain", "terminated", true},
		{"name search with status", "john doe", "active", false},
		{"empty search", "", "active", false},
		{"email search without status", "user@example.com", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EmailPivotOK(tt.search, tt.status); got != tt.want {
				t.Errorf("EmailPivotOK(%q, %q) = %v, want %v", tt.search, tt.status, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	q := Parse("  Jo ", "", "full_name_ci", "email")
	if q.Field != "full_name_ci" || q.Term != "jo" {
		t.Errorf("name query = %+v", q)
	}

	q = Parse("Jo@Acme", "active", "full_name_ci", "email")
	if q.Field != "email" || q.Term != "jo@acme" {
		t.Errorf("email query = %+v", q)
	}

	q = Parse("", "", "full_name_ci", "email")
	if q.Filter() != nil {
		t.Errorf("empty query should have no filter, got %v", q.Filter())
	}
}

func TestFilter_QuotesMeta(t *testing.T) {
	f := Query{Field: "full_name_ci", Term: "a.b"}.Filter()
	want := bson.M{"full_name_ci": bson.M{"$regex": `^a\.b`}}
	if f["full_name_ci"].(bson.M)["$regex"] != want["full_name_ci"].(bson.M)["$regex"] {
		t.Errorf("Filter() = %v, want %v", f, want)
	}
}
