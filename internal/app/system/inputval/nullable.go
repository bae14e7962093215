package inputval

import (
	"bytes"
	"encoding/json"

	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NullableID is a PATCH field that distinguishes "absent" from "null".
// Absent leaves the reference alone; null or "" clears it.
type NullableID struct {
	Set   bool
	Value string
}

// UnmarshalJSON records that the field was present.
func (n *NullableID) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Value = ""
		return nil
	}
	return json.Unmarshal(b, &n.Value)
}

// Resolve parses the value. It returns a nil id for a cleared reference.
func (n NullableID) Resolve(name string) (*primitive.ObjectID, error) {
	if !n.Set || n.Value == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(n.Value)
	if err != nil {
		return nil, apierr.New(apierr.InvalidRequestBody).WithDetails(map[string]string{name: "must be a valid id"})
	}
	return &id, nil
}
