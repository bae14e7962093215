package inputval_test

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/app/system/inputval"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createReq struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName" validate:"required,max=200"`
	Role     string `json:"role" validate:"omitempty,oneof=employee manager tenant_admin"`
	Rating   int    `json:"rating" validate:"gte=0,lte=5"`
}

func decode(t *testing.T, body string) error {
	t.Helper()
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	var dst createReq
	return inputval.Decode(req, &dst)
}

func codeOf(t *testing.T, err error) apierr.Code {
	t.Helper()
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *apierr.Error, got %T: %v", err, err)
	}
	return ae.Code
}

func TestDecode_Valid(t *testing.T) {
	if err := decode(t, `{"email":"a@b.co","fullName":"Ada","role":"manager","rating":4}`); err != nil {
		t.Fatalf("expected valid body, got %v", err)
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := map[string]string{
		"empty":         ``,
		"not json":      `{email:`,
		"unknown field": `{"email":"a@b.co","fullName":"Ada","tenantId":"x"}`,
		"trailing data": `{"email":"a@b.co","fullName":"Ada"}{}`,
		"wrong type":    `{"email":"a@b.co","fullName":"Ada","rating":"five"}`,
		"missing name":  `{"email":"a@b.co"}`,
		"bad role":      `{"email":"a@b.co","fullName":"Ada","role":"platform_admin"}`,
		"rating range":  `{"email":"a@b.co","fullName":"Ada","rating":9}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			err := decode(t, body)
			if err == nil {
				t.Fatal("expected error")
			}
			if c := codeOf(t, err); c != apierr.InvalidRequestBody {
				t.Errorf("code = %s, want INVALID_REQUEST_BODY", c)
			}
		})
	}
}

func TestDecode_DetailsUseJSONNames(t *testing.T) {
	err := decode(t, `{"email":"nope"}`)
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *apierr.Error, got %v", err)
	}
	d, ok := ae.Details.(map[string]string)
	if !ok {
		t.Fatalf("expected map details, got %T", ae.Details)
	}
	if _, ok := d["email"]; !ok {
		t.Errorf("expected email in details, got %v", d)
	}
	if _, ok := d["fullName"]; !ok {
		t.Errorf("expected fullName in details, got %v", d)
	}
}

func TestObjectID(t *testing.T) {
	if _, err := inputval.ObjectID("id", "64b7f0c2a1b2c3d4e5f60718"); err != nil {
		t.Errorf("expected valid id, got %v", err)
	}
	_, err := inputval.ObjectID("id", "42")
	if c := codeOf(t, err); c != apierr.InvalidParameterFormat {
		t.Errorf("code = %s, want INVALID_PARAMETER_FORMAT", c)
	}
}

func TestOptionalObjectID(t *testing.T) {
	empty := ""
	id, err := inputval.OptionalObjectID("managerId", &empty)
	if err != nil || id != nil {
		t.Errorf("empty string should be nil id, got %v, %v", id, err)
	}
	bad := "xyz"
	if _, err := inputval.OptionalObjectID("managerId", &bad); err == nil {
		t.Error("expected error for malformed id")
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"user+tag@example.co.uk", true},
		{"", false},
		{"user", false},
		{"@example.com", false},
		{"User Name <user@example.com>", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := inputval.IsValidEmail(tt.email); got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestNullableID(t *testing.T) {
	var body struct {
		Manager    inputval.NullableID `json:"managerId"`
		Department inputval.NullableID `json:"departmentId"`
		Parent     inputval.NullableID `json:"parentId"`
	}
	id := primitive.NewObjectID()
	raw := `{"managerId": "` + id.Hex() + `", "departmentId": null}`
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	got, err := body.Manager.Resolve("managerId")
	if err != nil || !body.Manager.Set || got == nil || *got != id {
		t.Errorf("manager = %v, %v (set %v)", got, err, body.Manager.Set)
	}
	got, err = body.Department.Resolve("departmentId")
	if err != nil || !body.Department.Set || got != nil {
		t.Errorf("department = %v, %v (set %v)", got, err, body.Department.Set)
	}
	if body.Parent.Set {
		t.Error("absent field must not be Set")
	}

	bad := inputval.NullableID{Set: true, Value: "nope"}
	if _, err := bad.Resolve("parentId"); err == nil {
		t.Error("expected error for malformed id")
	}
}
