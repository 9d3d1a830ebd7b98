package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"


	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

type contact struct {
	Name  string  `json:"name" validate:"required,max=10"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,phone"`
}

type orderBody struct {
	Method  enums.PaymentMethod `json:"payment_method" validate:"required,enum"`
	Contact contact             `json:"contact"`
	Lines   []struct {
		Quantity int `json:"quantity" validate:"gt=0"`
	} `json:"lines" validate:"dive"`
}

func decode(t *testing.T, body string) (*orderBody, *pkgerrors.Error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest orderBody
	err := DecodeJSONBody(req, &dest)
	if err == nil {
		return &dest, nil
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %s", typed.Code())
	}
	return nil, typed
}

func details(t *testing.T, err *pkgerrors.Error) map[string]string {
	t.Helper()
	d, ok := err.Details().(map[string]string)
	if !ok {
		t.Fatalf("details %T", err.Details())
	}
	return d
}

func TestDecodeJSONBodyTrimsAndValidates(t *testing.T) {
	got, err := decode(t, `{"payment_method":"card","contact":{"name":"  Ada  ","phone":" +1 (555) 010-0100 "},"lines":[{"quantity":2}]}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Contact.Name != "Ada" || *got.Contact.Phone != "+1 (555) 010-0100" {
		t.Fatalf("fields not trimmed: %+v", got.Contact)
	}
}

func TestDecodeJSONBodyReportsFieldPaths(t *testing.T) {
	_, err := decode(t, `{"payment_method":"crypto","contact":{"name":"   ","phone":"12"},"lines":[{"quantity":0}]}`)
	if err == nil {
		t.Fatal("expected validation error")
	}
	want := map[string]string{
		"payment_method":    "is not a recognised value",
		"contact.name":      "is required",
		"contact.phone":     "must be a phone number of 7 to 15 digits",
		"lines[0].quantity": "must be greater than 0",
	}
	d := details(t, err)
	for field, msg := range want {
		if d[field] != msg {
			t.Errorf("%s: got %q, want %q", field, d[field], msg)
		}
	}
}

func TestDecodeJSONBodyDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"":                                  "request body required",
		`{"payment_method":`:                "malformed JSON",
		`{"payment_method":7}`:              "invalid field type",
		`{"payment_method":"card","x":1}`:   "unknown field",
		`{"payment_method":"card"} {"a":1}`: "request body must hold a single JSON object",
	}
	for body, want := range cases {
		_, err := decode(t, body)
		if err == nil {
			t.Fatalf("%q: expected error", body)
		}
		if err.Message() != want {
			t.Errorf("%q: message %q, want %q", body, err.Message(), want)
		}
	}

	_, err := decode(t, `{"payment_method":"card","x":1}`)
	if got := details(t, err)["x"]; got != "is not allowed" {
		t.Fatalf("unknown field detail = %q", got)
	}
}

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"  Happy\x00 Birthday\n", 0, "Happy Birthday"},
		{"Crème brûlée", 5, "Crème"},
		{"ab  cd", 3, "ab"},
	}
	for _, tc := range cases {
		if got := SanitizeString(tc.in, tc.max); got != tc.want {
			t.Errorf("SanitizeString(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
