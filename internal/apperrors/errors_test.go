package apperrors

import (
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindDuplicate, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindInvalidToken, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindInternal, http.StatusInternalServerError},
		{Kind("desconocido"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := StatusOf(tc.kind); got != tc.status {
			t.Errorf("StatusOf(%q) = %d, expected %d", tc.kind, got, tc.status)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := NotFound("No existe la novela")

	if err.Error() != "No existe la novela" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	if err.Kind != KindNotFound {
		t.Errorf("unexpected kind: %q", err.Kind)
	}
}
