package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/nanocl-project/nanocld/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validatePayload runs struct tag validation and translates the first
// failure into a DaemonError the handler can pass straight to writeError.
func validatePayload(payload any) error {
	if err := validate.Struct(payload); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return errors.Validation(fe.Namespace() + " failed the '" + fe.Tag() + "' check")
		}
		return errors.Validation(err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError translates err into a JSON body carrying the DaemonError's
// code and HTTP status, falling back to a generic 500 for unrecognized
// errors.
func writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	body := map[string]string{"error": err.Error()}
	if de, ok := errors.As(err); ok {
		body["code"] = string(de.Code)
	}
	writeJSON(w, status, body)
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// nextVersion produces a simple monotonically increasing version string for
// non-Cargo specs (Resources) that don't go through the reconciler's Patch
// path. See internal/process's identically-named helper for Cargo's.
func nextVersion(current string) string {
	n, err := strconv.Atoi(current)
	if err != nil {
		n = 0
	}
	return strconv.Itoa(n + 1)
}
