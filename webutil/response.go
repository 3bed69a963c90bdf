package webutil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type errorResponse struct {
	Error       string   `json:"error"`
	Remediation []string `json:"remediation,omitempty"`
}

func RespondWithError(w http.ResponseWriter, code int, message string, remediation ...string) {
	RespondWithJSON(w, code, errorResponse{Error: message, Remediation: remediation})
}

func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		w.Header().Set(HeaderContentType, ContentTypeJSONUTF8)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal Server Error"}`))
		return
	}

	w.Header().Set(HeaderContentType, ContentTypeJSONUTF8)
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

// DecodeJSON reads a request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return ErrBadRequestWrap("Invalid request payload: "+err.Error(), err)
	}
	return nil
}
