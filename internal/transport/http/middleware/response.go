package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody is the lean envelope the middlewares answer with; handlers own
// the richer message/field-error envelopes.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}
