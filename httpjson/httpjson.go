// Package httpjson has the response helpers shared by the bot server and the
// archive viewer.
package httpjson

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Write sends v as a JSON body with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// AllowCORS opens the response to any origin for the listed methods.
// OPTIONS is always allowed.
func AllowCORS(w http.ResponseWriter, methods ...string) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", strings.Join(append(methods, http.MethodOptions), ", "))
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}
