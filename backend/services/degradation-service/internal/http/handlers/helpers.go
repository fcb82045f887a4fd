package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackContentType is served when the client accepts it.
const MsgpackContentType = "application/x-msgpack"

func wantsMsgpack(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, MsgpackContentType) || strings.Contains(accept, "application/msgpack")
}

// write encodes payload as MessagePack or JSON depending on the Accept header.
func write(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	if !wantsMsgpack(r) {
		writeJSON(w, status, payload)
		return
	}
	w.Header().Set("Content-Type", MsgpackContentType)
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	_ = enc.Encode(payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
