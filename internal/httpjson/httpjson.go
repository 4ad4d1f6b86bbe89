// Package httpjson escreve respostas JSON curtas usadas pelos middlewares e handlers do guard.
package httpjson

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Error string `json:"error"`
}

// Write serializa v com o status informado.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error responde {"error": msg}. Se msg for vazio usa o texto padrão do status.
func Error(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	Write(w, status, errorBody{Error: msg})
}
