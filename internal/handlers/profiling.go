package handlers

import (
	"net/http"
	"net/http/pprof"
)

func RegisterProfilingHandlers(handler *http.ServeMux, prefix string) {
	handler.HandleFunc("GET "+prefix, pprof.Index)
	handler.HandleFunc("GET "+prefix+"cmdline", pprof.Cmdline)
	handler.HandleFunc("GET "+prefix+"profile", pprof.Profile)
	handler.HandleFunc("GET "+prefix+"symbol", pprof.Symbol)
	handler.HandleFunc("GET "+prefix+"trace", pprof.Trace)
}
