package middleware

import (
	"context"
	"net/http"
)

type ctxStateKeyStruct struct{}

var ctxStateKey = ctxStateKeyStruct{}

const (
	StateReplayed = "replayed"
	StateLive     = "live"
)

type RequestState struct {
	outcome string
}

func initializeState(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxStateKey, &RequestState{})
}

// SetReplayState records how the exchange was answered. It is a no-op for
// requests that did not go through StateHandler.
func SetReplayState(r *http.Request, value string) {
	if state, ok := r.Context().Value(ctxStateKey).(*RequestState); ok {
		state.outcome = value
	}
}

func GetReplayState(ctx context.Context) string {
	state, ok := ctx.Value(ctxStateKey).(*RequestState)
	if !ok || state.outcome == "" {
		return "N/A"
	}
	return state.outcome
}

func StateHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(initializeState(r.Context()))
		next.ServeHTTP(w, r)
	})
}
