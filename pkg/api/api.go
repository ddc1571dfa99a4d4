package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/rodneyosodo/starfish/pkg/errors"
)

const (
	OffsetKey = "offset"
	LimitKey  = "limit"
	QuorumKey = "quorum"
	DefOffset = 0
	DefLimit  = 100

	ContentType = "application/json"
)

// Response lets endpoint responses carry their HTTP representation.
type Response interface {
	Code() int
	Headers() map[string]string
	Empty() bool
}

func EncodeResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	if ar, ok := response.(Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentType)
	switch {
	case errors.Is(err, pkgerrors.ErrEmptyKey),
		errors.Is(err, pkgerrors.ErrInvalidData):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, pkgerrors.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, pkgerrors.ErrEntityExists):
		w.WriteHeader(http.StatusConflict)
	case errors.Is(err, pkgerrors.ErrRoundNotReady),
		errors.Is(err, pkgerrors.ErrQuorumNotMet),
		errors.Is(err, pkgerrors.ErrNoPayloads):
		w.WriteHeader(http.StatusConflict)
	case errors.Is(err, pkgerrors.ErrShapeMismatch):
		w.WriteHeader(http.StatusUnprocessableEntity)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	enc := map[string]string{"error": err.Error()}
	if err := json.NewEncoder(w).Encode(enc); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
