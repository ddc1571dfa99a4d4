package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rodneyosodo/starfish/coordinator"
	"github.com/rodneyosodo/starfish/pkg/api"
	pkgerrors "github.com/rodneyosodo/starfish/pkg/errors"
	"github.com/rodneyosodo/starfish/run"
)

func MakeHandler(svc coordinator.Service, logger *slog.Logger) http.Handler {
	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(api.EncodeError),
	}

	mux := chi.NewRouter()

	mux.Route("/runs", func(r chi.Router) {
		r.Post("/", kithttp.NewServer(
			createRunEndpoint(svc),
			decodeCreateRunReq,
			api.EncodeResponse,
			opts...,
		).ServeHTTP)
		r.Get("/", kithttp.NewServer(
			listRunsEndpoint(svc),
			decodeListEntityReq,
			api.EncodeResponse,
			opts...,
		).ServeHTTP)
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", kithttp.NewServer(
				getRunEndpoint(svc),
				decodeEntityReq("runID"),
				api.EncodeResponse,
				opts...,
			).ServeHTTP)
			r.Route("/rounds/{sequence}/{round}", func(r chi.Router) {
				r.Get("/", kithttp.NewServer(
					roundStatusEndpoint(svc),
					decodeRoundReq,
					api.EncodeResponse,
					opts...,
				).ServeHTTP)
				r.Post("/aggregate", kithttp.NewServer(
					aggregateEndpoint(svc),
					decodeAggregateReq,
					api.EncodeResponse,
					opts...,
				).ServeHTTP)
				r.Get("/global", kithttp.NewServer(
					globalStatsEndpoint(svc),
					decodeRoundReq,
					api.EncodeResponse,
					opts...,
				).ServeHTTP)
			})
		})
	})

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", api.ContentType)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			logger.Error("Failed to write health response", slog.Any("error", err))
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeCreateRunReq(_ context.Context, r *http.Request) (any, error) {
	var req createRunReq
	if err := json.NewDecoder(r.Body).Decode(&req.Run); err != nil {
		return nil, pkgerrors.ErrInvalidData
	}

	return req, nil
}

func decodeEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		return entityReq{id: chi.URLParam(r, key)}, nil
	}
}

func decodeListEntityReq(_ context.Context, r *http.Request) (any, error) {
	req := listEntityReq{
		offset: api.DefOffset,
		limit:  api.DefLimit,
	}
	if v := r.URL.Query().Get(api.OffsetKey); v != "" {
		offset, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, pkgerrors.ErrInvalidData
		}
		req.offset = offset
	}
	if v := r.URL.Query().Get(api.LimitKey); v != "" {
		limit, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, pkgerrors.ErrInvalidData
		}
		req.limit = limit
	}

	return req, nil
}

func decodeRoundReq(_ context.Context, r *http.Request) (any, error) {
	sequence, err := strconv.Atoi(chi.URLParam(r, "sequence"))
	if err != nil {
		return nil, pkgerrors.ErrInvalidData
	}
	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil {
		return nil, pkgerrors.ErrInvalidData
	}

	return roundReq{
		runID: chi.URLParam(r, "runID"),
		ref:   run.RoundRef{Sequence: sequence, Round: round},
	}, nil
}

func decodeAggregateReq(ctx context.Context, r *http.Request) (any, error) {
	decoded, err := decodeRoundReq(ctx, r)
	if err != nil {
		return nil, err
	}
	req := aggregateReq{roundReq: decoded.(roundReq)}
	if v := r.URL.Query().Get(api.QuorumKey); v != "" {
		quorum, err := strconv.Atoi(v)
		if err != nil {
			return nil, pkgerrors.ErrInvalidData
		}
		req.quorum = quorum
	}

	return req, nil
}
