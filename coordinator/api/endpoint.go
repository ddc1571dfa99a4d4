package api

import (
	"context"
	"encoding/json"

	"github.com/go-kit/kit/endpoint"

	"github.com/rodneyosodo/starfish/coordinator"
	"github.com/rodneyosodo/starfish/pkg/artifact"
	pkgerrors "github.com/rodneyosodo/starfish/pkg/errors"
)

func createRunEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(createRunReq)
		if !ok {
			return runResponse{}, pkgerrors.ErrInvalidData
		}
		if err := req.validate(); err != nil {
			return runResponse{}, err
		}

		r, err := svc.CreateRun(ctx, req.Run)
		if err != nil {
			return runResponse{}, err
		}

		return runResponse{Run: r, created: true}, nil
	}
}

func getRunEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return runResponse{}, pkgerrors.ErrInvalidData
		}
		if err := req.validate(); err != nil {
			return runResponse{}, err
		}

		r, err := svc.GetRun(ctx, req.id)
		if err != nil {
			return runResponse{}, err
		}

		return runResponse{Run: r}, nil
	}
}

func listRunsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listRunResponse{}, pkgerrors.ErrInvalidData
		}
		if err := req.validate(); err != nil {
			return listRunResponse{}, err
		}

		page, err := svc.ListRuns(ctx, req.offset, req.limit)
		if err != nil {
			return listRunResponse{}, err
		}

		return listRunResponse{Page: page}, nil
	}
}

func roundStatusEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(roundReq)
		if !ok {
			return statusResponse{}, pkgerrors.ErrInvalidData
		}
		if err := req.validate(); err != nil {
			return statusResponse{}, err
		}

		status, err := svc.RoundStatus(ctx, req.runID, req.ref)
		if err != nil {
			return statusResponse{}, err
		}

		return statusResponse{RoundStatus: status}, nil
	}
}

func aggregateEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(aggregateReq)
		if !ok {
			return aggregateResponse{}, pkgerrors.ErrInvalidData
		}
		if err := req.validate(); err != nil {
			return aggregateResponse{}, err
		}

		if err := svc.Aggregate(ctx, req.runID, req.ref, req.quorum); err != nil {
			return aggregateResponse{}, err
		}

		return aggregateResponse{}, nil
	}
}

func globalStatsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(roundReq)
		if !ok {
			return globalResponse{}, pkgerrors.ErrInvalidData
		}
		if err := req.validate(); err != nil {
			return globalResponse{}, err
		}

		blob, err := svc.GlobalStats(ctx, req.runID, req.ref)
		if err != nil {
			return globalResponse{}, err
		}
		lines, err := artifact.DecodeLines[json.RawMessage](blob)
		if err != nil {
			return globalResponse{}, err
		}

		return globalResponse{Stats: lines}, nil
	}
}
