package api

import (
	"github.com/rodneyosodo/starfish/pkg/errors"
	"github.com/rodneyosodo/starfish/run"
)

type createRunReq struct {
	run.Run
}

func (req createRunReq) validate() error {
	if len(req.Tasks) == 0 || len(req.Participants) == 0 {
		return errors.ErrInvalidData
	}
	for _, t := range req.Tasks {
		if t.Kind != "" && t.Kind != run.KindLinear && t.Kind != run.KindKernel {
			return errors.ErrInvalidData
		}
	}

	return nil
}

type entityReq struct {
	id string
}

func (req entityReq) validate() error {
	if req.id == "" {
		return errors.ErrEmptyKey
	}

	return nil
}

type listEntityReq struct {
	offset uint64
	limit  uint64
}

func (req listEntityReq) validate() error {
	return nil
}

type roundReq struct {
	runID string
	ref   run.RoundRef
}

func (req roundReq) validate() error {
	if req.runID == "" {
		return errors.ErrEmptyKey
	}
	if !req.ref.Valid() {
		return errors.ErrInvalidData
	}

	return nil
}

type aggregateReq struct {
	roundReq
	quorum int
}

func (req aggregateReq) validate() error {
	if req.quorum < 0 {
		return errors.ErrInvalidData
	}

	return req.roundReq.validate()
}
