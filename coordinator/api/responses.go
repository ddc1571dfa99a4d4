package api

import (
	"encoding/json"
	"net/http"

	"github.com/rodneyosodo/starfish/coordinator"
	"github.com/rodneyosodo/starfish/pkg/api"
	"github.com/rodneyosodo/starfish/run"
)

var (
	_ api.Response = (*runResponse)(nil)
	_ api.Response = (*listRunResponse)(nil)
	_ api.Response = (*statusResponse)(nil)
	_ api.Response = (*aggregateResponse)(nil)
	_ api.Response = (*globalResponse)(nil)
)

type runResponse struct {
	run.Run
	created bool
}

func (r runResponse) Code() int {
	if r.created {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (r runResponse) Headers() map[string]string {
	if r.created {
		return map[string]string{
			"Location": "/runs/" + r.ID,
		}
	}

	return map[string]string{}
}

func (r runResponse) Empty() bool {
	return false
}

type listRunResponse struct {
	run.Page
}

func (l listRunResponse) Code() int {
	return http.StatusOK
}

func (l listRunResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listRunResponse) Empty() bool {
	return false
}

type statusResponse struct {
	coordinator.RoundStatus
}

func (s statusResponse) Code() int {
	return http.StatusOK
}

func (s statusResponse) Headers() map[string]string {
	return map[string]string{}
}

func (s statusResponse) Empty() bool {
	return false
}

type aggregateResponse struct{}

func (a aggregateResponse) Code() int {
	return http.StatusCreated
}

func (a aggregateResponse) Headers() map[string]string {
	return map[string]string{}
}

func (a aggregateResponse) Empty() bool {
	return true
}

// globalResponse returns the decoded lines of the global payload blob.
type globalResponse struct {
	Stats []json.RawMessage `json:"stats"`
}

func (g globalResponse) Code() int {
	return http.StatusOK
}

func (g globalResponse) Headers() map[string]string {
	return map[string]string{}
}

func (g globalResponse) Empty() bool {
	return false
}
