package sdk

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rodneyosodo/starfish/coordinator"
	"github.com/rodneyosodo/starfish/run"
)

const ctJSON = "application/json"

// SDK is the HTTP client for the coordinator API.
type SDK interface {
	// CreateRun submits a federated job.
	CreateRun(r run.Run) (run.Run, error)

	// GetRun fetches a run by id.
	GetRun(id string) (run.Run, error)

	// ListRuns pages through registered runs.
	ListRuns(offset, limit uint64) (run.Page, error)

	// RoundStatus reports how many sites have published for a round.
	RoundStatus(runID string, ref run.RoundRef) (coordinator.RoundStatus, error)

	// Aggregate triggers aggregation for a round. Quorum 0 requires the
	// full participant set.
	Aggregate(runID string, ref run.RoundRef, quorum int) error

	// GlobalStats fetches the decoded global payload lines for a round.
	GlobalStats(runID string, ref run.RoundRef) ([]json.RawMessage, error)
}

type starfishSDK struct {
	coordinatorURL string
	client         *http.Client
}

type Config struct {
	CoordinatorURL  string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &starfishSDK{
		coordinatorURL: cfg.CoordinatorURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *starfishSDK) CreateRun(r run.Run) (run.Run, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return run.Run{}, err
	}

	body, err := sdk.processRequest(http.MethodPost, sdk.coordinatorURL+"/runs", data, http.StatusCreated)
	if err != nil {
		return run.Run{}, err
	}

	var created run.Run
	if err := json.Unmarshal(body, &created); err != nil {
		return run.Run{}, err
	}

	return created, nil
}

func (sdk *starfishSDK) GetRun(id string) (run.Run, error) {
	body, err := sdk.processRequest(http.MethodGet, sdk.coordinatorURL+"/runs/"+id, nil, http.StatusOK)
	if err != nil {
		return run.Run{}, err
	}

	var r run.Run
	if err := json.Unmarshal(body, &r); err != nil {
		return run.Run{}, err
	}

	return r, nil
}

func (sdk *starfishSDK) ListRuns(offset, limit uint64) (run.Page, error) {
	url := fmt.Sprintf("%s/runs?offset=%d&limit=%d", sdk.coordinatorURL, offset, limit)
	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return run.Page{}, err
	}

	var page run.Page
	if err := json.Unmarshal(body, &page); err != nil {
		return run.Page{}, err
	}

	return page, nil
}

func (sdk *starfishSDK) RoundStatus(runID string, ref run.RoundRef) (coordinator.RoundStatus, error) {
	body, err := sdk.processRequest(http.MethodGet, sdk.roundURL(runID, ref), nil, http.StatusOK)
	if err != nil {
		return coordinator.RoundStatus{}, err
	}

	var status coordinator.RoundStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return coordinator.RoundStatus{}, err
	}

	return status, nil
}

func (sdk *starfishSDK) Aggregate(runID string, ref run.RoundRef, quorum int) error {
	url := sdk.roundURL(runID, ref) + "/aggregate"
	if quorum > 0 {
		url = fmt.Sprintf("%s?quorum=%d", url, quorum)
	}
	_, err := sdk.processRequest(http.MethodPost, url, nil, http.StatusCreated)

	return err
}

func (sdk *starfishSDK) GlobalStats(runID string, ref run.RoundRef) ([]json.RawMessage, error) {
	body, err := sdk.processRequest(http.MethodGet, sdk.roundURL(runID, ref)+"/global", nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Stats []json.RawMessage `json:"stats"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	return resp.Stats, nil
}

func (sdk *starfishSDK) roundURL(runID string, ref run.RoundRef) string {
	return fmt.Sprintf("%s/runs/%s/rounds/%d/%d", sdk.coordinatorURL, runID, ref.Sequence, ref.Round)
}

func (sdk *starfishSDK) processRequest(method, url string, data []byte, expected int) ([]byte, error) {
	req, err := http.NewRequest(method, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", ctJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != expected {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	return body, nil
}
