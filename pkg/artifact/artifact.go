// Package artifact implements the keyed blob store that sites and the
// coordinator synchronize through. A site publishes one local blob per round
// under a key carrying its participant identity; the coordinator lists all
// local blobs for a round, aggregates, and publishes a single global blob
// under the participant-less key. Blobs are line-delimited JSON and
// write-once per key.
package artifact

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rodneyosodo/starfish/pkg/errors"
	"github.com/rodneyosodo/starfish/run"
)

type Key struct {
	RunID       string
	Sequence    int
	Round       int
	Participant string
}

func LocalKey(runID string, ref run.RoundRef, participant string) Key {
	return Key{RunID: runID, Sequence: ref.Sequence, Round: ref.Round, Participant: participant}
}

func GlobalKey(runID string, ref run.RoundRef) Key {
	return Key{RunID: runID, Sequence: ref.Sequence, Round: ref.Round}
}

func (k Key) Global() bool {
	return k.Participant == ""
}

func (k Key) Ref() run.RoundRef {
	return run.RoundRef{Sequence: k.Sequence, Round: k.Round}
}

// Dir returns the per-run directory the key's blob lives under, sanitized
// for use as a path component. Scoping blobs by run directory keeps run ids
// that prefix one another apart.
func (k Key) Dir() string {
	return sanitize(k.RunID)
}

// Base returns the blob filename within the run directory.
func (k Key) Base() string {
	if k.Global() {
		return fmt.Sprintf("%d-%d-artifacts", k.Sequence, k.Round)
	}

	return fmt.Sprintf("%d-%d-%s-mid-artifacts", k.Sequence, k.Round, sanitize(k.Participant))
}

// String renders the key in its canonical form, with identity components
// sanitized for use in filenames.
func (k Key) String() string {
	return k.Dir() + "-" + k.Base()
}

func (k Key) validate() error {
	if k.RunID == "" || sanitize(k.RunID) == "" {
		return errors.ErrEmptyKey
	}
	if !k.Global() && sanitize(k.Participant) == "" {
		return errors.ErrEmptyKey
	}
	if !k.Ref().Valid() {
		return fmt.Errorf("round reference %d-%d: %w", k.Sequence, k.Round, errors.ErrInvalidData)
	}

	return nil
}

// sanitize strips everything but alphanumerics, hyphens and underscores so
// identity components are safe to embed in filenames.
func sanitize(id string) string {
	var b strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// Store is the artifact store contract. Put is write-once per key and
// atomic: a blob is either fully visible to readers or absent. List returns
// every local blob published for the round, keyed by participant.
type Store interface {
	Put(ctx context.Context, key Key, blob []byte) error
	Get(ctx context.Context, key Key) ([]byte, error)
	List(ctx context.Context, runID string, ref run.RoundRef) (map[string][]byte, error)
}

// EncodeLines marshals values into a line-delimited JSON blob.
func EncodeLines(values ...any) ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range values {
		line, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal artifact line: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

// DecodeLines unmarshals every non-empty line of a blob.
func DecodeLines[T any](blob []byte) ([]T, error) {
	var out []T
	scanner := bufio.NewScanner(bytes.NewReader(blob))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal artifact line: %w", err)
		}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan artifact blob: %w", err)
	}

	return out, nil
}
