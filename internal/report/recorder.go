package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event kinds written to the run log.
const (
	KindDeploy  = "deploy"
	KindTx      = "tx"
	KindCall    = "call"
	KindBalance = "balance"
)

// Event is one line of the run log.
type Event struct {
	Time     time.Time `json:"time"`
	Step     string    `json:"step"`
	Kind     string    `json:"kind"`
	Contract string    `json:"contract,omitempty"`
	Address  string    `json:"address,omitempty"`
	Tx       string    `json:"tx,omitempty"`
	GasUsed  uint64    `json:"gas_used,omitempty"`
	Value    string    `json:"value,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

// Recorder receives run events.
type Recorder interface {
	Record(Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Record(Event) {}

// JSONLRecorder appends events as JSON lines for later analysis.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder creates/opens the target file and returns a recorder.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Record writes a single event to the underlying JSONL file.
func (r *JSONLRecorder) Record(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return
	}
	_ = r.enc.Encode(ev)
}

// Close flushes and closes the file handle.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
