// Package policyfile persists policies as a zstd-compressed JSON document
// on local disk.
package policyfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"farmcycle/internal/app/ports"
	"farmcycle/internal/domain/agent"
	"farmcycle/internal/domain/farm"
)

const (
	formatName    = "farmcycle.policy"
	formatVersion = 1
)

var ErrInvalidDocument = errors.New("invalid policy document")

type document struct {
	Format  string `json:"format"`
	Version int    `json:"version"`
	ports.PolicySnapshot
}

type Info struct {
	Path            string `json:"path"`
	CompressedBytes int64  `json:"compressed_bytes"`
	RawBytes        int64  `json:"raw_bytes"`
	Agents          int    `json:"agents"`
	Entries         int    `json:"entries"`
}

// Store implements ports.PolicyRepository on a single file. Saves go
// through a temporary file and a rename so readers never see a partial
// document.
type Store struct {
	Path string
}

func New(path string) Store {
	return Store{Path: path}
}

func (s Store) Save(_ context.Context, snap ports.PolicySnapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp, snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}

func encode(w io.Writer, snap ports.PolicySnapshot) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)
	doc := document{Format: formatName, Version: formatVersion, PolicySnapshot: snap}
	if err := json.NewEncoder(bw).Encode(doc); err != nil {
		enc.Close()
		return fmt.Errorf("encode policy: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Load reads and validates the document. A missing file is
// ports.ErrNotFound; a broken envelope is ErrInvalidDocument. Agents and
// entries that do not decode are dropped and counted in the snapshot.
func (s Store) Load(_ context.Context) (ports.PolicySnapshot, error) {
	raw, err := s.readRaw()
	if err != nil {
		return ports.PolicySnapshot{}, err
	}
	return decode(raw)
}

func (s Store) readRaw() ([]byte, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return raw, nil
}

// storedDocument mirrors document with the agents left undecoded, so a
// broken agent or entry costs only itself.
type storedDocument struct {
	Format  string            `json:"format"`
	Version int               `json:"version"`
	RunID   string            `json:"run_id"`
	Episode int               `json:"episode"`
	SavedAt time.Time         `json:"saved_at"`
	Agents  []json.RawMessage `json:"agents"`
}

type storedAgent struct {
	ID     int                        `json:"id"`
	Role   farm.Role                  `json:"role"`
	QTable map[string]json.RawMessage `json:"q_table"`
	Stats  json.RawMessage            `json:"stats"`
}

func decode(raw []byte) (ports.PolicySnapshot, error) {
	sch, err := compiledSchema()
	if err != nil {
		return ports.PolicySnapshot{}, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return ports.PolicySnapshot{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := sch.Validate(generic); err != nil {
		return ports.PolicySnapshot{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var doc storedDocument
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&doc); err != nil {
		return ports.PolicySnapshot{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	snap := ports.PolicySnapshot{
		RunID:   doc.RunID,
		Episode: doc.Episode,
		SavedAt: doc.SavedAt,
		Agents:  make([]ports.AgentPolicy, 0, len(doc.Agents)),
	}
	for _, msg := range doc.Agents {
		var a storedAgent
		if err := json.Unmarshal(msg, &a); err != nil || a.QTable == nil {
			snap.Dropped++
			continue
		}
		p := ports.AgentPolicy{AgentID: a.ID, Role: a.Role}
		var dropped int
		p.Entries, dropped = ports.DecodeEntries(a.QTable)
		snap.Dropped += dropped
		if len(a.Stats) > 0 && string(a.Stats) != "null" {
			if err := json.Unmarshal(a.Stats, &p.Stats); err != nil {
				snap.BadStats = append(snap.BadStats, a.ID)
				p.Stats = agent.Stats{}
			}
		}
		snap.Agents = append(snap.Agents, p)
	}
	return snap, nil
}

// Inspect loads the document and reports its size on disk and decoded.
func (s Store) Inspect(ctx context.Context) (Info, ports.PolicySnapshot, error) {
	st, err := os.Stat(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Info{}, ports.PolicySnapshot{}, ports.ErrNotFound
		}
		return Info{}, ports.PolicySnapshot{}, err
	}
	raw, err := s.readRaw()
	if err != nil {
		return Info{}, ports.PolicySnapshot{}, err
	}
	snap, err := decode(raw)
	if err != nil {
		return Info{}, ports.PolicySnapshot{}, err
	}
	info := Info{Path: s.Path, CompressedBytes: st.Size(), RawBytes: int64(len(raw)), Agents: len(snap.Agents)}
	for _, a := range snap.Agents {
		info.Entries += len(a.Entries)
	}
	return info, snap, nil
}
