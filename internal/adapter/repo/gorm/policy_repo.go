package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"farmcycle/internal/adapter/repo/gorm/model"
	"farmcycle/internal/app/ports"
	"farmcycle/internal/domain/agent"
	"farmcycle/internal/domain/farm"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PolicyRepo stores every saved policy as a snapshot row plus one row per
// agent. Load returns the most recent snapshot.
type PolicyRepo struct {
	db *gorm.DB
	tx ports.TxManager
}

func NewPolicyRepo(db *gorm.DB, tx ports.TxManager) PolicyRepo {
	return PolicyRepo{db: db, tx: tx}
}

func (r PolicyRepo) Save(ctx context.Context, snap ports.PolicySnapshot) error {
	rows := make([]model.AgentPolicy, 0, len(snap.Agents))
	for _, p := range snap.Agents {
		q, err := json.Marshal(p.Entries)
		if err != nil {
			return fmt.Errorf("encode q_table of agent %d: %w", p.AgentID, err)
		}
		stats, err := json.Marshal(p.Stats)
		if err != nil {
			return fmt.Errorf("encode stats of agent %d: %w", p.AgentID, err)
		}
		rows = append(rows, model.AgentPolicy{
			AgentID: int32(p.AgentID),
			Role:    string(p.Role),
			QTable:  string(q),
			Stats:   string(stats),
		})
	}

	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		db := getDBFromCtx(ctx, r.db)
		head := model.PolicySnapshot{RunID: snap.RunID, Episode: int32(snap.Episode), SavedAt: snap.SavedAt}
		if err := db.Create(&head).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for i := range rows {
			rows[i].SnapshotID = head.ID
		}
		return db.Create(&rows).Error
	})
}

func (r PolicyRepo) Load(ctx context.Context) (ports.PolicySnapshot, error) {
	db := getDBFromCtx(ctx, r.db)
	var head model.PolicySnapshot
	err := db.Clauses(clause.OrderBy{
		Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "id"}, Desc: true}},
	}).First(&head).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.PolicySnapshot{}, ports.ErrNotFound
		}
		return ports.PolicySnapshot{}, err
	}

	var rows []model.AgentPolicy
	if err := db.Where(&model.AgentPolicy{SnapshotID: head.ID}).Order("agent_id").Find(&rows).Error; err != nil {
		return ports.PolicySnapshot{}, err
	}

	out := ports.PolicySnapshot{
		RunID:   head.RunID,
		Episode: int(head.Episode),
		SavedAt: head.SavedAt,
		Agents:  make([]ports.AgentPolicy, 0, len(rows)),
	}
	for _, row := range rows {
		p, ok := decodeAgentRow(row, &out)
		if ok {
			out.Agents = append(out.Agents, p)
		}
	}
	return out, nil
}

// decodeAgentRow decodes one agent row entry by entry. A q_table that is not
// a JSON object drops the whole row; broken entries and stats are recorded
// on out.
func decodeAgentRow(row model.AgentPolicy, out *ports.PolicySnapshot) (ports.AgentPolicy, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(row.QTable), &raw); err != nil || raw == nil {
		out.Dropped++
		return ports.AgentPolicy{}, false
	}
	p := ports.AgentPolicy{AgentID: int(row.AgentID), Role: farm.Role(row.Role)}
	var dropped int
	p.Entries, dropped = ports.DecodeEntries(raw)
	out.Dropped += dropped
	if row.Stats != "" {
		if err := json.Unmarshal([]byte(row.Stats), &p.Stats); err != nil {
			out.BadStats = append(out.BadStats, p.AgentID)
			p.Stats = agent.Stats{}
		}
	}
	return p, true
}
