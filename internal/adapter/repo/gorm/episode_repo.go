package gormrepo

import (
	"context"

	"farmcycle/internal/adapter/repo/gorm/model"
	"farmcycle/internal/app/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EpisodeRepo struct {
	db *gorm.DB
}

func NewEpisodeRepo(db *gorm.DB) EpisodeRepo {
	return EpisodeRepo{db: db}
}

func (r EpisodeRepo) Append(ctx context.Context, rec ports.EpisodeRecord) error {
	m := toEpisodeModel(rec)
	res := getDBFromCtx(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrConflict
	}
	return nil
}

func (r EpisodeRepo) ListByRun(ctx context.Context, runID string, limit int) ([]ports.EpisodeRecord, error) {
	rows := []model.EpisodeRecord{}
	query := getDBFromCtx(ctx, r.db).
		Where(&model.EpisodeRecord{RunID: runID}).
		Clauses(clause.OrderBy{
			Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "episode"}, Desc: true}},
		})
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ports.EpisodeRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromEpisodeModel(row))
	}
	return out, nil
}

func toEpisodeModel(rec ports.EpisodeRecord) model.EpisodeRecord {
	return model.EpisodeRecord{
		RunID:             rec.RunID,
		Episode:           int32(rec.Episode),
		Reward:            rec.Reward,
		Harvested:         int32(rec.Harvested),
		Planted:           int32(rec.Planted),
		Irrigated:         int32(rec.Irrigated),
		TaskComplete:      rec.TaskComplete,
		Steps:             int32(rec.Steps),
		AvgEpsilon:        rec.AvgEpsilon,
		StatesLearned:     int32(rec.StatesLearned),
		FuelConsumed:      rec.FuelConsumed,
		AvgFuelEfficiency: rec.AvgFuelEfficiency,
		TimeSavedPct:      rec.TimeSavedPct,
		FinishedAt:        rec.FinishedAt,
	}
}

func fromEpisodeModel(m model.EpisodeRecord) ports.EpisodeRecord {
	return ports.EpisodeRecord{
		RunID:             m.RunID,
		Episode:           int(m.Episode),
		Reward:            m.Reward,
		Harvested:         int(m.Harvested),
		Planted:           int(m.Planted),
		Irrigated:         int(m.Irrigated),
		TaskComplete:      m.TaskComplete,
		Steps:             int(m.Steps),
		AvgEpsilon:        m.AvgEpsilon,
		StatesLearned:     int(m.StatesLearned),
		FuelConsumed:      m.FuelConsumed,
		AvgFuelEfficiency: m.AvgFuelEfficiency,
		TimeSavedPct:      m.TimeSavedPct,
		FinishedAt:        m.FinishedAt,
	}
}
