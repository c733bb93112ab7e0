package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"farmcycle/internal/app/ports"
	"farmcycle/internal/app/sim"
	"farmcycle/internal/domain/agent"
	"farmcycle/internal/domain/farm"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const defaultHistoryLimit = 50

// Simulation is the part of sim.Engine the API drives.
type Simulation interface {
	Mode() sim.Mode
	Snapshot() sim.Snapshot
	StepOnce(overrides map[int]agent.Action) (sim.TickReport, error)
	StartTraining(ctx context.Context, req sim.TrainRequest) (string, error)
	StopTraining() error
	StartServing(ctx context.Context) error
	StopServing() error
	UpdateParams(u sim.ParamsUpdate) (agent.LearnParams, error)
	SavePolicy(ctx context.Context) error
	LoadPolicy(ctx context.Context) (sim.LoadReport, error)
	Stats() sim.TrainingStats
	History(ctx context.Context, runID string, limit int) ([]ports.EpisodeRecord, error)
	TrainingProgress() sim.TrainingProgress
	Metrics() sim.MetricsReport
	Agents() sim.AgentsReport
	Parcels() []farm.ParcelSummary
}

type Handler struct {
	Sim Simulation
	KPI kpiSnapshotProvider
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware())

	s.GET("/health", h.health)
	s.GET("/state", h.state)
	s.POST("/step", h.step)

	s.POST("/train", h.train)
	s.POST("/stop", h.stop)
	s.POST("/params", h.params)
	s.GET("/stats", h.stats)
	s.GET("/history", h.history)
	s.GET("/training-progress", h.trainingProgress)

	s.POST("/save", h.save)
	s.POST("/load", h.load)
	s.POST("/run-trained", h.runTrained)
	s.POST("/stop-trained", h.stopTrained)

	s.GET("/metrics", h.metrics)
	s.GET("/agents", h.agents)
	s.GET("/parcels", h.parcels)
	s.GET("/ops/kpi", h.kpi)
}

func (h Handler) health(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{"status": "ok", "mode": h.Sim.Mode()})
}

func (h Handler) state(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, h.Sim.Snapshot())
}

type stepRequest struct {
	Overrides map[int]agent.Action `json:"overrides"`
}

func (h Handler) step(_ context.Context, ctx *app.RequestContext) {
	var body stepRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	for id, act := range body.Overrides {
		if !act.Valid() {
			writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "invalid action for agent "+strconv.Itoa(id))
			return
		}
	}
	rep, err := h.Sim.StepOnce(body.Overrides)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, rep)
}

func (h Handler) train(c context.Context, ctx *app.RequestContext) {
	var body sim.TrainRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	runID, err := h.Sim.StartTraining(c, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusAccepted, map[string]any{"status": "training_started", "run_id": runID})
}

func (h Handler) stop(_ context.Context, ctx *app.RequestContext) {
	if err := h.Sim.StopTraining(); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]string{"status": "training_stopped"})
}

func (h Handler) params(_ context.Context, ctx *app.RequestContext) {
	var body sim.ParamsUpdate
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	p, err := h.Sim.UpdateParams(body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{
		"status": "ok",
		"params": map[string]float64{
			"alpha":     p.Alpha,
			"gamma":     p.Gamma,
			"eps":       p.Epsilon,
			"eps_decay": p.EpsilonDecay,
			"eps_min":   p.EpsilonMin,
		},
	})
}

func (h Handler) stats(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, h.Sim.Stats())
}

func (h Handler) history(c context.Context, ctx *app.RequestContext) {
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(string(ctx.Query("limit"))); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	runID := strings.TrimSpace(string(ctx.Query("run_id")))
	recs, err := h.Sim.History(c, runID, limit)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"run_id": runID, "episodes": recs})
}

func (h Handler) trainingProgress(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, h.Sim.TrainingProgress())
}

func (h Handler) save(c context.Context, ctx *app.RequestContext) {
	if err := h.Sim.SavePolicy(c); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]string{"status": "saved"})
}

func (h Handler) load(c context.Context, ctx *app.RequestContext) {
	rep, err := h.Sim.LoadPolicy(c)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"status": "loaded", "report": rep})
}

func (h Handler) runTrained(c context.Context, ctx *app.RequestContext) {
	if err := h.Sim.StartServing(c); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusAccepted, map[string]string{"status": "serving_started"})
}

func (h Handler) stopTrained(_ context.Context, ctx *app.RequestContext) {
	if err := h.Sim.StopServing(); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]string{"status": "serving_stopped"})
}

func (h Handler) metrics(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, h.Sim.Metrics())
}

func (h Handler) agents(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, h.Sim.Agents())
}

func (h Handler) parcels(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{"parcels": h.Sim.Parcels()})
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, sim.ErrBusy):
		writeErrorBody(ctx, consts.StatusConflict, "busy", err.Error())
	case errors.Is(err, sim.ErrNotRunning):
		writeErrorBody(ctx, consts.StatusConflict, "not_running", err.Error())
	case errors.Is(err, sim.ErrInvalidRequest):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error())
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
