package apihttp

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"leadcore/internal/funnel"
	"leadcore/internal/lead"
	"leadcore/internal/logger"
	"leadcore/internal/pkg/convert"
	"leadcore/internal/preset"
	"leadcore/internal/relay"
)

// LeadRelay forwards a validated submission upstream.
type LeadRelay interface {
	Forward(ctx context.Context, sub lead.Submission) relay.Result
}

// PresetSource supplies funnel presets and resolves overrides onto them.
type PresetSource interface {
	Snapshot() preset.Snapshot
	IDs() []string
	Resolve(id string, overrides map[string]any) (funnel.Inputs, error)
}

// Router exposes the lead and funnel endpoints.
type Router struct {
	relay   LeadRelay
	presets PresetSource
}

// NewRouter constructs the api router.
func NewRouter(r LeadRelay, p PresetSource) *Router {
	return &Router{relay: r, presets: p}
}

// Register mounts the routes under the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	if r.relay != nil {
		group.POST("/leads", r.handleLeadSubmit)
	}
	if r.presets != nil {
		group.GET("/funnel/presets", r.handleFunnelPresets)
	}
	group.POST("/funnel/compute", r.handleFunnelCompute)
}

func (r *Router) handleLeadSubmit(c *gin.Context) {
	var payload lead.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request body"})
		return
	}
	if err := payload.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	sub := lead.NewSubmission(payload)
	logger.Infof("[api] lead submit ip=%s submission=%s", c.ClientIP(), sub.ID)

	res := r.relay.Forward(c.Request.Context(), sub)
	if !res.OK {
		// Upstream internals stay in the operator log; the caller gets a
		// generic failure plus the upstream status when one was obtained.
		body := gin.H{"ok": false, "error": "lead could not be submitted, please try again"}
		if res.Status > 0 {
			body["status"] = res.Status
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "detail": res.Detail})
}

// computeRequest tolerates string-typed numbers: slider and input values
// arrive however the page serialized them.
type computeRequest struct {
	Preset     string               `json:"preset"`
	Overrides  map[string]any       `json:"overrides"`
	LeadVolume any                  `json:"lead_volume"`
	StageRates []any                `json:"stage_rates"`
	AvgValue   any                  `json:"avg_value"`
	Uplifts    []funnel.StageUplift `json:"uplifts"`
}

func (r *Router) handleFunnelCompute(c *gin.Context) {
	var req computeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request body"})
		return
	}

	var in funnel.Inputs
	if req.Preset != "" {
		if r.presets == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "presets not configured"})
			return
		}
		resolved, err := r.presets.Resolve(req.Preset, req.Overrides)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
			return
		}
		in = resolved
	} else {
		in = funnel.Inputs{
			LeadVolume: convert.ToFloat64(req.LeadVolume),
			AvgValue:   convert.ToFloat64(req.AvgValue),
			StageRates: make([]float64, len(req.StageRates)),
			Uplifts:    req.Uplifts,
		}
		for i, v := range req.StageRates {
			in.StageRates[i] = convert.ToFloat64(v)
		}
	}

	result := funnel.Compute(in)
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": result})
}

func (r *Router) handleFunnelPresets(c *gin.Context) {
	snap := r.presets.Snapshot()
	out := make([]gin.H, 0, len(snap.Presets))
	for _, id := range r.presets.IDs() {
		p := snap.Presets[id]
		out = append(out, gin.H{
			"id":          p.ID,
			"label":       p.Label,
			"lead_volume": p.LeadVolume,
			"avg_value":   p.AvgValue,
			"stages":      p.Stages,
			"uplifts":     p.Uplifts,
		})
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "presets": out, "version": snap.Version})
}
