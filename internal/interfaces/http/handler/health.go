package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readyTimeout = 2 * time.Second

// HealthChecker 依赖健康检查
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// WritableChecker 存储可写检查
type WritableChecker interface {
	Writable() error
}

type probe struct {
	name string
	run  func(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version string
	probes  []probe
	// disabled 未启用的依赖，就绪结果里标记为 disabled
	disabled []string
}

// NewHealthHandler redis 未启用时传 nil
func NewHealthHandler(version string, redis HealthChecker, storage WritableChecker) *HealthHandler {
	h := &HealthHandler{version: version}
	if redis != nil {
		h.probes = append(h.probes, probe{name: "redis", run: redis.HealthCheck})
	} else {
		h.disabled = append(h.disabled, "redis")
	}
	if storage != nil {
		h.probes = append(h.probes, probe{name: "storage", run: func(context.Context) error { return storage.Writable() }})
	}
	return h
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// ProbeResult 单个依赖的就绪结果
type ProbeResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

// ReadyResponse 就绪检查响应
type ReadyResponse struct {
	Status string                  `json:"status"`
	Checks map[string]*ProbeResult `json:"checks,omitempty"`
}

// Health 进程在线即返回 ok，附带版本
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Ready 逐个探测依赖，任一失败返回 503
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} ReadyResponse
// @Failure 503 {object} ReadyResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	resp := ReadyResponse{Status: "ok", Checks: make(map[string]*ProbeResult, len(h.probes)+len(h.disabled))}
	for _, name := range h.disabled {
		resp.Checks[name] = &ProbeResult{Status: "disabled"}
	}
	for _, p := range h.probes {
		start := time.Now()
		err := p.run(ctx)
		res := &ProbeResult{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
		if err != nil {
			res.Status, res.Error = "error", err.Error()
			resp.Status = "not_ready"
		}
		resp.Checks[p.name] = res
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// Live 存活检查
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
