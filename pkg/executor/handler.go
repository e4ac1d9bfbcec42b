package executor

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/dualexec/executor/pkg/logger"
	"github.com/dualexec/executor/pkg/metrics"
	"github.com/dualexec/executor/pkg/models"
)

// BuyResponse is returned for every trade that reached an outcome
type BuyResponse struct {
	TxHash       string               `json:"tx_hash"`
	Status       models.TxStatus      `json:"status"`
	Chain        string               `json:"chain"`
	Mode         string               `json:"mode"`
	Transactions []models.Transaction `json:"transactions"`
	BundleID     string               `json:"bundle_id,omitempty"`
	MinOutput    string               `json:"min_output"`
}

func newBuyResponse(res *models.SubmissionResult) BuyResponse {
	primary := res.Primary()
	resp := BuyResponse{
		TxHash:       primary.ID,
		Status:       primary.Status,
		Chain:        res.Chain,
		Mode:         res.Mode,
		Transactions: res.Transactions,
		MinOutput:    "0",
	}
	if res.Bundle != nil {
		resp.BundleID = res.Bundle.ID
	}
	if res.MinOutput != nil {
		resp.MinOutput = res.MinOutput.String()
	}
	return resp
}

// StatusCode maps an execution error to an HTTP status
func StatusCode(err error) int {
	var quoteErr *models.QuoteError
	switch {
	case models.IsCallerFault(err):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.As(err, &quoteErr):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrPollTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// HTTPConfig configures the API engine
type HTTPConfig struct {
	RateLimit float64
	RateBurst int
}

// NewHTTPHandler builds the gin engine serving the buy endpoints
func NewHTTPHandler(service *Service, cfg HTTPConfig, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsConf := cors.DefaultConfig()
	corsConf.AllowAllOrigins = true
	r.Use(cors.New(corsConf))

	r.Use(metricsMiddleware())
	if cfg.RateLimit > 0 {
		r.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)))
	}

	h := &handler{service: service, logger: log}
	r.POST("/buy", h.buyEVM)

	v1 := r.Group("/api/v1")
	v1.POST("/evm/buy", h.buyEVM)
	v1.POST("/solana/buy", h.buySolana)

	return r
}

type handler struct {
	service *Service
	logger  logger.Logger
}

func (h *handler) buyEVM(c *gin.Context) {
	var req BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	h.respond(c, h.service.EVMChain())(h.service.BuyEVM(c.Request.Context(), req))
}

func (h *handler) buySolana(c *gin.Context) {
	var req BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	h.respond(c, h.service.SolanaChain())(h.service.BuySolana(c.Request.Context(), req))
}

func (h *handler) respond(c *gin.Context, chain string) func(*models.SubmissionResult, error) {
	return func(res *models.SubmissionResult, err error) {
		if err != nil {
			code := StatusCode(err)
			if code >= http.StatusInternalServerError {
				h.logger.ErrorWithChain(chain, "Buy request failed with %d: %v", code, err)
			}
			c.String(code, err.Error())
			return
		}
		c.JSON(http.StatusOK, newBuyResponse(res))
	}
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		code := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, path, code).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func rateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			metrics.RateLimited.Inc()
			c.String(http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
