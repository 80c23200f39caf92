package gateway

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/fanout"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/logger"
	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/pkg/query"
)

// handleAsync runs one fan-out batch across all configured collections.
func (s *Server) handleAsync(c *fiber.Ctx) error {
	var req AsyncRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Detail: "invalid request body: " + err.Error()})
	}
	if req.QueryText == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Detail: "query_text is required"})
	}
	if req.Alpha < 0 || req.Alpha > 1 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Detail: "alpha must be in [0,1]"})
	}

	q := query.New(req.QueryText, req.Limit, req.Alpha, req.Vector)
	if err := q.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Detail: err.Error()})
	}

	start := time.Now()
	batch, err := s.coord.Execute(c.Context(), q, s.targets, s.deadline)
	if err != nil {
		logger.L().Error("batch could not start", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Detail: err.Error()})
	}

	resp := AsyncResponse{
		BatchID:               batch.ID,
		QueryText:             q.Text,
		Limit:                 q.Limit,
		Alpha:                 q.Alpha,
		Classification:        batch.Classification,
		Degraded:              batch.Degraded(),
		TotalCollections:      len(batch.SubOutcomes),
		SuccessfulCollections: batch.OkCount,
		FailedCollections:     len(batch.SubOutcomes) - batch.OkCount,
		Merged:                batch.Merged,
		TotalTimeMs:           float64(time.Since(start).Microseconds()) / 1000,
	}
	for _, o := range batch.SubOutcomes {
		resp.Results = append(resp.Results, ShardResult{
			Collection: o.Shard,
			Status:     o.Status,
			Error:      o.Err,
			ElapsedMs:  float64(o.Elapsed.Microseconds()) / 1000,
		})
	}
	return c.JSON(resp)
}

// handlePassthrough forwards a single raw GraphQL query to the backend.
func (s *Server) handlePassthrough(c *fiber.Ctx) error {
	var req GraphQLRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Detail: "invalid request body: " + err.Error()})
	}
	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Detail: "query is required"})
	}

	res := s.single.Send(c.Context(), fanout.Request{Body: []byte(req.Query)}, s.deadline)
	switch res.Status {
	case fanout.StatusOk:
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(res.Payload)
	case fanout.StatusTimedOut:
		return c.Status(fiber.StatusGatewayTimeout).JSON(ErrorResponse{Detail: res.Err})
	default:
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Detail: res.Err})
	}
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"collections": len(s.targets),
	})
}

// handleSummary exposes a live snapshot of the recorded metrics.
func (s *Server) handleSummary(c *fiber.Ctx) error {
	if s.recorder == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Detail: "metrics recording disabled"})
	}
	return c.JSON(s.recorder.Summarize())
}
