package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/loansim/amortization"
	"github.com/rustyeddy/loansim/simulation"
	"github.com/rustyeddy/loansim/telemetry"
)

const defaultPageSize = 200

type simulateRequest struct {
	Principal *decimal.Decimal `json:"principal"`
	Term      *int             `json:"term"`
}

func (s *Server) handleSimulateQuery(c *gin.Context) {
	principal, err := decimalParam(c, "principal")
	if err != nil {
		s.fail(c, err)
		return
	}
	term, err := intParam(c, "term", nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.simulate(c, principal, term)
}

func (s *Server) handleSimulateBody(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, &simulation.ValidationError{Field: "body", Reason: err.Error()})
		return
	}
	if req.Principal == nil {
		s.fail(c, &simulation.ValidationError{Field: "principal", Reason: "is required"})
		return
	}
	if req.Term == nil {
		s.fail(c, &simulation.ValidationError{Field: "term", Reason: "is required"})
		return
	}
	s.simulate(c, *req.Principal, *req.Term)
}

func (s *Server) simulate(c *gin.Context, principal decimal.Decimal, term int) {
	env, err := s.sim.Simulate(c.Request.Context(), principal, term)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

func (s *Server) handleTable(c *gin.Context) {
	method := amortization.MethodPRICE
	if strings.HasSuffix(c.FullPath(), "/sac") {
		method = amortization.MethodSAC
	}

	principal, err := decimalParam(c, "principal")
	if err != nil {
		s.fail(c, err)
		return
	}
	term, err := intParam(c, "term", nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	rate, err := decimalParam(c, "rate")
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := simulation.Validate(principal, term); err != nil {
		s.fail(c, err)
		return
	}
	if rate.IsNegative() {
		s.fail(c, &simulation.ValidationError{Field: "rate", Reason: "must not be negative"})
		return
	}

	sched, err := amortization.Compute(method, principal, term, rate)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sched)
}

func (s *Server) handleFindProduct(c *gin.Context) {
	principal, err := decimalParam(c, "principal")
	if err != nil {
		s.fail(c, err)
		return
	}
	term, err := intParam(c, "term", nil)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := simulation.Validate(principal, term); err != nil {
		s.fail(c, err)
		return
	}

	prod, err := s.sim.FindProduct(c.Request.Context(), principal, term)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prod)
}

func (s *Server) handleListSimulations(c *gin.Context) {
	one := 1
	page, err := intParam(c, "page", &one)
	if err != nil {
		s.fail(c, err)
		return
	}
	size := defaultPageSize
	pageSize, err := intParam(c, "pageSize", &size)
	if err != nil {
		s.fail(c, err)
		return
	}

	out, err := s.journal.Page(c.Request.Context(), page, pageSize)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleVolume(c *gin.Context) {
	day, err := s.dateParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	out, err := s.journal.VolumeByDay(c.Request.Context(), day)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleTelemetry(c *gin.Context) {
	day, err := s.dateParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	rep, err := s.reports.Report(c.Request.Context(), day)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) handleHealthDB(c *gin.Context) {
	if err := s.journal.Ping(c.Request.Context()); err != nil {
		s.log.Warn("database health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"db": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"db": "ok"})
}

// fail maps err onto a status code and writes {"error": ...}.
func (s *Server) fail(c *gin.Context, err error) {
	var (
		verr *simulation.ValidationError
		nf   *simulation.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed",
			zap.String("route", c.FullPath()),
			zap.String("correlation_id", telemetry.CorrelationID(c.Request.Context())),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": http.StatusText(http.StatusInternalServerError)})
	}
}

func decimalParam(c *gin.Context, name string) (decimal.Decimal, error) {
	raw := c.Query(name)
	if raw == "" {
		return decimal.Zero, &simulation.ValidationError{Field: name, Reason: "is required"}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &simulation.ValidationError{Field: name, Reason: "is not a number"}
	}
	return d, nil
}

// intParam reads an integer query parameter; def, when non-nil, is used if
// the parameter is absent.
func intParam(c *gin.Context, name string, def *int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		if def != nil {
			return *def, nil
		}
		return 0, &simulation.ValidationError{Field: name, Reason: "is required"}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &simulation.ValidationError{Field: name, Reason: "is not an integer"}
	}
	return n, nil
}

// dateParam reads ?date=YYYY-MM-DD, defaulting to the current UTC day.
func (s *Server) dateParam(c *gin.Context) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return s.now().UTC(), nil
	}
	day, err := time.Parse(telemetry.DateLayout, raw)
	if err != nil {
		return time.Time{}, &simulation.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	return day, nil
}
