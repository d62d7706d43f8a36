// Package server exposes the simulator over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rustyeddy/loansim/journal"
	"github.com/rustyeddy/loansim/simulation"
	"github.com/rustyeddy/loansim/telemetry"
)

// Journal is the read side of simulation storage.
type Journal interface {
	Page(ctx context.Context, page, pageSize int) (journal.SimulationPage, error)
	VolumeByDay(ctx context.Context, day time.Time) (journal.Volume, error)
	Ping(ctx context.Context) error
}

// Deps wires a Server. Sink receives one observation per request and may be
// nil.
type Deps struct {
	Simulations *simulation.Service
	Journal     Journal
	Telemetry   telemetry.Aggregator
	Sink        telemetry.Sink
	Log         *zap.Logger
}

// Server is the HTTP surface.
type Server struct {
	sim     *simulation.Service
	journal Journal
	reports telemetry.Aggregator
	sink    telemetry.Sink
	log     *zap.Logger
	router  *gin.Engine
	now     func() time.Time
}

// New builds the router and registers every route.
func New(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		sim:     d.Simulations,
		journal: d.Journal,
		reports: d.Telemetry,
		sink:    d.Sink,
		log:     log,
		router:  gin.New(),
		now:     time.Now,
	}

	// Recovery sits outside request telemetry so a panic is counted as a
	// 500 before it is turned into a response.
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, _ any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": http.StatusText(http.StatusInternalServerError)})
	}))
	s.router.Use(s.requestTelemetry())

	s.router.GET("/health/db", s.handleHealthDB)

	api := s.router.Group("/api")
	{
		api.GET("/simulations", s.handleSimulateQuery)
		api.POST("/simulations", s.handleSimulateBody)
		api.GET("/tables/price", s.handleTable)
		api.GET("/tables/sac", s.handleTable)
		api.GET("/products/find", s.handleFindProduct)
		api.GET("/storage/simulations", s.handleListSimulations)
		api.GET("/storage/volume", s.handleVolume)
		api.GET("/storage/telemetry", s.handleTelemetry)
	}

	return s
}

// Handler returns the root handler for an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestTelemetry assigns the correlation id, then times the request and
// hands the result to the sink. The route template names the observation so
// /api/simulations?principal=1 and ?principal=2 share one counter.
func (s *Server) requestTelemetry() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()

		cid := c.GetHeader(telemetry.CorrelationHeader)
		if cid == "" {
			cid = telemetry.NewCorrelationID()
		}
		c.Header(telemetry.CorrelationHeader, cid)
		c.Request = c.Request.WithContext(telemetry.WithCorrelationID(c.Request.Context(), cid))

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		defer func() {
			rec := recover()
			status := c.Writer.Status()
			if rec != nil {
				status = http.StatusInternalServerError
				s.log.Error("panic while serving request",
					zap.String("route", route),
					zap.String("correlation_id", cid),
					zap.Any("panic", rec),
				)
			}

			elapsed := s.now().Sub(start)
			s.log.Info("http_request",
				zap.String("route", route),
				zap.String("method", c.Request.Method),
				zap.Int("status", status),
				zap.Float64("duration_ms", telemetry.Milliseconds(elapsed)),
				zap.String("correlation_id", cid),
				zap.String("path", c.Request.URL.Path),
			)
			if s.sink != nil {
				s.sink.Enqueue(telemetry.Observation{Name: route, Duration: elapsed, Status: status})
			}

			if rec != nil {
				panic(rec)
			}
		}()

		c.Next()
	}
}
