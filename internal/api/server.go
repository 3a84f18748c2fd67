package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/determined-ai/jobsched/internal/scheduler"
	"github.com/determined-ai/jobsched/pkg/logger"
	"github.com/determined-ai/jobsched/pkg/model"
)

const shutdownTimeout = 10 * time.Second

// Server serves the scheduler over HTTP.
type Server struct {
	echo  *echo.Echo
	sched *scheduler.Scheduler
}

// NewServer returns a server for the given scheduler with every route registered.
func NewServer(sched *scheduler.Scheduler) *Server {
	s := &Server{echo: echo.New(), sched: sched}

	s.echo.Use(middleware.Recover())
	s.echo.Logger = logger.New("api")
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = JSONErrorHandler

	jobs := s.echo.Group("/api/v1/jobs")
	jobs.POST("", s.postJob)
	jobs.GET("/pending", Route(s.getPendingJobs))
	jobs.GET("/:job_id/placement", Route(s.getPlacement))
	s.echo.GET("/api/v1/clusters", Route(s.getClusters))
	s.echo.GET("/api/v1/clusters/:cluster_id", Route(s.getCluster))
	s.echo.GET("/api/v1/scheduler", Route(s.getScheduler))
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Run listens on addr until the context is canceled, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errs := make(chan error, 1)
	go func() {
		log.Infof("accepting API requests on %s", addr)
		errs <- s.echo.Start(addr)
	}()

	select {
	case err := <-errs:
		return errors.Wrap(err, "HTTP server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down HTTP server")
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "HTTP server failed")
	}
	return nil
}

func (s *Server) postJob(c echo.Context) error {
	var job model.Job
	if err := c.Bind(&job); err != nil {
		return AsValidationError("malformed job: %s", err)
	}
	if job.ID == "" {
		job.ID = model.NewJobID()
	}
	if err := s.sched.SubmitJob(job); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, job)
}

func (s *Server) getPendingJobs(c echo.Context) (interface{}, error) {
	return s.sched.Pending(), nil
}

func (s *Server) getPlacement(c echo.Context) (interface{}, error) {
	id := model.JobID(c.Param("job_id"))
	placement, ok := s.sched.Placement(id)
	if !ok {
		return nil, AsErrNotFound("no recent placement for job %s", id)
	}
	return placement, nil
}

func (s *Server) getClusters(c echo.Context) (interface{}, error) {
	return s.sched.Clusters().Summaries(), nil
}

func (s *Server) getCluster(c echo.Context) (interface{}, error) {
	id := model.ClusterID(c.Param("cluster_id"))
	cl, ok := s.sched.Clusters().Cluster(id)
	if !ok {
		return nil, AsErrNotFound("cluster %s not found", id)
	}
	return cl.Summary(), nil
}

func (s *Server) getScheduler(c echo.Context) (interface{}, error) {
	return s.sched.Status(), nil
}
