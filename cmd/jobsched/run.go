package main

import (
	"context"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/determined-ai/jobsched/internal/api"
	"github.com/determined-ai/jobsched/internal/cluster"
	"github.com/determined-ai/jobsched/internal/config"
	"github.com/determined-ai/jobsched/internal/scheduler"
	"github.com/determined-ai/jobsched/pkg/model"
	"github.com/determined-ai/jobsched/pkg/syncx/errgroupx"
)

// run schedules jobs until the context is canceled or the process is interrupted.
func run(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched, err := newScheduler(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sched.Close(); err != nil {
			log.WithError(err).Error("error closing scheduler")
		}
	}()

	if cfg.JobsFile != "" {
		jobs, err := config.LoadJobs(cfg.JobsFile)
		if err != nil {
			return err
		}
		if err := submitJobs(sched, jobs); err != nil {
			return errors.Wrapf(err, "submitting jobs from %s", cfg.JobsFile)
		}
		log.Infof("submitted %d jobs from %s", len(jobs), cfg.JobsFile)
	}

	wg := errgroupx.WithContext(ctx)

	log.Trace("starting scheduling loop")
	wg.Go(func(ctx context.Context) error {
		if err := sched.Run(ctx); err != nil {
			return errors.Wrap(err, "scheduling loop crashed")
		}
		return nil
	})

	if cfg.HTTP.Port != 0 {
		srv := api.NewServer(sched)
		addr := net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port))
		log.Trace("starting API server")
		wg.Go(func(ctx context.Context) error {
			return srv.Run(ctx, addr)
		})
	}

	err = wg.Wait()
	log.Info("shutting down")
	return err
}

// newScheduler builds the clusters and the scheduler described by the configuration.
func newScheduler(cfg *config.Config) (*scheduler.Scheduler, error) {
	m := cluster.NewManager(cfg.Scheduler.FittingPolicy)
	for _, cc := range cfg.Clusters {
		c, err := cluster.New(model.ClusterID(cc.ID), cc.Capacity(),
			cluster.WithMaxConcurrentJobs(cc.MaxConcurrentJobs))
		if err != nil {
			m.Close()
			return nil, err
		}
		if err := m.AddCluster(c); err != nil {
			c.Close()
			m.Close()
			return nil, err
		}
	}

	sched, err := scheduler.New(cfg.Scheduler, m)
	if err != nil {
		m.Close()
		return nil, err
	}
	return sched, nil
}

// submitJobs submits every job and reports all of the rejected ones.
func submitJobs(sched *scheduler.Scheduler, jobs []model.Job) error {
	var result *multierror.Error
	for _, job := range jobs {
		if err := sched.SubmitJob(job); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
