// Package telemetry exposes scheduler execution counters as Prometheus
// metrics. It is opt-in and pull-only: construct a Collector around a
// scheduler and register it with whatever registry the embedding program
// already serves; no endpoint is started here and nothing is recorded on
// the scheduler's hot paths beyond the counters it keeps anyway.
package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lyra-lang/multicore/scheduler"
)

// A Collector reads a scheduler's execution counters at gather time. It
// implements prometheus.Collector.
type Collector struct {
	sched *scheduler.Scheduler

	workers  *prometheus.Desc
	tasks    *prometheus.Desc
	busy     *prometheus.Desc
	subtasks *prometheus.Desc
	steals   *prometheus.Desc
	userCPU  *prometheus.Desc
}

// NewCollector creates a collector over s. The scheduler must outlive the
// collector's registration.
func NewCollector(s *scheduler.Scheduler) *Collector {
	return &Collector{
		sched: s,
		workers: prometheus.NewDesc(
			"multicore_scheduler_workers",
			"Size of the worker pool.",
			nil, nil),
		tasks: prometheus.NewDesc(
			"multicore_scheduler_tasks_total",
			"Tasks submitted to the scheduler.",
			nil, nil),
		busy: prometheus.NewDesc(
			"multicore_worker_busy_seconds_total",
			"Time a worker spent executing subtask functions.",
			[]string{"worker"}, nil),
		subtasks: prometheus.NewDesc(
			"multicore_worker_subtasks_total",
			"Subtasks (including stolen chunks) a worker executed.",
			[]string{"worker"}, nil),
		steals: prometheus.NewDesc(
			"multicore_worker_steals_total",
			"Subtasks a worker stole from other workers' deques.",
			[]string{"worker"}, nil),
		userCPU: prometheus.NewDesc(
			"multicore_worker_thread_user_seconds_total",
			"User CPU time of the worker's OS thread; only present with profiling enabled.",
			[]string{"worker"}, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.workers
	ch <- c.tasks
	ch <- c.busy
	ch <- c.subtasks
	ch <- c.steals
	ch <- c.userCPU
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.workers, prometheus.GaugeValue, float64(c.sched.NumWorkers()))
	ch <- prometheus.MustNewConstMetric(c.tasks, prometheus.CounterValue, float64(c.sched.TasksSubmitted()))
	for _, ws := range c.sched.Stats() {
		worker := strconv.Itoa(ws.Worker)
		ch <- prometheus.MustNewConstMetric(c.busy, prometheus.CounterValue, ws.Busy.Seconds(), worker)
		ch <- prometheus.MustNewConstMetric(c.subtasks, prometheus.CounterValue, float64(ws.Subtasks), worker)
		ch <- prometheus.MustNewConstMetric(c.steals, prometheus.CounterValue, float64(ws.Steals), worker)
		if ws.Usage != nil {
			ch <- prometheus.MustNewConstMetric(c.userCPU, prometheus.CounterValue, ws.Usage.User.Seconds(), worker)
		}
	}
}
