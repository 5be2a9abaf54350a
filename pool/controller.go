package pool

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/videostream/errors"
	"github.com/c360/videostream/rtm"
)

// Job message actions on the pool channel.
const (
	actionStartJob  = "job/start"
	actionStopJob   = "job/stop"
	actionHeartbeat = "pool/heartbeat"
)

// defaultHeartbeatInterval paces capacity advertisements.
const defaultHeartbeatInterval = 5 * time.Second

// Messenger is the slice of the messaging client the controller needs.
// *rtm.Client satisfies it.
type Messenger interface {
	Subscribe(channel string, callbacks rtm.SubscriptionCallbacks, opts *rtm.SubscribeOptions) error
	Unsubscribe(channel string) error
	Publish(channel string, message any) error
}

// JobController manages the jobs running on this worker.
type JobController interface {
	AddJob(job json.RawMessage) error
	RemoveJob(job json.RawMessage) error
	ListJobs() []json.RawMessage
}

// jobMessage is the wire shape of start/stop commands.
type jobMessage struct {
	To     string          `json:"to"`
	Action string          `json:"action"`
	Job    json.RawMessage `json:"job,omitempty"`
}

// heartbeatMessage advertises worker identity and remaining capacity.
type heartbeatMessage struct {
	From     string            `json:"from"`
	Action   string            `json:"action"`
	JobType  string            `json:"job_type"`
	Capacity int               `json:"capacity"`
	Jobs     []json.RawMessage `json:"jobs,omitempty"`
}

// Controller runs one worker's membership in a job pool.
type Controller struct {
	pool        string
	jobType     string
	maxCapacity int
	client      Messenger
	jobs        JobController
	logger      *slog.Logger
	interval    time.Duration
	instanceID  string

	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// WithHeartbeatInterval overrides the heartbeat pacing.
func WithHeartbeatInterval(d time.Duration) ControllerOption {
	return func(c *Controller) { c.interval = d }
}

// NewController creates a pool controller for one worker.
func NewController(client Messenger, pool, jobType string, maxCapacity int,
	jobs JobController, opts ...ControllerOption) *Controller {
	c := &Controller{
		pool:        pool,
		jobType:     jobType,
		maxCapacity: maxCapacity,
		client:      client,
		jobs:        jobs,
		logger:      slog.Default(),
		interval:    defaultHeartbeatInterval,
		instanceID:  uuid.NewString(),
		stopped:     make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InstanceID is this worker's unique pool identity.
func (c *Controller) InstanceID() string { return c.instanceID }

// Start subscribes to the pool channel and begins heartbeating.
func (c *Controller) Start() error {
	err := c.client.Subscribe(c.pool, rtm.SubscriptionCallbacks{
		OnData: c.onData,
		OnError: func(err error) {
			c.logger.Error("pool channel failed", "pool", c.pool, "error", err)
		},
	}, nil)
	if err != nil {
		return errors.WrapTransient(err, "pool", "Start", "subscribe pool channel")
	}

	go c.heartbeatLoop()
	c.logger.Info("joined pool", "pool", c.pool, "job_type", c.jobType, "instance", c.instanceID)
	return nil
}

// Shutdown leaves the pool: the heartbeat stops and the pool channel is
// unsubscribed. Running jobs are not touched.
func (c *Controller) Shutdown() error {
	c.stopOnce.Do(func() { close(c.stopped) })
	<-c.done

	if err := c.client.Unsubscribe(c.pool); err != nil {
		return errors.WrapTransient(err, "pool", "Shutdown", "unsubscribe pool channel")
	}
	c.logger.Info("left pool", "pool", c.pool)
	return nil
}

func (c *Controller) heartbeatLoop() {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sendHeartbeat()
	for {
		select {
		case <-ticker.C:
			c.sendHeartbeat()
		case <-c.stopped:
			return
		}
	}
}

func (c *Controller) sendHeartbeat() {
	jobs := c.jobs.ListJobs()
	hb := heartbeatMessage{
		From:     c.instanceID,
		Action:   actionHeartbeat,
		JobType:  c.jobType,
		Capacity: c.maxCapacity - len(jobs),
		Jobs:     jobs,
	}
	if err := c.client.Publish(c.pool, hb); err != nil {
		c.logger.Error("heartbeat publish failed", "pool", c.pool, "error", err)
	}
}

func (c *Controller) onData(msg json.RawMessage) {
	var job jobMessage
	if err := json.Unmarshal(msg, &job); err != nil {
		c.logger.Warn("ignoring malformed pool message", "error", err)
		return
	}
	if job.To != c.jobType {
		// addressed to another worker type
		return
	}

	switch job.Action {
	case actionStartJob:
		if c.maxCapacity-len(c.jobs.ListJobs()) <= 0 {
			c.logger.Warn("rejecting job, no capacity", "pool", c.pool)
			return
		}
		if err := c.jobs.AddJob(job.Job); err != nil {
			c.logger.Error("job start failed", "error", err)
			return
		}
		c.logger.Info("job started", "pool", c.pool)
	case actionStopJob:
		if err := c.jobs.RemoveJob(job.Job); err != nil {
			c.logger.Error("job stop failed", "error", err)
			return
		}
		c.logger.Info("job stopped", "pool", c.pool)
	case actionHeartbeat:
		// peers' heartbeats are not our concern
	default:
		c.logger.Warn("ignoring unknown pool action", "action", job.Action)
	}
}
