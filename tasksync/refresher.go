package tasksync

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Refresher periodically re-runs the list operations so the local store
// tracks the remote service between user actions. Overlapping refreshes are
// not serialized: a slow tick may race a user-triggered fetch, and the later
// write to the store wins.
type Refresher struct {
	svc      *Service
	interval time.Duration
	timeout  time.Duration
	logger   *log.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewRefresher creates a Refresher ticking at the given interval.
func NewRefresher(svc *Service, interval time.Duration, logger *log.Logger) *Refresher {
	if svc == nil {
		panic("tasksync.NewRefresher: service is nil")
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Refresher{
		svc:      svc,
		interval: interval,
		timeout:  interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the refresh loop.
func (r *Refresher) Start() {
	go r.loop()
}

// Stop halts the loop and waits for an in-flight tick to finish.
func (r *Refresher) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *Refresher) loop() {
	defer close(r.doneCh)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.tick()
		case <-r.stopCh:
			return
		}
	}
}

func (r *Refresher) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	tasks, source := r.svc.ListAll(ctx)
	r.logger.WithFields(log.Fields{
		"tasks":  len(tasks),
		"source": source,
	}).Debug("background task refresh")

	if user := r.svc.LastUser(); user != "" {
		r.svc.ListMine(ctx, user)
	}
}
