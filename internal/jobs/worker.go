package jobs

import (
	"github.com/hibiken/asynq"
)

// Worker consumes jobs from named queues. Like Queue, it degrades to a no-op
// when no broker address is configured.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	enabled bool
}

// NewWorker builds a worker processing the given queues. Queue weights
// follow asynq semantics; equal weights give round-robin consumption.
func NewWorker(redisAddr string, queues map[string]int, concurrency int) *Worker {
	if redisAddr == "" {
		return &Worker{mux: asynq.NewServeMux()}
	}
	if concurrency <= 0 {
		concurrency = 10
	}
	server := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	})
	return &Worker{server: server, mux: asynq.NewServeMux(), enabled: true}
}

// Enabled reports whether a broker connection is configured.
func (w *Worker) Enabled() bool {
	return w.enabled
}

// Handle registers a processor for the named job.
func (w *Worker) Handle(jobName string, handler asynq.Handler) {
	w.mux.Handle(jobName, handler)
}

// HandleFunc registers a processor function for the named job.
func (w *Worker) HandleFunc(jobName string, handler asynq.HandlerFunc) {
	w.mux.HandleFunc(jobName, handler)
}

// Run blocks processing jobs until shutdown; returns immediately when the
// broker is not configured.
func (w *Worker) Run() error {
	if !w.enabled {
		return nil
	}
	return w.server.Run(w.mux)
}

// Shutdown stops the worker.
func (w *Worker) Shutdown() {
	if w.enabled {
		w.server.Shutdown()
	}
}
