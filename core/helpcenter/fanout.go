package helpcenter

import (
	"sync"
	"sync/atomic"

	"log/slog"

	"helpcenterbot/core/logger"
)

// Fanout delivers one message to many recipients with bounded parallelism.
// A failed recipient is logged and skipped; the remaining deliveries still
// run. Ordering across recipients is not guaranteed.
type Fanout struct {
	workers int
}

// NewFanout bounds concurrent deliveries to the given worker count.
func NewFanout(workers int) *Fanout {
	if workers <= 0 {
		workers = 4
	}
	return &Fanout{workers: workers}
}

// Send invokes deliver for every recipient and returns the count that
// succeeded. Callers report this count; full delivery is never assumed.
func (f *Fanout) Send(recipients []int64, deliver func(recipient int64) error) int {
	if len(recipients) == 0 || deliver == nil {
		return 0
	}

	var (
		delivered atomic.Int64
		failed    atomic.Int64
		wg        sync.WaitGroup
		sem       = make(chan struct{}, f.workers)
	)

	for _, recipient := range recipients {
		wg.Add(1)
		sem <- struct{}{}
		go func(id int64) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := deliver(id); err != nil {
				failed.Add(1)
				logger.FAN.Warn("delivery failed",
					slog.String("event", "fanout.deliver"),
					slog.Int64("recipient", id),
					slog.String("err", err.Error()),
				)
				return
			}
			delivered.Add(1)
		}(recipient)
	}
	wg.Wait()

	if failed.Load() > 0 {
		logger.FAN.Info("fanout finished with failures",
			slog.String("event", "fanout.summary"),
			slog.Int("recipients", len(recipients)),
			slog.Int64("delivered", delivered.Load()),
			slog.Int64("failed", failed.Load()),
		)
	}
	return int(delivered.Load())
}
