package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/handrecon/internal/adapters/mq/queue"
	"github.com/okian/handrecon/internal/adapters/mq/worker"
	"github.com/okian/handrecon/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type recordingAnalyzer struct {
	mu   sync.Mutex
	seen []string
	fail map[string]error
}

func (a *recordingAnalyzer) Analyze(_ context.Context, job model.AnalysisJob) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen = append(a.seen, job.ID)
	if err, ok := a.fail[job.ID]; ok {
		return err
	}
	return nil
}

func (a *recordingAnalyzer) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.seen)
}

func TestInMemoryWorker(t *testing.T) {
	Convey("Given a worker reading from a closed queue with jobs", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		for i := range 3 {
			So(q.Enqueue(ctx, model.AnalysisJob{ID: fmt.Sprintf("job-%d", i)}), ShouldBeNil)
		}
		So(q.Close(), ShouldBeNil)

		analyzer := &recordingAnalyzer{fail: map[string]error{"job-1": errors.New("boom")}}
		w := worker.NewInMemoryWorker(q, analyzer, worker.WithName("test-worker"))

		Convey("When it runs", func() {
			w.Run(ctx)

			Convey("Then every job is analyzed in order, failures included", func() {
				So(analyzer.seen, ShouldResemble, []string{"job-0", "job-1", "job-2"})
			})
		})
	})

	Convey("Given a worker blocked on an empty queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, &recordingAnalyzer{})
		go w.Run(ctx)

		Convey("When Shutdown is called", func() {
			sctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			err := w.Shutdown(sctx)

			Convey("Then it stops promptly", func() {
				So(err, ShouldBeNil)
			})
		})
	})

	Convey("Given an analyzer that panics", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue()
		So(q.Enqueue(ctx, model.AnalysisJob{ID: "p"}), ShouldBeNil)
		So(q.Enqueue(ctx, model.AnalysisJob{ID: "q"}), ShouldBeNil)
		_ = q.Close()

		var calls atomic.Int32
		w := worker.NewInMemoryWorker(q, worker.AnalyzerFunc(func(_ context.Context, job model.AnalysisJob) error {
			calls.Add(1)
			if job.ID == "p" {
				panic("bad frame")
			}
			return nil
		}))

		Convey("Then the worker recovers and keeps going", func() {
			w.Run(ctx)
			So(calls.Load(), ShouldEqual, 2)
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a pool of four workers", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		analyzer := &recordingAnalyzer{}
		pool := worker.NewPool(4, q, analyzer)
		So(pool.Size(), ShouldEqual, 4)
		pool.Start(ctx)

		Convey("When jobs are submitted and the pool shuts down", func() {
			for i := range 50 {
				So(q.Enqueue(ctx, model.AnalysisJob{ID: fmt.Sprintf("job-%d", i)}), ShouldBeNil)
			}
			sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			err := pool.Shutdown(sctx)

			Convey("Then the queue is drained before the pool stops", func() {
				So(err, ShouldBeNil)
				So(analyzer.count(), ShouldEqual, 50)
				So(q.IsClosed(), ShouldBeTrue)
			})
		})
	})

	Convey("Given a pool whose analyzer never returns in time", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue()
		release := make(chan struct{})
		defer close(release)
		pool := worker.NewPool(1, q, worker.AnalyzerFunc(func(context.Context, model.AnalysisJob) error {
			<-release
			return nil
		}))
		pool.Start(ctx)
		So(q.Enqueue(ctx, model.AnalysisJob{ID: "slow"}), ShouldBeNil)

		Convey("When shutdown runs with a short deadline", func() {
			sctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			err := pool.Shutdown(sctx)

			Convey("Then the deadline error is returned", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})
		})
	})

	Convey("Given a non-positive worker count", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), &recordingAnalyzer{})
		So(pool.Size(), ShouldBeGreaterThan, 0)
	})
}
