package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/admission/internal/adapters/mq/queue"
	"github.com/okian/admission/internal/adapters/mq/worker"
	"github.com/okian/admission/internal/adapters/repository"
	"github.com/okian/admission/internal/domain/eligibility"
	"github.com/okian/admission/internal/domain/model"
	logging "github.com/okian/admission/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	jobs      chan queue.Job
	closeOnce sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 64)}
}

func (mq *mockQueue) Dequeue(_ context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	mq.closeOnce.Do(func() { close(mq.jobs) })
	return nil
}

type failingSink struct{}

func (failingSink) RecordResult(context.Context, repository.JobResult) error {
	return errors.New("sink down")
}

type brokenEvaluator struct{}

func (brokenEvaluator) Evaluate(model.Candidate, model.Program) (eligibility.Result, error) {
	return eligibility.Result{}, model.Invalid("evaluate", "utme", "must be finite")
}

const programID = "2b7f8a3e-0c1d-4e5f-8a9b-1c2d3e4f5a6b"

func seedPrograms() *repository.MemoryProgramStore {
	store := repository.NewMemoryProgramStore()
	_ = store.PutProgram(context.Background(), model.Program{
		ID:          programID,
		Name:        "Medicine",
		Institution: "UNILAG",
		CutoffHistory: model.Series{
			{Year: 2021, Cutoff: 70},
			{Year: 2022, Cutoff: 72},
			{Year: 2023, Cutoff: 75},
		},
	})
	return store
}

func job(batchID string, i int, score float64, program string) queue.Job {
	return queue.Job{
		BatchID: batchID,
		JobID:   fmt.Sprintf("job-%03d", i),
		Candidate: model.Candidate{
			ID:        fmt.Sprintf("cand-%03d", i),
			TestScore: score,
			Grades:    model.GradeRecord{"Maths": "A1", "English": "B2", "Biology": "B3"},
		},
		ProgramID: program,
		Submitted: time.Now(),
	}
}

func waitDone(results *repository.MemoryResultStore, batchID string) repository.Batch {
	deadline := time.Now().Add(2 * time.Second)
	for {
		b, err := results.Batch(context.Background(), batchID, 100)
		if (err == nil && b.Done()) || time.Now().After(deadline) {
			return b
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker fed by a queue", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		programs := seedPrograms()
		results := repository.NewMemoryResultStore()
		evaluator := eligibility.New(nil, nil)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		convey.Convey("When creating a worker with options", func() {
			w := worker.NewInMemoryWorker(q, programs, evaluator, results,
				worker.WithName("test-worker"),
				worker.WithLogger(logging.Get()),
			)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When processing jobs", func() {
			convey.So(results.CreateBatch(ctx, "b1", 3), convey.ShouldBeNil)
			w := worker.NewInMemoryWorker(q, programs, evaluator, results)
			go w.Run(ctx)

			q.jobs <- job("b1", 1, 300, programID)
			q.jobs <- job("b1", 2, 200, programID)
			q.jobs <- job("b1", 3, 250, "unknown-program")

			b := waitDone(results, "b1")

			convey.Convey("Then successful jobs carry results", func() {
				convey.So(b.Completed, convey.ShouldEqual, 2)
				convey.So(b.Results[0].JobID, convey.ShouldEqual, "job-001")
				convey.So(b.Results[0].Result, convey.ShouldNotBeNil)
				convey.So(b.Results[0].Result.Probability, convey.ShouldBeGreaterThan, b.Results[1].Result.Probability)
				convey.So(b.Results[0].CandidateID, convey.ShouldEqual, "cand-001")
			})

			convey.Convey("Then an unknown program is recorded as a failure", func() {
				convey.So(b.Failed, convey.ShouldEqual, 1)
				last := b.Results[len(b.Results)-1]
				convey.So(last.Failed(), convey.ShouldBeTrue)
				convey.So(last.Error, convey.ShouldContainSubstring, "unknown-program")
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
				defer shutdownCancel()

				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the evaluator rejects the candidate", func() {
			convey.So(results.CreateBatch(ctx, "b2", 1), convey.ShouldBeNil)
			w := worker.NewInMemoryWorker(q, programs, brokenEvaluator{}, results)
			go w.Run(ctx)

			q.jobs <- job("b2", 1, 300, programID)
			b := waitDone(results, "b2")

			convey.Convey("Then the job is marked failed", func() {
				convey.So(b.Failed, convey.ShouldEqual, 1)
				convey.So(b.Results[0].Error, convey.ShouldContainSubstring, "must be finite")
			})
		})

		convey.Convey("When the sink fails", func() {
			w := worker.NewInMemoryWorker(q, programs, evaluator, failingSink{})
			go w.Run(ctx)
			q.jobs <- job("b3", 1, 300, programID)
			_ = q.Close()

			convey.Convey("Then the worker keeps running until the queue drains", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
				}
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When context is cancelled", func() {
			w := worker.NewInMemoryWorker(q, programs, evaluator, results)
			go w.Run(ctx)
			cancel()

			convey.Convey("Then the worker stops", func() {
				select {
				case <-w.Done():
					convey.So(true, convey.ShouldBeTrue)
				case <-time.After(time.Second):
					convey.So("worker still running", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		programs := seedPrograms()
		results := repository.NewMemoryResultStore()
		evaluator := eligibility.New(nil, nil)

		convey.Convey("When created with a non-positive count", func() {
			pool := worker.NewPool(0, q, programs, evaluator, results)

			convey.Convey("Then it sizes itself from the CPU count", func() {
				convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When processing a batch concurrently", func() {
			const jobs = 50
			ctx := context.Background()
			convey.So(results.CreateBatch(ctx, "batch", jobs), convey.ShouldBeNil)

			pool := worker.NewPool(4, q, programs, evaluator, results)
			pool.Start(ctx)
			for i := 0; i < jobs; i++ {
				q.jobs <- job("batch", i, float64(150+i*4), programID)
			}

			shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			err := pool.Shutdown(shutdownCtx)

			convey.Convey("Then shutdown drains every queued job", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pool.Processed(), convey.ShouldEqual, jobs)

				b, err := results.Batch(ctx, "batch", jobs)
				convey.So(err, convey.ShouldBeNil)
				convey.So(b.Done(), convey.ShouldBeTrue)
				convey.So(b.Completed, convey.ShouldEqual, jobs)
				for i := 1; i < len(b.Results); i++ {
					convey.So(b.Results[i-1].Result.Probability, convey.ShouldBeGreaterThanOrEqualTo, b.Results[i].Result.Probability-1e-9)
				}
			})
		})
	})
}
