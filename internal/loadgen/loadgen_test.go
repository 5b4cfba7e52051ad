package loadgen

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/admission/internal/adapters/http/api"
	"github.com/okian/admission/internal/adapters/repository"
	service "github.com/okian/admission/internal/app"
	"github.com/okian/admission/internal/domain/eligibility"
	"github.com/okian/admission/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func result(id string, p float64) repository.JobResult {
	return repository.JobResult{JobID: id, Result: &eligibility.Result{Probability: p}}
}

func failed(id string) repository.JobResult {
	return repository.JobResult{JobID: id, Error: "program not found"}
}

func TestGenerator(t *testing.T) {
	convey.Convey("Given two generators with the same seed", t, func() {
		a, b := newGenerator(42), newGenerator(42)

		convey.Convey("Then they draw the same candidate profiles", func() {
			for range 20 {
				ca, cb := a.candidate(), b.candidate()
				convey.So(ca.TestScore, convey.ShouldEqual, cb.TestScore)
				convey.So(ca.Grades, convey.ShouldResemble, cb.Grades)
				convey.So(ca.ID, convey.ShouldNotEqual, cb.ID)
				convey.So(ca.TestScore, convey.ShouldBeBetweenOrEqual, weakMin, strongMin+strongSpan)
				convey.So(len(ca.Grades), convey.ShouldEqual, len(subjects))
			}
		})

		convey.Convey("Then programs carry a full usable history", func() {
			p := a.program(3)
			convey.So(p.Name, convey.ShouldEqual, "Program 003")
			convey.So(len(p.CutoffHistory.Usable()), convey.ShouldEqual, historyYears)
			convey.So(p.CutoffHistory[0].Year, convey.ShouldEqual, firstHistoryYear)
		})
	})

	convey.Convey("Given seven candidates in batches of three", t, func() {
		stats := &Stats{}
		cfg := Config{Candidates: 7, BatchSize: 3}
		groups := generateCandidates(context.Background(), newGenerator(1), &cfg, stats)

		convey.Convey("Then the last batch holds the remainder", func() {
			convey.So(len(groups), convey.ShouldEqual, 3)
			convey.So(len(groups[0]), convey.ShouldEqual, 3)
			convey.So(len(groups[2]), convey.ShouldEqual, 1)
			convey.So(stats.CandidatesCreated, convey.ShouldEqual, 7)
		})
	})
}

func TestVerifyBatch(t *testing.T) {
	convey.Convey("Given processed batches", t, func() {
		convey.Convey("When results are best first with failures last", func() {
			b := BatchView{ID: "b", Total: 4, Completed: 3, Failed: 1,
				Results: []repository.JobResult{result("1", 0.9), result("2", 0.9), result("3", 0.2), failed("4")}}
			convey.So(verifyBatch(b), convey.ShouldBeNil)
		})

		convey.Convey("When a lower probability precedes a higher one", func() {
			b := BatchView{ID: "b", Total: 2, Completed: 2, Results: []repository.JobResult{result("1", 0.3), result("2", 0.8)}}
			convey.So(errors.Is(verifyBatch(b), ErrVerification), convey.ShouldBeTrue)
		})

		convey.Convey("When a failed job precedes a success", func() {
			b := BatchView{ID: "b", Total: 2, Completed: 1, Failed: 1, Results: []repository.JobResult{failed("1"), result("2", 0.8)}}
			convey.So(errors.Is(verifyBatch(b), ErrVerification), convey.ShouldBeTrue)
		})

		convey.Convey("When counts do not add up", func() {
			b := BatchView{ID: "b", Total: 3, Completed: 1}
			convey.So(errors.Is(verifyBatch(b), ErrVerification), convey.ShouldBeTrue)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a running admission service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		srv := httptest.NewServer(api.NewServer(svc).Router())
		defer srv.Close()
		defer func() { _ = svc.Stop(ctx) }()

		convey.Convey("When a small load run completes", func() {
			out := filepath.Join(t.TempDir(), "out", "candidates.json")
			runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			stats, err := Run(runCtx, Config{
				BaseURL:      srv.URL,
				Programs:     2,
				Candidates:   20,
				BatchSize:    5,
				Workers:      2,
				PollInterval: 10 * time.Millisecond,
				Seed:         7,
				OutputFile:   out,
			})

			convey.Convey("Then every job is evaluated in rank order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.ProgramsSeeded, convey.ShouldEqual, 2)
				convey.So(stats.BatchesAccepted, convey.ShouldEqual, 4)
				convey.So(stats.JobsCompleted, convey.ShouldEqual, 40)
				convey.So(stats.JobsFailed, convey.ShouldEqual, 0)
				convey.So(stats.OrderViolations, convey.ShouldEqual, 0)
			})

			convey.Convey("Then the candidates are saved", func() {
				data, readErr := os.ReadFile(out)
				convey.So(readErr, convey.ShouldBeNil)
				convey.So(len(data), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When the service is unreachable", func() {
			_, err := Run(ctx, Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

			convey.Convey("Then the health check fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
