package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/admission/internal/adapters/repository"
	service "github.com/okian/admission/internal/app"
	"github.com/okian/admission/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const lawID = "6fa459ea-ee8a-3ca4-894e-db77e160355e"

func law() model.Program {
	return model.Program{
		ID:          lawID,
		Name:        "Law",
		Institution: "University of Ibadan",
		CutoffHistory: model.Series{
			{Year: 2022, Cutoff: 68},
			{Year: 2023, Cutoff: 68},
			{Year: 2024, Cutoff: 69},
		},
	}
}

func candidates(n int) []model.Candidate {
	out := make([]model.Candidate, n)
	for i := range out {
		c := candidate(float64(160 + i*20))
		c.ID = fmt.Sprintf("cand-%02d", i)
		out[i] = c
	}
	return out
}

func waitForBatch(ctx context.Context, svc *service.Service, id string, limit int) repository.Batch {
	deadline := time.Now().Add(5 * time.Second)
	for {
		b, err := svc.BatchResults(ctx, id, limit)
		So(err, ShouldBeNil)
		if b.Done() || time.Now().After(deadline) {
			return b
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a running service with two programs", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(100),
			service.WithDedupeSize(50),
			service.WithMaxBatchSize(40),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		_, err := svc.PutProgram(ctx, medicine())
		So(err, ShouldBeNil)
		_, err = svc.PutProgram(ctx, law())
		So(err, ShouldBeNil)

		Convey("When a batch is submitted", func() {
			receipt, err := svc.SubmitBatch(ctx, service.BatchRequest{
				BatchID:    "batch-1",
				Candidates: candidates(8),
				ProgramIDs: []string{medicineID, lawID},
			})
			So(err, ShouldBeNil)

			Convey("Then it is accepted with one job per pair", func() {
				So(receipt.Status, ShouldEqual, service.BatchAccepted)
				So(receipt.BatchID, ShouldEqual, "batch-1")
				So(receipt.Jobs, ShouldEqual, 16)
				So(receipt.Duplicate, ShouldBeFalse)
			})

			Convey("Then every job completes and results are best first", func() {
				b := waitForBatch(ctx, svc, "batch-1", 100)
				So(b.Done(), ShouldBeTrue)
				So(b.Completed, ShouldEqual, 16)
				So(b.Failed, ShouldEqual, 0)
				So(len(b.Results), ShouldEqual, 16)
				for i := 1; i < len(b.Results); i++ {
					So(b.Results[i-1].Result.Probability, ShouldBeGreaterThanOrEqualTo, b.Results[i].Result.Probability-1e-9)
				}
				So(b.Results[0].CandidateID, ShouldEqual, "cand-07")
			})

			Convey("Then a limit trims the results but not the counts", func() {
				waitForBatch(ctx, svc, "batch-1", 100)
				b, err := svc.BatchResults(ctx, "batch-1", 3)
				So(err, ShouldBeNil)
				So(len(b.Results), ShouldEqual, 3)
				So(b.Completed, ShouldEqual, 16)
			})

			Convey("And when the same batch ID is submitted again", func() {
				again, err := svc.SubmitBatch(ctx, service.BatchRequest{
					BatchID:    "batch-1",
					Candidates: candidates(1),
					ProgramIDs: []string{lawID},
				})

				Convey("Then it is acknowledged as a duplicate", func() {
					So(err, ShouldBeNil)
					So(again.Duplicate, ShouldBeTrue)
					So(again.Status, ShouldEqual, service.BatchDuplicate)
					So(svc.GetStats(ctx).Batches, ShouldEqual, 1)
				})
			})
		})

		Convey("When a batch omits its ID and names an unknown program", func() {
			receipt, err := svc.SubmitBatch(ctx, service.BatchRequest{
				Candidates: []model.Candidate{{TestScore: 250, Grades: model.GradeRecord{"Maths": "B3"}}},
				ProgramIDs: []string{lawID, "11111111-2222-3333-4444-555555555555"},
			})
			So(err, ShouldBeNil)

			Convey("Then an ID is generated and the unknown program job fails", func() {
				So(len(receipt.BatchID), ShouldEqual, 36)
				b := waitForBatch(ctx, svc, receipt.BatchID, 10)
				So(b.Completed, ShouldEqual, 1)
				So(b.Failed, ShouldEqual, 1)
				So(b.Results[1].Error, ShouldContainSubstring, "not found")
				So(b.Results[0].CandidateID, ShouldNotBeEmpty)
			})
		})

		Convey("When a batch is empty or too large", func() {
			_, errEmpty := svc.SubmitBatch(ctx, service.BatchRequest{ProgramIDs: []string{lawID}})
			_, errLarge := svc.SubmitBatch(ctx, service.BatchRequest{
				Candidates: candidates(21),
				ProgramIDs: []string{medicineID, lawID},
			})

			Convey("Then both are invalid input", func() {
				So(errors.Is(errEmpty, model.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(errLarge, model.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When reading an unknown batch or with a bad limit", func() {
			_, errMissing := svc.BatchResults(ctx, "nope", 10)
			_, errLimit := svc.BatchResults(ctx, "nope", 0)

			Convey("Then the errors are typed", func() {
				So(errors.Is(errMissing, service.ErrNotFound), ShouldBeTrue)
				So(errors.Is(errLimit, model.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

func TestServiceBackpressure(t *testing.T) {
	Convey("Given a service whose queue is smaller than a batch", t, func() {
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithQueueSize(4),
			service.WithMaxBatchSize(100),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()
		_, err := svc.PutProgram(ctx, law())
		So(err, ShouldBeNil)

		req := service.BatchRequest{BatchID: "too-big", Candidates: candidates(5), ProgramIDs: []string{lawID}}

		Convey("When the batch is submitted", func() {
			_, err := svc.SubmitBatch(ctx, req)

			Convey("Then it is refused whole and the ID is released", func() {
				So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)
				_, err := svc.BatchResults(ctx, "too-big", 10)
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)

				_, retry := svc.SubmitBatch(ctx, req)
				So(errors.Is(retry, service.ErrBackpressure), ShouldBeTrue)
			})
		})
	})
}
