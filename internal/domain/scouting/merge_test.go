package scouting_test

import (
	"errors"
	"testing"
	"time"

	"github.com/frc-emotion/nautilus-backend/internal/domain/model"
	"github.com/frc-emotion/nautilus-backend/internal/domain/scouting"
	. "github.com/smartystreets/goconvey/convey"
)

func report(id, team, match string, offset time.Duration, numeric map[string]float64, boolean map[string]bool) model.ScoutingReport {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return model.ScoutingReport{
		ID:          id,
		TeamID:      team,
		MatchID:     match,
		ScoutID:     "scout-" + id,
		Numeric:     numeric,
		Boolean:     boolean,
		SubmittedAt: base.Add(offset),
	}
}

func TestMerge_Numeric(t *testing.T) {
	Convey("Given three reports with one outlier scout", t, func() {
		cfg := scouting.Config{DisputeThreshold: 0.5, NumericTolerance: 1e-9}
		now := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
		reports := []model.ScoutingReport{
			report("r1", "frc2658", "qm12", 0, map[string]float64{"auto_pieces": 10}, nil),
			report("r2", "frc2658", "qm12", time.Minute, map[string]float64{"auto_pieces": 10}, nil),
			report("r3", "frc2658", "qm12", 2*time.Minute, map[string]float64{"auto_pieces": 50}, nil),
		}

		Convey("When merging", func() {
			agg, err := scouting.Merge(reports, cfg, now)

			Convey("Then the median suppresses the outlier", func() {
				So(err, ShouldBeNil)
				So(agg.Numeric["auto_pieces"], ShouldEqual, 10)
			})

			Convey("And two of three scouts agree, which is not a dispute", func() {
				So(agg.Agreement["auto_pieces"], ShouldAlmostEqual, 2.0/3.0)
				So(agg.Disputed, ShouldBeFalse)
			})

			Convey("And all contributors are listed in submission order", func() {
				So(agg.ReportIDs, ShouldResemble, []string{"r1", "r2", "r3"})
				So(agg.ReportCount, ShouldEqual, 3)
			})
		})
	})

	Convey("Given an even number of reports", t, func() {
		cfg := scouting.Config{DisputeThreshold: 0.5, NumericTolerance: 1e-9}
		now := time.Now()
		reports := []model.ScoutingReport{
			report("r1", "frc2658", "qm12", 0, map[string]float64{"teleop": 4}, nil),
			report("r2", "frc2658", "qm12", time.Minute, map[string]float64{"teleop": 6}, nil),
		}

		Convey("When merging", func() {
			agg, err := scouting.Merge(reports, cfg, now)

			Convey("Then the median is the mean of the two middle values", func() {
				So(err, ShouldBeNil)
				So(agg.Numeric["teleop"], ShouldEqual, 5)
			})
		})
	})
}

func TestMerge_Boolean(t *testing.T) {
	Convey("Given reports disagreeing on a boolean field", t, func() {
		cfg := scouting.Config{DisputeThreshold: 0.5, NumericTolerance: 1e-9}
		now := time.Now()

		Convey("When the vote is tied", func() {
			reports := []model.ScoutingReport{
				report("r1", "frc2658", "qm12", 0, nil, map[string]bool{"climbed": true}),
				report("r2", "frc2658", "qm12", time.Minute, nil, map[string]bool{"climbed": false}),
			}
			agg, err := scouting.Merge(reports, cfg, now)

			Convey("Then the tie resolves to false with half agreement", func() {
				So(err, ShouldBeNil)
				So(agg.Boolean["climbed"], ShouldBeFalse)
				So(agg.Agreement["climbed"], ShouldEqual, 0.5)
			})
		})

		Convey("When a clear majority says true", func() {
			reports := []model.ScoutingReport{
				report("r1", "frc2658", "qm12", 0, nil, map[string]bool{"climbed": true}),
				report("r2", "frc2658", "qm12", time.Minute, nil, map[string]bool{"climbed": true}),
				report("r3", "frc2658", "qm12", 2*time.Minute, nil, map[string]bool{"climbed": false}),
			}
			agg, err := scouting.Merge(reports, cfg, now)

			Convey("Then the majority wins", func() {
				So(err, ShouldBeNil)
				So(agg.Boolean["climbed"], ShouldBeTrue)
				So(agg.Agreement["climbed"], ShouldAlmostEqual, 2.0/3.0)
			})
		})
	})
}

func TestMerge_Disputes(t *testing.T) {
	Convey("Given a dispute threshold of 0.5", t, func() {
		cfg := scouting.Config{DisputeThreshold: 0.5, NumericTolerance: 1e-9}
		now := time.Now()

		Convey("When no two scouts agree on a numeric value", func() {
			reports := []model.ScoutingReport{
				report("r1", "frc2658", "qm12", 0, map[string]float64{"defense": 1}, nil),
				report("r2", "frc2658", "qm12", time.Minute, map[string]float64{"defense": 5}, nil),
				report("r3", "frc2658", "qm12", 2*time.Minute, map[string]float64{"defense": 9}, nil),
			}
			agg, err := scouting.Merge(reports, cfg, now)

			Convey("Then the aggregate is flagged disputed", func() {
				So(err, ShouldBeNil)
				So(agg.Disputed, ShouldBeTrue)
			})
		})

		Convey("When observations differ only within tolerance", func() {
			tolerant := scouting.Config{DisputeThreshold: 0.5, NumericTolerance: 0.1}
			reports := []model.ScoutingReport{
				report("r1", "frc2658", "qm12", 0, map[string]float64{"defense": 5.0}, nil),
				report("r2", "frc2658", "qm12", time.Minute, map[string]float64{"defense": 5.05}, nil),
			}
			agg, err := scouting.Merge(reports, tolerant, now)

			Convey("Then they count as agreeing", func() {
				So(err, ShouldBeNil)
				So(agg.Agreement["defense"], ShouldEqual, 1.0)
				So(agg.Disputed, ShouldBeFalse)
			})
		})
	})
}

func TestMerge_Errors(t *testing.T) {
	Convey("Given invalid merge inputs", t, func() {
		cfg := scouting.Config{DisputeThreshold: 0.5}

		Convey("When no reports are supplied", func() {
			_, err := scouting.Merge(nil, cfg, time.Now())

			Convey("Then the merge is refused", func() {
				So(errors.Is(err, scouting.ErrInsufficientReports), ShouldBeTrue)
			})
		})

		Convey("When reports span different matches", func() {
			reports := []model.ScoutingReport{
				report("r1", "frc2658", "qm12", 0, map[string]float64{"x": 1}, nil),
				report("r2", "frc2658", "qm13", time.Minute, map[string]float64{"x": 2}, nil),
			}
			_, err := scouting.Merge(reports, cfg, time.Now())

			Convey("Then mixed keys are rejected", func() {
				So(errors.Is(err, scouting.ErrMixedKeys), ShouldBeTrue)
			})
		})
	})
}

func TestMerge_Deterministic(t *testing.T) {
	Convey("Given the same report set in different slice orders", t, func() {
		cfg := scouting.Config{DisputeThreshold: 0.5, NumericTolerance: 1e-9}
		now := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
		a := report("r1", "frc2658", "qm12", 0, map[string]float64{"auto": 3, "teleop": 8}, map[string]bool{"climbed": true})
		b := report("r2", "frc2658", "qm12", time.Minute, map[string]float64{"auto": 4, "teleop": 7}, map[string]bool{"climbed": true})
		c := report("r3", "frc2658", "qm12", 2*time.Minute, map[string]float64{"auto": 3, "teleop": 9}, map[string]bool{"climbed": false})

		Convey("When merging both orders", func() {
			first, err1 := scouting.Merge([]model.ScoutingReport{a, b, c}, cfg, now)
			second, err2 := scouting.Merge([]model.ScoutingReport{c, a, b}, cfg, now)

			Convey("Then the aggregates are identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second, ShouldResemble, first)
			})
		})
	})
}
