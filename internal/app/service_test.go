package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/frc-emotion/nautilus-backend/internal/adapters/repository"
	"github.com/frc-emotion/nautilus-backend/internal/app"
	"github.com/frc-emotion/nautilus-backend/internal/domain/attendance"
	"github.com/frc-emotion/nautilus-backend/internal/domain/model"
	"github.com/frc-emotion/nautilus-backend/internal/domain/pitscouting"
	"github.com/frc-emotion/nautilus-backend/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// eventually polls cond until it holds or the deadline passes. Used for
// state that is reconciled asynchronously by the worker pool.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func startService(opts ...app.Option) *app.Service {
	svc := app.New(append([]app.Option{app.WithWorkerCount(2)}, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func meetingWindow() (time.Time, time.Time) {
	day := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	return day.Add(18 * time.Hour), day.Add(20 * time.Hour)
}

func TestService_AttendanceFlow(t *testing.T) {
	Convey("Given a running service and a scheduled meeting", t, func() {
		ctx := context.Background()
		svc := startService()
		defer svc.Stop()

		start, end := meetingWindow()
		m, err := svc.CreateMeeting(ctx, app.MeetingParams{
			Title:     "Build night",
			CreatedBy: "lead-1",
			StartTime: start,
			EndTime:   end,
			Term:      1,
			Year:      "2025-2026",
		})
		So(err, ShouldBeNil)
		So(m.Status, ShouldEqual, model.MeetingScheduled)

		Convey("When a member checks in, checks out, and the meeting closes", func() {
			_, err := svc.CheckIn(ctx, "user-1", m.ID, start)
			So(err, ShouldBeNil)

			rec, err := svc.CheckOut(ctx, "user-1", m.ID, start.Add(59*time.Minute))
			So(err, ShouldBeNil)
			So(rec.State, ShouldEqual, model.AttendanceCheckedOut)

			closed, err := svc.CloseMeeting(ctx, m.ID)
			So(err, ShouldBeNil)
			So(closed.Status, ShouldEqual, model.MeetingClosed)

			Convey("Then the record is eventually credited with rounded-down hours", func() {
				ok := eventually(func() bool {
					got, err := svc.AttendanceRecord(ctx, "user-1", m.ID)
					return err == nil && got.State == model.AttendanceCredited
				})
				So(ok, ShouldBeTrue)

				got, err := svc.AttendanceRecord(ctx, "user-1", m.ID)
				So(err, ShouldBeNil)
				So(got.CreditedHours, ShouldEqual, 0.75)
			})

			Convey("And the member's term bucket accumulates the hours", func() {
				So(eventually(func() bool {
					hours, err := svc.MemberHours(ctx, "user-1")
					return err == nil && hours["2025-2026_1"] == 0.75
				}), ShouldBeTrue)
			})
		})

		Convey("When a member checks in but never checks out", func() {
			_, err := svc.CheckIn(ctx, "user-2", m.ID, start.Add(5*time.Minute))
			So(err, ShouldBeNil)

			_, err = svc.CloseMeeting(ctx, m.ID)
			So(err, ShouldBeNil)

			Convey("Then the record is eventually voided with zero hours", func() {
				ok := eventually(func() bool {
					got, err := svc.AttendanceRecord(ctx, "user-2", m.ID)
					return err == nil && got.State == model.AttendanceVoid
				})
				So(ok, ShouldBeTrue)

				got, err := svc.AttendanceRecord(ctx, "user-2", m.ID)
				So(err, ShouldBeNil)
				So(got.CreditedHours, ShouldEqual, 0)
			})
		})

		Convey("When a member tries to check in twice", func() {
			_, err := svc.CheckIn(ctx, "user-3", m.ID, start)
			So(err, ShouldBeNil)

			_, err = svc.CheckIn(ctx, "user-3", m.ID, start.Add(time.Minute))

			Convey("Then the second attempt conflicts", func() {
				So(errors.Is(err, attendance.ErrAlreadyCheckedIn), ShouldBeTrue)
			})
		})

		Convey("When a member checks in before the grace window", func() {
			_, err := svc.CheckIn(ctx, "user-4", m.ID, start.Add(-11*time.Minute))

			Convey("Then the attempt is rejected", func() {
				So(errors.Is(err, attendance.ErrOutOfWindow), ShouldBeTrue)
			})
		})

		Convey("When checking in against an unknown meeting", func() {
			_, err := svc.CheckIn(ctx, "user-5", "nope", start)

			Convey("Then not-found is surfaced", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_CloseMeeting(t *testing.T) {
	Convey("Given a running service with a meeting", t, func() {
		ctx := context.Background()
		svc := startService()
		defer svc.Stop()

		start, end := meetingWindow()
		m, err := svc.CreateMeeting(ctx, app.MeetingParams{
			Title:     "Outreach",
			StartTime: start,
			EndTime:   end,
			Term:      2,
			Year:      "2025-2026",
		})
		So(err, ShouldBeNil)

		Convey("When the meeting is closed twice", func() {
			_, err := svc.CloseMeeting(ctx, m.ID)
			So(err, ShouldBeNil)

			_, err = svc.CloseMeeting(ctx, m.ID)

			Convey("Then the second close is rejected", func() {
				So(errors.Is(err, attendance.ErrMeetingClosed), ShouldBeTrue)
			})
		})

		Convey("When a member checks in after the meeting closed", func() {
			_, err := svc.CloseMeeting(ctx, m.ID)
			So(err, ShouldBeNil)

			_, err = svc.CheckIn(ctx, "user-late", m.ID, start)

			Convey("Then the check-in is rejected", func() {
				So(errors.Is(err, attendance.ErrMeetingClosed), ShouldBeTrue)
			})
		})

		Convey("When a member checks out after the meeting closed", func() {
			_, err := svc.CheckIn(ctx, "user-6", m.ID, start)
			So(err, ShouldBeNil)

			_, err = svc.CloseMeeting(ctx, m.ID)
			So(err, ShouldBeNil)

			_, err = svc.CheckOut(ctx, "user-6", m.ID, start.Add(time.Hour))

			Convey("Then the late checkout never lands", func() {
				// The crediting sweep may already have voided the record;
				// either way the closed meeting rejects the checkout.
				rejected := errors.Is(err, attendance.ErrMeetingClosed) ||
					errors.Is(err, attendance.ErrAlreadyCredited)
				So(rejected, ShouldBeTrue)

				So(eventually(func() bool {
					rec, err := svc.AttendanceRecord(ctx, "user-6", m.ID)
					return err == nil && rec.State == model.AttendanceVoid
				}), ShouldBeTrue)
			})
		})

		Convey("When creating a meeting whose end precedes its start", func() {
			_, err := svc.CreateMeeting(ctx, app.MeetingParams{
				Title:     "Backwards",
				StartTime: end,
				EndTime:   start,
			})

			Convey("Then creation fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestService_ManualCredit(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx := context.Background()
		svc := startService()
		defer svc.Stop()

		Convey("When an admin grants manual hours", func() {
			rec, err := svc.AddManualCredit(ctx, "user-1", 2.5, 1, "2025-2026", "admin-1")

			Convey("Then a credited record is stored", func() {
				So(err, ShouldBeNil)
				So(rec.State, ShouldEqual, model.AttendanceCredited)
				So(rec.CreditedHours, ShouldEqual, 2.5)
			})

			Convey("And the hours show up in the member's term bucket", func() {
				hours, err := svc.MemberHours(ctx, "user-1")
				So(err, ShouldBeNil)
				So(hours["2025-2026_1"], ShouldEqual, 2.5)
			})
		})

		Convey("When the granted hours are not positive", func() {
			_, err := svc.AddManualCredit(ctx, "user-1", 0, 1, "2025-2026", "admin-1")

			Convey("Then the grant is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestService_ScoutingFlow(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx := context.Background()
		svc := startService()
		defer svc.Stop()

		Convey("When three scouts report on the same match", func() {
			values := []float64{10, 10, 50}
			for i, v := range values {
				dup, err := svc.SubmitReport(ctx, model.ScoutingReport{
					TeamID:  "frc2658",
					MatchID: "qm12",
					ScoutID: "scout-" + string(rune('a'+i)),
					Numeric: map[string]float64{"auto_pieces": v},
				})
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
			}

			Convey("Then the aggregate converges on the median", func() {
				ok := eventually(func() bool {
					agg, err := svc.Aggregate(ctx, "frc2658", "qm12")
					return err == nil && agg.ReportCount == 3
				})
				So(ok, ShouldBeTrue)

				agg, err := svc.Aggregate(ctx, "frc2658", "qm12")
				So(err, ShouldBeNil)
				So(agg.Numeric["auto_pieces"], ShouldEqual, 10)
				So(agg.Agreement["auto_pieces"], ShouldAlmostEqual, 2.0/3.0)
				So(agg.Disputed, ShouldBeFalse)
			})
		})

		Convey("When the same report ID is submitted twice", func() {
			report := model.ScoutingReport{
				ID:      "report-dup",
				TeamID:  "frc254",
				MatchID: "qm3",
				ScoutID: "scout-a",
				Numeric: map[string]float64{"teleop": 5},
			}

			first, err := svc.SubmitReport(ctx, report)
			So(err, ShouldBeNil)
			So(first, ShouldBeFalse)

			second, err := svc.SubmitReport(ctx, report)

			Convey("Then the retry is absorbed as a duplicate", func() {
				So(err, ShouldBeNil)
				So(second, ShouldBeTrue)
			})

			Convey("And only one report reaches the aggregate", func() {
				ok := eventually(func() bool {
					agg, err := svc.Aggregate(ctx, "frc254", "qm3")
					return err == nil && agg.ReportCount == 1
				})
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When asking for an aggregate nobody scouted", func() {
			_, err := svc.Aggregate(ctx, "frc0", "qm0")

			Convey("Then not-found is surfaced", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_PitScoutingFlow(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx := context.Background()
		svc := startService()
		defer svc.Stop()
		base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

		Convey("When the first pit form for a team arrives", func() {
			entry, delta, err := svc.SubmitPitEntry(ctx, model.PitSubmission{
				TeamID:      "frc2658",
				Competition: "2026orwil",
				UserID:      "scout-a",
				Fields:      map[string]string{"drivetrain": "swerve", "weight": "120"},
				SubmittedAt: base,
			})

			Convey("Then the canonical entry is created with full history", func() {
				So(err, ShouldBeNil)
				So(entry.Fields["drivetrain"], ShouldEqual, "swerve")
				So(delta, ShouldHaveLength, 2)
			})

			Convey("And a later correction overwrites one field", func() {
				updated, delta, err := svc.SubmitPitEntry(ctx, model.PitSubmission{
					TeamID:      "frc2658",
					Competition: "2026orwil",
					UserID:      "scout-b",
					Fields:      map[string]string{"weight": "118"},
					SubmittedAt: base.Add(time.Hour),
				})
				So(err, ShouldBeNil)
				So(delta, ShouldHaveLength, 1)
				So(updated.Fields["weight"], ShouldEqual, "118")
				So(updated.History, ShouldHaveLength, 3)

				stored, err := svc.PitEntry(ctx, "frc2658", "2026orwil")
				So(err, ShouldBeNil)
				So(stored.Fields["weight"], ShouldEqual, "118")
			})

			Convey("And a stale form is rejected", func() {
				_, _, err := svc.SubmitPitEntry(ctx, model.PitSubmission{
					TeamID:      "frc2658",
					Competition: "2026orwil",
					UserID:      "scout-c",
					Fields:      map[string]string{"weight": "130"},
					SubmittedAt: base.Add(-time.Hour),
				})
				So(errors.Is(err, pitscouting.ErrEntryConflict), ShouldBeTrue)
			})
		})

		Convey("When two scouts submit the first form at the same moment", func() {
			subs := []model.PitSubmission{
				{
					TeamID:      "frc254",
					Competition: "2026orwil",
					UserID:      "scout-a",
					Fields:      map[string]string{"weight": "120"},
					SubmittedAt: base,
				},
				{
					TeamID:      "frc254",
					Competition: "2026orwil",
					UserID:      "scout-b",
					Fields:      map[string]string{"weight": "118"},
					SubmittedAt: base,
				},
			}

			var wg sync.WaitGroup
			errs := make([]error, len(subs))
			for i := range subs {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, _, errs[i] = svc.SubmitPitEntry(ctx, subs[i])
				}(i)
			}
			wg.Wait()

			Convey("Then neither submission wins silently", func() {
				So(errs[0], ShouldBeNil)
				So(errs[1], ShouldBeNil)

				entry, err := svc.PitEntry(ctx, "frc254", "2026orwil")
				So(err, ShouldBeNil)
				So(entry.History, ShouldHaveLength, 2)

				perScout := make(map[string]int)
				for _, fc := range entry.History {
					perScout[fc.UserID]++
				}
				So(perScout["scout-a"], ShouldEqual, 1)
				So(perScout["scout-b"], ShouldEqual, 1)

				// The surviving value belongs to whichever writer landed last.
				want := map[string]string{"scout-a": "120", "scout-b": "118"}
				So(entry.Fields["weight"], ShouldEqual, want[entry.UpdatedBy])
			})
		})
	})
}

func TestService_Stats(t *testing.T) {
	Convey("Given a running service with some activity", t, func() {
		ctx := context.Background()
		svc := startService()
		defer svc.Stop()

		start, end := meetingWindow()
		_, err := svc.CreateMeeting(ctx, app.MeetingParams{Title: "Build", StartTime: start, EndTime: end})
		So(err, ShouldBeNil)

		_, err = svc.SubmitReport(ctx, model.ScoutingReport{
			TeamID: "frc2658", MatchID: "qm1", ScoutID: "scout-a",
			Numeric: map[string]float64{"auto": 1},
		})
		So(err, ShouldBeNil)

		Convey("When reading stats", func() {
			stats := svc.Stats(ctx)

			Convey("Then store counts and dedupe size are reported", func() {
				So(stats.Store.Meetings, ShouldEqual, 1)
				So(stats.Store.Reports, ShouldEqual, 1)
				So(stats.DedupeSize, ShouldEqual, 1)
			})
		})
	})
}
