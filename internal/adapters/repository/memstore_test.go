package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/frc-emotion/nautilus-backend/internal/adapters/repository"
	"github.com/frc-emotion/nautilus-backend/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemStore_Meetings(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(ctx)
		m := model.Meeting{
			ID:        "meeting-1",
			Title:     "Build night",
			StartTime: time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2026, 3, 12, 20, 0, 0, 0, time.UTC),
			Status:    model.MeetingScheduled,
		}

		Convey("When a meeting is inserted", func() {
			So(store.PutMeeting(ctx, m), ShouldBeNil)

			Convey("Then it can be read back", func() {
				got, err := store.Meeting(ctx, "meeting-1")
				So(err, ShouldBeNil)
				So(got.Title, ShouldEqual, "Build night")
			})

			Convey("And inserting the same ID again fails", func() {
				err := store.PutMeeting(ctx, m)
				So(errors.Is(err, repository.ErrExists), ShouldBeTrue)
			})

			Convey("And an update commits the callback's value", func() {
				got, err := store.UpdateMeeting(ctx, "meeting-1", func(cur model.Meeting) (model.Meeting, error) {
					cur.Status = model.MeetingClosed
					return cur, nil
				})
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.MeetingClosed)

				stored, err := store.Meeting(ctx, "meeting-1")
				So(err, ShouldBeNil)
				So(stored.Status, ShouldEqual, model.MeetingClosed)
			})

			Convey("And a failing update leaves the meeting untouched", func() {
				boom := errors.New("boom")
				_, err := store.UpdateMeeting(ctx, "meeting-1", func(cur model.Meeting) (model.Meeting, error) {
					cur.Status = model.MeetingClosed
					return cur, boom
				})
				So(errors.Is(err, boom), ShouldBeTrue)

				stored, err := store.Meeting(ctx, "meeting-1")
				So(err, ShouldBeNil)
				So(stored.Status, ShouldEqual, model.MeetingScheduled)
			})
		})

		Convey("When reading an unknown meeting", func() {
			_, err := store.Meeting(ctx, "nope")

			Convey("Then not-found is surfaced", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestMemStore_AttendanceRecords(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(ctx)

		Convey("When updating a record that does not exist yet", func() {
			got, err := store.UpdateRecord(ctx, "user-1", "meeting-1", func(cur model.AttendanceRecord) (model.AttendanceRecord, error) {
				So(cur.State, ShouldEqual, model.AttendanceNone)
				So(cur.UserID, ShouldEqual, "user-1")
				So(cur.MeetingID, ShouldEqual, "meeting-1")
				cur.State = model.AttendanceCheckedIn
				return cur, nil
			})

			Convey("Then the callback's record is persisted", func() {
				So(err, ShouldBeNil)
				So(got.State, ShouldEqual, model.AttendanceCheckedIn)

				stored, err := store.Record(ctx, "user-1", "meeting-1")
				So(err, ShouldBeNil)
				So(stored.State, ShouldEqual, model.AttendanceCheckedIn)
			})
		})

		Convey("When several users attend several meetings", func() {
			for _, pair := range [][2]string{
				{"user-1", "meeting-1"},
				{"user-2", "meeting-1"},
				{"user-1", "meeting-2"},
			} {
				userID, meetingID := pair[0], pair[1]
				_, err := store.UpdateRecord(ctx, userID, meetingID, func(cur model.AttendanceRecord) (model.AttendanceRecord, error) {
					cur.State = model.AttendanceCheckedIn
					return cur, nil
				})
				So(err, ShouldBeNil)
			}

			Convey("Then records list by meeting sorted by user", func() {
				recs, err := store.RecordsByMeeting(ctx, "meeting-1")
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 2)
				So(recs[0].UserID, ShouldEqual, "user-1")
				So(recs[1].UserID, ShouldEqual, "user-2")
			})

			Convey("And records list by user sorted by meeting", func() {
				recs, err := store.RecordsByUser(ctx, "user-1")
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 2)
				So(recs[0].MeetingID, ShouldEqual, "meeting-1")
				So(recs[1].MeetingID, ShouldEqual, "meeting-2")
			})
		})
	})
}

func TestMemStore_Reports(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(ctx)
		r := model.ScoutingReport{
			ID:      "report-1",
			TeamID:  "frc2658",
			MatchID: "qm12",
			Numeric: map[string]float64{"auto": 3},
		}

		Convey("When a report is appended", func() {
			So(store.AppendReport(ctx, r), ShouldBeNil)

			Convey("Then it appears in the pair's report list", func() {
				reports, err := store.Reports(ctx, "frc2658", "qm12")
				So(err, ShouldBeNil)
				So(reports, ShouldHaveLength, 1)
				So(reports[0].ID, ShouldEqual, "report-1")
			})

			Convey("And appending the same report ID again fails", func() {
				err := store.AppendReport(ctx, r)
				So(errors.Is(err, repository.ErrExists), ShouldBeTrue)
			})

			Convey("And a recompute folds the current report set", func() {
				agg, err := store.RecomputeAggregate(ctx, "frc2658", "qm12", func(reports []model.ScoutingReport) (model.ScoutingAggregate, error) {
					return model.ScoutingAggregate{
						TeamID:      "frc2658",
						MatchID:     "qm12",
						ReportCount: len(reports),
					}, nil
				})
				So(err, ShouldBeNil)
				So(agg.ReportCount, ShouldEqual, 1)

				stored, err := store.Aggregate(ctx, "frc2658", "qm12")
				So(err, ShouldBeNil)
				So(stored.ReportCount, ShouldEqual, 1)
			})
		})

		Convey("When reading an aggregate that was never computed", func() {
			_, err := store.Aggregate(ctx, "frc2658", "qm99")

			Convey("Then not-found is surfaced", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestMemStore_PitEntries(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(ctx)

		Convey("When updating a pit entry for the first time", func() {
			got, err := store.UpdatePitEntry(ctx, "frc2658", "2026orwil", func(cur *model.PitScoutingEntry) (model.PitScoutingEntry, error) {
				So(cur, ShouldBeNil)
				return model.PitScoutingEntry{
					TeamID:      "frc2658",
					Competition: "2026orwil",
					Fields:      map[string]string{"drivetrain": "swerve"},
				}, nil
			})

			Convey("Then the entry is persisted", func() {
				So(err, ShouldBeNil)
				So(got.Fields["drivetrain"], ShouldEqual, "swerve")

				stored, err := store.PitEntry(ctx, "frc2658", "2026orwil")
				So(err, ShouldBeNil)
				So(stored.Fields["drivetrain"], ShouldEqual, "swerve")
			})

			Convey("And the next update sees the committed entry", func() {
				_, err := store.UpdatePitEntry(ctx, "frc2658", "2026orwil", func(cur *model.PitScoutingEntry) (model.PitScoutingEntry, error) {
					So(cur, ShouldNotBeNil)
					So(cur.Fields["drivetrain"], ShouldEqual, "swerve")
					return *cur, nil
				})
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestMemStore_ConcurrentUpdates(t *testing.T) {
	Convey("Given concurrent updates against one attendance key", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(ctx)

		Convey("When many goroutines increment the credited hours", func() {
			const goroutines = 50
			var wg sync.WaitGroup
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = store.UpdateRecord(ctx, "user-1", "meeting-1", func(cur model.AttendanceRecord) (model.AttendanceRecord, error) {
						cur.CreditedHours++
						return cur, nil
					})
				}()
			}
			wg.Wait()

			Convey("Then no update is lost", func() {
				rec, err := store.Record(ctx, "user-1", "meeting-1")
				So(err, ShouldBeNil)
				So(rec.CreditedHours, ShouldEqual, float64(goroutines))
			})
		})
	})
}

func TestMemStore_ConcurrentPitUpdates(t *testing.T) {
	Convey("Given concurrent updates against one pit key", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(ctx)

		Convey("When many goroutines each merge their own field", func() {
			const goroutines = 50
			var wg sync.WaitGroup
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					field := fmt.Sprintf("field-%d", i)
					_, _ = store.UpdatePitEntry(ctx, "frc2658", "2026orwil", func(cur *model.PitScoutingEntry) (model.PitScoutingEntry, error) {
						next := model.PitScoutingEntry{
							TeamID:      "frc2658",
							Competition: "2026orwil",
							Fields:      map[string]string{},
						}
						if cur != nil {
							for k, v := range cur.Fields {
								next.Fields[k] = v
							}
							next.History = append(next.History, cur.History...)
						}
						next.Fields[field] = "set"
						next.History = append(next.History, model.FieldChange{Field: field, NewValue: "set"})
						return next, nil
					})
				}(i)
			}
			wg.Wait()

			Convey("Then every merge lands and none overwrites another", func() {
				entry, err := store.PitEntry(ctx, "frc2658", "2026orwil")
				So(err, ShouldBeNil)
				So(entry.Fields, ShouldHaveLength, goroutines)
				So(entry.History, ShouldHaveLength, goroutines)
			})
		})
	})
}

func TestMemStore_Counts(t *testing.T) {
	Convey("Given a store with mixed content", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(ctx)

		So(store.PutMeeting(ctx, model.Meeting{ID: "meeting-1"}), ShouldBeNil)
		for i := 0; i < 3; i++ {
			So(store.AppendReport(ctx, model.ScoutingReport{
				ID:      fmt.Sprintf("report-%d", i),
				TeamID:  "frc2658",
				MatchID: "qm12",
			}), ShouldBeNil)
		}

		Convey("When counting", func() {
			counts := store.Counts(ctx)

			Convey("Then every entity kind is tallied", func() {
				So(counts.Meetings, ShouldEqual, 1)
				So(counts.Reports, ShouldEqual, 3)
				So(counts.Records, ShouldEqual, 0)
				So(counts.Aggregates, ShouldEqual, 0)
				So(counts.PitEntries, ShouldEqual, 0)
			})
		})
	})
}
