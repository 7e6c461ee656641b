package appointments

import (
	"context"
	"time"

	"github.com/wolfman30/doctorhome/internal/clock"
	"github.com/wolfman30/doctorhome/internal/directory"
)

// Partition splits records into pending, upcoming and past relative to now.
// Accepted or in-progress appointments whose scheduled time has passed land in
// past without any status change. Input order is not assumed.
func Partition(records []*Appointment, now time.Time) Buckets {
	b := Buckets{
		Pending:  make([]*Appointment, 0),
		Upcoming: make([]*Appointment, 0),
		Past:     make([]*Appointment, 0),
	}
	for _, a := range records {
		if a == nil {
			continue
		}
		switch a.Status {
		case StatusRequested:
			b.Pending = append(b.Pending, a)
		case StatusAccepted, StatusInProgress:
			if a.ScheduledTime.Before(now) {
				b.Past = append(b.Past, a)
			} else {
				b.Upcoming = append(b.Upcoming, a)
			}
		case StatusCompleted, StatusCancelled:
			b.Past = append(b.Past, a)
		}
	}
	sortBySchedule(b.Pending)
	sortBySchedule(b.Upcoming)
	sortBySchedule(b.Past)
	return b
}

// BucketView derives buckets from the store on every call.
type BucketView struct {
	store Store
	clock clock.Clock
}

// NewBucketView creates a read-only projection over store.
func NewBucketView(store Store, c clock.Clock) *BucketView {
	if store == nil {
		panic("appointments: store required")
	}
	if c == nil {
		c = clock.System()
	}
	return &BucketView{store: store, clock: c}
}

// List returns the user's buckets computed from a fresh store snapshot.
func (v *BucketView) List(ctx context.Context, userID string, role directory.Role) (Buckets, error) {
	records, err := v.store.ListByUser(ctx, userID, role)
	if err != nil {
		return Buckets{}, err
	}
	return Partition(records, v.clock.Now()), nil
}
