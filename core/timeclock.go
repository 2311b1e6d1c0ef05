package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"timedock.com/timedock/auth"
	qb "timedock.com/timedock/quickbooks/v1"
	"timedock.com/timedock/utils"
)

var (
	// ErrAlreadyActive means the employee already has an open clock session.
	ErrAlreadyActive = errors.New("employee is already clocked in")

	// ErrNotActive means the targeted record is completed (or never opened).
	ErrNotActive = errors.New("time activity is not active")

	// ErrEmptySession means a completed session has no duration. Writing it
	// would carry the open-session encoding, so it is refused.
	ErrEmptySession = errors.New("session has no duration")
)

// IsActive reports whether a record is an open clock-in. The encoding is a
// wire-compatibility convention: StartTime equals EndTime and the duration
// is zero. Every call site goes through this predicate instead of
// re-deriving the sentinel.
func IsActive(ta *qb.TimeActivityDTO) bool {
	return ta != nil &&
		ta.StartTime != "" &&
		ta.StartTime == ta.EndTime &&
		ta.Hours == 0 &&
		ta.Minutes == 0
}

// SplitDuration returns whole hours and minutes between two instants,
// truncating any sub-minute remainder. A negative span means the clock-out
// wall time landed past midnight relative to the clock-in, so a day is
// added; spans beyond 24h need full date-times and bypass this path.
func SplitDuration(start, end time.Time) (hours, minutes int) {
	d := end.Sub(start)
	if d < 0 {
		d += 24 * time.Hour
	}
	total := int(d / time.Minute)
	return total / 60, total % 60
}

// ActivityStart reconstructs the clock-in instant of a record from its
// TxnDate and StartTime fields, as a UTC-normalized instant.
func ActivityStart(ta *qb.TimeActivityDTO) (time.Time, error) {
	if ta.TxnDate == "" || ta.StartTime == "" {
		return time.Time{}, fmt.Errorf("record %s has no start time", ta.ID)
	}
	return time.Parse("2006-01-02 15:04:05", ta.TxnDate+" "+ta.StartTime)
}

// Service is the clock-in/clock-out reconciler plus employee sync built on
// the gateway. Remote records are never cached: they live only for the
// duration of one request.
type Service struct {
	auth    *auth.Manager
	apiBase string
	log     *zap.Logger
	now     func() time.Time
	locks   sync.Map // "tenant|employee" -> *sync.Mutex
}

func NewService(mgr *auth.Manager, apiBase string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		auth:    mgr,
		apiBase: apiBase,
		log:     log,
		now:     time.Now,
	}
}

func (s *Service) client(cred *auth.Credential) *qb.QuickBooksClient {
	return qb.NewQuickBooksClient(s.apiBase, cred.RealmID, cred.AccessToken)
}

// withClient runs fn with an authenticated client. If the remote rejects
// the bearer it forces exactly one refresh and replays fn; never more.
func (s *Service) withClient(ctx context.Context, tenant string, fn func(*qb.QuickBooksClient) error) error {
	cred, err := s.auth.GetValidCredential(ctx, tenant)
	if err != nil {
		return err
	}

	err = fn(s.client(cred))
	if errors.Is(err, qb.ErrUnauthorized) {
		s.log.Info("bearer rejected remotely, refreshing once", zap.String("tenant", tenant))
		cred, rerr := s.auth.ForceRefresh(ctx, tenant)
		if rerr != nil {
			return rerr
		}
		return fn(s.client(cred))
	}
	return err
}

// lock serializes the check-and-create sequence per (tenant, employee).
// This closes the local clock-in race; anything racing across processes is
// left to the remote system.
func (s *Service) lock(tenant, employeeRef string) func() {
	key := tenant + "|" + employeeRef
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	return mu.(*sync.Mutex).Unlock
}

type ClockInInput struct {
	EmployeeRef string
	Start       time.Time
	Description string
}

// ClockIn opens a clock session: one TimeActivity with the active sentinel
// encoding. At most one active record per employee is enforced before
// creating.
func (s *Service) ClockIn(ctx context.Context, tenant string, in ClockInInput) (*qb.TimeActivityDTO, error) {
	if in.EmployeeRef == "" {
		return nil, fmt.Errorf("employee reference is required")
	}
	start := in.Start
	if start.IsZero() {
		start = s.now()
	}
	start = start.UTC()

	unlock := s.lock(tenant, in.EmployeeRef)
	defer unlock()

	var created *qb.TimeActivityDTO
	err := s.withClient(ctx, tenant, func(c *qb.QuickBooksClient) error {
		active, err := s.findActive(ctx, c, in.EmployeeRef, start)
		if err != nil {
			return err
		}
		if active != nil {
			return fmt.Errorf("%w (activity %s)", ErrAlreadyActive, active.ID)
		}

		created, err = c.TimeActivities.Create(ctx, &qb.TimeActivityDTO{
			NameOf:      "Employee",
			EmployeeRef: &qb.RefDTO{Value: in.EmployeeRef},
			TxnDate:     utils.FormatDate(start),
			StartTime:   utils.FormatClockTime(start),
			EndTime:     utils.FormatClockTime(start),
			Description: in.Description,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("clocked in",
		zap.String("tenant", tenant),
		zap.String("employee", in.EmployeeRef),
		zap.String("activity", created.ID))
	return created, nil
}

// ClockOut closes an open session: locates the record, verifies it is still
// active, computes the elapsed duration and updates the record with the
// version token observed at location time. The locate read happens before
// the update write within the one transition.
func (s *Service) ClockOut(ctx context.Context, tenant, activityID string, end time.Time) (*qb.TimeActivityDTO, error) {
	if end.IsZero() {
		end = s.now()
	}
	end = end.UTC()

	var updated *qb.TimeActivityDTO
	err := s.withClient(ctx, tenant, func(c *qb.QuickBooksClient) error {
		current, err := c.TimeActivities.Get(ctx, activityID)
		if err != nil {
			return err
		}
		if !IsActive(current) {
			return fmt.Errorf("%w (activity %s)", ErrNotActive, activityID)
		}

		start, err := ActivityStart(current)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNotActive, err)
		}

		hours, minutes := SplitDuration(start, end)

		update := *current // carries the SyncToken observed just above
		update.EndTime = utils.FormatClockTime(end)
		update.Hours = hours
		update.Minutes = minutes

		updated, err = c.TimeActivities.Update(ctx, &update)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("clocked out",
		zap.String("tenant", tenant),
		zap.String("activity", activityID),
		zap.Int("hours", updated.Hours),
		zap.Int("minutes", updated.Minutes))
	return updated, nil
}

// RecordSession writes an already-completed shift in one call. Used by the
// bulk import path where both ends of the session are known. A session
// whose wall-clock ends where it starts with zero duration is
// indistinguishable on the wire from an open clock-in, so it is rejected
// instead of created.
func (s *Service) RecordSession(ctx context.Context, tenant, employeeRef string, start, end time.Time, description string) (*qb.TimeActivityDTO, error) {
	start, end = start.UTC(), end.UTC()
	hours, minutes := SplitDuration(start, end)

	startClock := utils.FormatClockTime(start)
	endClock := utils.FormatClockTime(end)
	if hours == 0 && minutes == 0 && startClock == endClock {
		return nil, fmt.Errorf("%w (employee %s at %s)", ErrEmptySession, employeeRef, startClock)
	}

	var created *qb.TimeActivityDTO
	err := s.withClient(ctx, tenant, func(c *qb.QuickBooksClient) error {
		var err error
		created, err = c.TimeActivities.Create(ctx, &qb.TimeActivityDTO{
			NameOf:      "Employee",
			EmployeeRef: &qb.RefDTO{Value: employeeRef},
			TxnDate:     utils.FormatDate(start),
			StartTime:   startClock,
			EndTime:     endClock,
			Hours:       hours,
			Minutes:     minutes,
			Description: description,
		})
		return err
	})
	return created, err
}

type ClockStatus struct {
	ClockedIn bool               `json:"clocked_in"`
	Activity  *qb.TimeActivityDTO `json:"activity,omitempty"`
	Hours     int                `json:"hours"`
	Minutes   int                `json:"minutes"`
}

// Status reports whether the employee has an open session and, when they
// do, the live elapsed duration.
func (s *Service) Status(ctx context.Context, tenant, employeeRef string) (*ClockStatus, error) {
	now := s.now().UTC()

	var status *ClockStatus
	err := s.withClient(ctx, tenant, func(c *qb.QuickBooksClient) error {
		active, err := s.findActive(ctx, c, employeeRef, now)
		if err != nil {
			return err
		}
		if active == nil {
			status = &ClockStatus{}
			return nil
		}

		start, err := ActivityStart(active)
		if err != nil {
			return err
		}
		hours, minutes := SplitDuration(start, now)
		status = &ClockStatus{ClockedIn: true, Activity: active, Hours: hours, Minutes: minutes}
		return nil
	})
	return status, err
}

// findActive looks for an open record for the employee around an instant.
// The remote query language cannot filter on reference fields, so the date
// window (one day back, covering shifts over midnight) is fetched and
// narrowed client-side.
func (s *Service) findActive(ctx context.Context, c *qb.QuickBooksClient, employeeRef string, around time.Time) (*qb.TimeActivityDTO, error) {
	from := utils.FormatDate(around.AddDate(0, 0, -1))
	to := utils.FormatDate(around)

	activities, err := c.TimeActivities.QueryRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return utils.Find(activities, func(ta qb.TimeActivityDTO) bool {
		return ta.EmployeeRef != nil && ta.EmployeeRef.Value == employeeRef && IsActive(&ta)
	}), nil
}

type ActivityReport struct {
	Activities   []qb.TimeActivityDTO `json:"activities"`
	TotalHours   int                  `json:"total_hours"`
	TotalMinutes int                  `json:"total_minutes"`
}

// Report lists an employee's activities inside a date range with a
// normalized duration total.
func (s *Service) Report(ctx context.Context, tenant, employeeRef, from, to string) (*ActivityReport, error) {
	var report *ActivityReport
	err := s.withClient(ctx, tenant, func(c *qb.QuickBooksClient) error {
		all, err := c.TimeActivities.QueryRange(ctx, from, to)
		if err != nil {
			return err
		}

		mine := utils.Filter(all, func(ta qb.TimeActivityDTO) bool {
			return ta.EmployeeRef != nil && ta.EmployeeRef.Value == employeeRef
		})

		total := 0
		for _, ta := range mine {
			total += ta.Hours*60 + ta.Minutes
		}

		report = &ActivityReport{
			Activities:   mine,
			TotalHours:   total / 60,
			TotalMinutes: total % 60,
		}
		return nil
	})
	return report, err
}
