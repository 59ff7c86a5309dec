package station

import (
	"sort"
	"time"

	"stationsim/types"
)

// connectorChargingProfiles returns the candidate profiles for a composite
// schedule: station wide profiles on connector 0 first, then the target
// connector's own profiles, each group ordered by ascending stack level so
// later entries override earlier ones.
func (s *Station) connectorChargingProfiles(connectorId int) []types.ChargingProfile {
	profiles := make([]types.ChargingProfile, 0)
	if zero, ok := s.connectors[0]; ok {
		profiles = append(profiles, sortedByStackLevel(zero.chargingProfiles)...)
	}
	if connectorId != 0 {
		if connector, ok := s.connectors[connectorId]; ok {
			profiles = append(profiles, sortedByStackLevel(connector.chargingProfiles)...)
		}
	}
	return profiles
}

func sortedByStackLevel(profiles []types.ChargingProfile) []types.ChargingProfile {
	out := make([]types.ChargingProfile, len(profiles))
	copy(out, profiles)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StackLevel < out[j].StackLevel
	})
	return out
}

// fillScheduleDefaults completes a profile's schedule before composition:
// a transaction bound profile without a start inherits the transaction
// start, and a missing duration extends the schedule to the end of time.
func fillScheduleDefaults(profile *types.ChargingProfile, transactionStarted bool, transactionStart *types.DateTime) {
	schedule := profile.ChargingSchedule
	if schedule == nil {
		return
	}
	if schedule.StartSchedule == nil && transactionStarted && transactionStart != nil {
		start := *transactionStart
		schedule.StartSchedule = &start
	}
	if schedule.StartSchedule != nil && schedule.Duration == nil {
		duration := int(types.MaxTime.Sub(schedule.StartSchedule.Time).Seconds())
		schedule.Duration = &duration
	}
}

// prepareChargingProfileKind resolves the schedule start for the profile's
// kind and reports whether the profile can be used at all.
func prepareChargingProfileKind(profile *types.ChargingProfile, now time.Time, transactionStarted bool, transactionStart *types.DateTime) bool {
	schedule := profile.ChargingSchedule
	if schedule == nil {
		return false
	}
	switch profile.ChargingProfileKind {
	case types.ChargingProfileKindRecurring:
		if profile.RecurrencyKind == "" || schedule.StartSchedule == nil {
			return false
		}
		prepareRecurringSchedule(schedule, profile.RecurrencyKind, now)
	case types.ChargingProfileKindRelative:
		// a relative profile carries no own start, it follows the transaction
		schedule.StartSchedule = nil
		if transactionStarted && transactionStart != nil {
			start := *transactionStart
			schedule.StartSchedule = &start
		}
	}
	return true
}

// prepareRecurringSchedule shifts the schedule start to the latest
// occurrence not after now. A duration exceeding the recurrence period is
// truncated to it.
func prepareRecurringSchedule(schedule *types.ChargingSchedule, kind types.RecurrencyKindType, now time.Time) {
	interval := 24 * time.Hour
	if kind == types.RecurrencyKindWeekly {
		interval = 7 * 24 * time.Hour
	}
	start := schedule.StartSchedule.Time
	if now.After(start) {
		shift := now.Sub(start) / interval * interval
		start = start.Add(shift)
		shifted := types.DateTime{Time: start}
		schedule.StartSchedule = &shifted
	}
	if schedule.Duration != nil && time.Duration(*schedule.Duration)*time.Second > interval {
		truncated := int(interval.Seconds())
		schedule.Duration = &truncated
	}
}

// canProceedChargingProfile gates a profile on its validity window and on
// having a resolvable schedule.
func canProceedChargingProfile(profile *types.ChargingProfile, now time.Time) bool {
	if profile.ValidFrom != nil && now.Before(profile.ValidFrom.Time) {
		return false
	}
	if profile.ValidTo != nil && now.After(profile.ValidTo.Time) {
		return false
	}
	schedule := profile.ChargingSchedule
	if schedule == nil || schedule.StartSchedule == nil || schedule.Duration == nil {
		return false
	}
	return true
}

// periodAt returns the period active at t, or false when t lies outside
// the schedule's coverage.
func periodAt(schedule *types.ChargingSchedule, t time.Time) (types.ChargingSchedulePeriod, bool) {
	var active types.ChargingSchedulePeriod
	if schedule == nil || schedule.StartSchedule == nil {
		return active, false
	}
	start := schedule.StartSchedule.Time
	if t.Before(start) {
		return active, false
	}
	if schedule.Duration != nil && !t.Before(start.Add(time.Duration(*schedule.Duration)*time.Second)) {
		return active, false
	}
	found := false
	for _, period := range schedule.ChargingSchedulePeriod {
		periodStart := start.Add(time.Duration(period.StartPeriod) * time.Second)
		if t.Before(periodStart) {
			break
		}
		active = period
		found = true
	}
	return active, found
}

// scheduleBreakpoints collects the absolute times within [from, to) where
// the schedule's limit may change.
func scheduleBreakpoints(schedule *types.ChargingSchedule, from, to time.Time) []time.Time {
	if schedule == nil || schedule.StartSchedule == nil {
		return nil
	}
	start := schedule.StartSchedule.Time
	points := make([]time.Time, 0, len(schedule.ChargingSchedulePeriod)+2)
	appendPoint := func(t time.Time) {
		if !t.Before(from) && t.Before(to) {
			points = append(points, t)
		}
	}
	appendPoint(start)
	for _, period := range schedule.ChargingSchedulePeriod {
		appendPoint(start.Add(time.Duration(period.StartPeriod) * time.Second))
	}
	if schedule.Duration != nil {
		appendPoint(start.Add(time.Duration(*schedule.Duration) * time.Second))
	}
	return points
}

// composeChargingSchedules overlays schedule onto composite within
// [from, to). Where schedule covers a slice its limit wins, elsewhere the
// prior composite's limit is kept.
func composeChargingSchedules(composite, schedule *types.ChargingSchedule, from, to time.Time) *types.ChargingSchedule {
	if schedule == nil {
		return composite
	}
	points := []time.Time{from}
	points = append(points, scheduleBreakpoints(composite, from, to)...)
	points = append(points, scheduleBreakpoints(schedule, from, to)...)
	sort.Slice(points, func(i, j int) bool { return points[i].Before(points[j]) })

	type slice struct {
		start  time.Time
		period types.ChargingSchedulePeriod
	}
	slices := make([]slice, 0, len(points))
	var last time.Time
	for i, t := range points {
		if i > 0 && t.Equal(last) {
			continue
		}
		last = t
		period, covered := periodAt(schedule, t)
		if !covered {
			period, covered = periodAt(composite, t)
		}
		if !covered {
			continue
		}
		if n := len(slices); n > 0 && slices[n-1].period.Limit == period.Limit &&
			equalPhases(slices[n-1].period.NumberPhases, period.NumberPhases) {
			continue
		}
		slices = append(slices, slice{start: t, period: period})
	}
	if len(slices) == 0 {
		return composite
	}

	start := slices[0].start
	duration := int(to.Sub(start).Seconds())
	result := &types.ChargingSchedule{
		StartSchedule:    &types.DateTime{Time: start},
		Duration:         &duration,
		ChargingRateUnit: schedule.ChargingRateUnit,
	}
	for _, sl := range slices {
		result.ChargingSchedulePeriod = append(result.ChargingSchedulePeriod, types.ChargingSchedulePeriod{
			StartPeriod:  int(sl.start.Sub(start).Seconds()),
			Limit:        sl.period.Limit,
			NumberPhases: sl.period.NumberPhases,
		})
	}
	return result
}

func equalPhases(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
