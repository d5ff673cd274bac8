package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/careops/visit-notify/internal/domain"
)

// ParseTimeRange combines a MM/DD/YYYY visit date with a compact "HHMM-HHMM"
// schedule token into two absolute timestamps anchored in loc. Building the
// times with time.Date in an IANA location keeps them DST-correct; a fixed
// UTC offset would drift by an hour for half the year.
func ParseTimeRange(visitDate, scheduled string, loc *time.Location) (start, end time.Time, err error) {
	if loc == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: governing timezone is required", domain.ErrValidation)
	}

	startTok, endTok, ok := strings.Cut(strings.TrimSpace(scheduled), "-")
	if !ok || startTok == "" || endTok == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid scheduled time format %q", domain.ErrValidation, scheduled)
	}

	year, month, day, err := parseVisitDate(visitDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	startHour, startMin, err := parseClockToken(startTok)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endHour, endMin, err := parseClockToken(endTok)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	start = time.Date(year, time.Month(month), day, startHour, startMin, 0, 0, loc)
	end = time.Date(year, time.Month(month), day, endHour, endMin, 0, 0, loc)

	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start time must be before end time: %q", domain.ErrValidation, scheduled)
	}

	return start, end, nil
}

func parseVisitDate(visitDate string) (year, month, day int, err error) {
	parts := strings.Split(strings.TrimSpace(visitDate), "/")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: invalid visit date %q, expected MM/DD/YYYY", domain.ErrValidation, visitDate)
	}

	month, err = strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, 0, fmt.Errorf("%w: invalid month in visit date %q", domain.ErrValidation, visitDate)
	}
	day, err = strconv.Atoi(parts[1])
	if err != nil || day < 1 || day > 31 {
		return 0, 0, 0, fmt.Errorf("%w: invalid day in visit date %q", domain.ErrValidation, visitDate)
	}
	year, err = strconv.Atoi(parts[2])
	if err != nil || len(parts[2]) != 4 {
		return 0, 0, 0, fmt.Errorf("%w: invalid year in visit date %q", domain.ErrValidation, visitDate)
	}

	return year, month, day, nil
}

func parseClockToken(tok string) (hour, minute int, err error) {
	tok = strings.TrimSpace(tok)
	if len(tok) != 4 {
		return 0, 0, fmt.Errorf("%w: invalid clock token %q, expected HHMM", domain.ErrValidation, tok)
	}

	hour, err = strconv.Atoi(tok[:2])
	if err != nil || hour > 23 {
		return 0, 0, fmt.Errorf("%w: invalid hour in clock token %q", domain.ErrValidation, tok)
	}
	minute, err = strconv.Atoi(tok[2:])
	if err != nil || minute > 59 {
		return 0, 0, fmt.Errorf("%w: invalid minute in clock token %q", domain.ErrValidation, tok)
	}

	return hour, minute, nil
}
