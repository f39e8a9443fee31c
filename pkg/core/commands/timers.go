package commands

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lyra-voice/lyra/pkg/core/types"
)

const (
	slotTime     = "time"
	slotDuration = "duration"
	slotReminder = "reminder_text"
)

func (d Deps) setAlarm(ctx context.Context, entities types.Entities) (string, error) {
	spoken := entities.First(slotTime)
	if spoken == "" {
		return "What time should I set the alarm for?", nil
	}
	at, err := nextClockTime(d.now(), spoken)
	if err != nil {
		return fmt.Sprintf("I didn't catch that time. Try something like %q.", "7:30 AM"), nil
	}
	if d.Scheduler == nil || d.Announce == nil {
		return "Alarms are not set up on this device.", nil
	}
	_, err = d.Scheduler.Schedule(at, "alarm", func() {
		d.Announce("Your alarm is going off.")
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Alarm set for %s.", at.Format("3:04 PM")), nil
}

func (d Deps) setTimer(ctx context.Context, entities types.Entities) (string, error) {
	spoken := entities.First(slotDuration)
	if spoken == "" {
		return "For how long?", nil
	}
	dur, err := parseSpokenDuration(spoken)
	if err != nil || dur <= 0 {
		return fmt.Sprintf("I didn't catch that duration. Try something like %q.", "five minutes"), nil
	}
	if d.Scheduler == nil || d.Announce == nil {
		return "Timers are not set up on this device.", nil
	}
	_, err = d.Scheduler.Schedule(d.now().Add(dur), "timer", func() {
		d.Announce("Your timer is done.")
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Timer set for %s.", speakDuration(dur)), nil
}

func (d Deps) setReminder(ctx context.Context, entities types.Entities) (string, error) {
	what := entities.First(slotReminder)
	if what == "" {
		return "What should I remind you about?", nil
	}

	var at time.Time
	switch {
	case entities.Has(slotTime):
		t, err := nextClockTime(d.now(), entities.First(slotTime))
		if err != nil {
			return fmt.Sprintf("I didn't catch that time. Try something like %q.", "7:30 AM"), nil
		}
		at = t
	case entities.Has(slotDuration):
		dur, err := parseSpokenDuration(entities.First(slotDuration))
		if err != nil || dur <= 0 {
			return fmt.Sprintf("I didn't catch that duration. Try something like %q.", "ten minutes"), nil
		}
		at = d.now().Add(dur)
	default:
		return "When should I remind you?", nil
	}

	if d.Scheduler == nil || d.Announce == nil {
		return "Reminders are not set up on this device.", nil
	}
	_, err := d.Scheduler.Schedule(at, "reminder", func() {
		d.Announce("Here is your reminder: " + what)
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("I will remind you about %s at %s.", what, at.Format("3:04 PM")), nil
}

var clockPattern = regexp.MustCompile(`(?i)^\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?\s*$`)

// nextClockTime resolves a spoken clock time ("7:30 AM", "19:15", "7 pm") to
// its next occurrence after now.
func nextClockTime(now time.Time, spoken string) (time.Time, error) {
	m := clockPattern.FindStringSubmatch(spoken)
	if m == nil {
		return time.Time{}, fmt.Errorf("unrecognized clock time %q", spoken)
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	meridiem := strings.ToLower(strings.ReplaceAll(m[3], ".", ""))
	switch meridiem {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return time.Time{}, fmt.Errorf("clock time %q out of range", spoken)
	}

	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !at.After(now) {
		at = at.Add(24 * time.Hour)
	}
	return at, nil
}

var durationPattern = regexp.MustCompile(`(?i)(\d+|a|an|one|two|three|four|five|ten|fifteen|twenty|thirty|forty five|sixty|half an?)\s*(hours?|minutes?|seconds?)`)

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"ten": 10, "fifteen": 15, "twenty": 20, "thirty": 30, "forty five": 45, "sixty": 60,
}

// parseSpokenDuration turns phrases like "five minutes", "2 hours" or
// "90 seconds" into a duration. "half an hour" is the one fraction people
// actually say, so it gets a case.
func parseSpokenDuration(spoken string) (time.Duration, error) {
	spoken = strings.ToLower(strings.TrimSpace(spoken))
	matches := durationPattern.FindAllStringSubmatch(spoken, -1)
	if len(matches) == 0 {
		// Fall back to Go syntax ("5m30s") for typed input.
		if dur, err := time.ParseDuration(spoken); err == nil {
			return dur, nil
		}
		return 0, fmt.Errorf("unrecognized duration %q", spoken)
	}

	var total time.Duration
	for _, m := range matches {
		quantity := m[1]
		unit := strings.TrimSuffix(m[2], "s")

		var unitDur time.Duration
		switch unit {
		case "hour":
			unitDur = time.Hour
		case "minute":
			unitDur = time.Minute
		case "second":
			unitDur = time.Second
		}

		if strings.HasPrefix(quantity, "half") {
			total += unitDur / 2
			continue
		}
		n, err := strconv.Atoi(quantity)
		if err != nil {
			word, ok := numberWords[quantity]
			if !ok {
				return 0, fmt.Errorf("unrecognized quantity %q", quantity)
			}
			n = word
		}
		total += time.Duration(n) * unitDur
	}
	return total, nil
}

func speakDuration(d time.Duration) string {
	d = d.Round(time.Second)
	var parts []string
	if h := int(d.Hours()); h > 0 {
		parts = append(parts, plural(h, "hour"))
		d -= time.Duration(h) * time.Hour
	}
	if m := int(d.Minutes()); m > 0 {
		parts = append(parts, plural(m, "minute"))
		d -= time.Duration(m) * time.Minute
	}
	if s := int(d.Seconds()); s > 0 || len(parts) == 0 {
		parts = append(parts, plural(s, "second"))
	}
	return strings.Join(parts, " and ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
