package callbacks

import (
	"strconv"
	"strings"

	"github.com/m3rciful/openspace/core/telegram/event"
)

// PayloadInt64 parses callback payload as int64.
func PayloadInt64(ev event.Event) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(ev.CallbackArg), 10, 64)
}

// PayloadInt parses callback payload as int.
func PayloadInt(ev event.Event) (int, error) {
	return strconv.Atoi(strings.TrimSpace(ev.CallbackArg))
}

// PayloadFloat64 parses callback payload as float64.
func PayloadFloat64(ev event.Event) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(ev.CallbackArg), 64)
}

// PayloadParts splits the callback payload into parts using the given separator.
func PayloadParts(ev event.Event, sep string) ([]string, error) {
	if ev.CallbackArg == "" {
		return nil, strconv.ErrSyntax
	}
	return strings.Split(ev.CallbackArg, sep), nil
}

// PayloadTwoInt64 parses callback payload like "123|456" into two int64 values.
func PayloadTwoInt64(ev event.Event, sep string) (int64, int64, error) {
	parts, err := PayloadParts(ev, sep)
	if err != nil {
		return 0, 0, err
	}
	if len(parts) != 2 {
		return 0, 0, strconv.ErrSyntax
	}
	a, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
