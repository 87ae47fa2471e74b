package ledger

import (
	"sort"
	"time"
)

// Totals summarizes a record set. WinRate is win/(win+lose) as a percentage;
// disconnects do not count against it.
type Totals struct {
	Win        int
	Lose       int
	Disconnect int
	WinRate    float64
}

// ComputeTotals tallies records. Any result other than lose or disconnect
// counts as a win, matching how the CSV has historically been read.
func ComputeTotals(records []Record) Totals {
	var t Totals
	for _, rec := range records {
		switch rec.Result {
		case "lose":
			t.Lose++
		case "disconnect":
			t.Disconnect++
		default:
			t.Win++
		}
	}
	if decided := t.Win + t.Lose; decided > 0 {
		t.WinRate = float64(t.Win) / float64(decided) * 100.0
	}
	return t
}

// DayCount is one day's tally.
type DayCount struct {
	Date       time.Time // midnight, local
	Win        int
	Lose       int
	Disconnect int
}

// AggregateByDay buckets records per local calendar day, sorted ascending.
// Zero start/end bounds mean unbounded.
func AggregateByDay(records []Record, start, end time.Time) []DayCount {
	byDay := make(map[time.Time]*DayCount)
	for _, rec := range records {
		y, m, d := rec.Timestamp.Local().Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
		if !start.IsZero() && day.Before(start) {
			continue
		}
		if !end.IsZero() && day.After(end) {
			continue
		}
		count, ok := byDay[day]
		if !ok {
			count = &DayCount{Date: day}
			byDay[day] = count
		}
		switch rec.Result {
		case "lose":
			count.Lose++
		case "disconnect":
			count.Disconnect++
		default:
			count.Win++
		}
	}

	out := make([]DayCount, 0, len(byDay))
	for _, count := range byDay {
		out = append(out, *count)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
