package booking

import (
	"fmt"
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// parseClock converts a wall-clock "HH:MM" string to minutes since midnight.
func parseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: time %q is not HH:MM", ErrValidation, s)
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
		return 0, fmt.Errorf("%w: time %q is not HH:MM", ErrValidation, s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: time %q out of range", ErrValidation, s)
	}
	return h*60 + m, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func validDate(s string) error {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrValidation, s)
	}
	return nil
}

// slotsForBlock walks the block from start to end in slotMinutes increments.
// A trailing remainder shorter than a full slot is not emitted. Freedom is
// filled in by the caller.
func slotsForBlock(b *AvailabilityBlock, slotMinutes int) ([]Slot, error) {
	start, err := parseClock(b.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := parseClock(b.EndTime)
	if err != nil {
		return nil, err
	}
	if start >= end {
		return nil, fmt.Errorf("%w: block %s start %s is not before end %s", ErrValidation, b.ID, b.StartTime, b.EndTime)
	}

	var slots []Slot
	for at := start; at+slotMinutes <= end; at += slotMinutes {
		slots = append(slots, Slot{
			BlockID:   b.ID,
			StartTime: formatClock(at),
			EndTime:   formatClock(at + slotMinutes),
			Free:      true,
		})
	}
	return slots, nil
}

func sortSlots(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].StartTime != slots[j].StartTime {
			return slots[i].StartTime < slots[j].StartTime
		}
		return slots[i].BlockID.String() < slots[j].BlockID.String()
	})
}
