package availability

// StatusCancelled is the appointment status that never blocks a slot.
const StatusCancelled = "cancelled"

// Booking is an appointment occupying part of a consultant's day.
type Booking struct {
	ID         string
	CustomerID string
	Start      TimeOfDay
	End        TimeOfDay
	Status     string
}

// Blocks reports whether the booking occupies its interval.
func (b Booking) Blocks() bool {
	return b.Status != StatusCancelled
}

// MarkBooked returns a copy of slots with Available recomputed against bookings.
func MarkBooked(slots []Slot, bookings []Booking) []Slot {
	out := make([]Slot, len(slots))
	for i, slot := range slots {
		slot.Available = !isBooked(slot, bookings)
		out[i] = slot
	}
	return out
}

// AvailableOnly keeps the slots still marked available.
func AvailableOnly(slots []Slot) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		if slot.Available {
			out = append(out, slot)
		}
	}
	return out
}

// FilterBooked drops every slot that overlaps a non-cancelled booking.
func FilterBooked(slots []Slot, bookings []Booking) []Slot {
	return AvailableOnly(MarkBooked(slots, bookings))
}

func isBooked(slot Slot, bookings []Booking) bool {
	for _, b := range bookings {
		if b.Blocks() && Overlaps(slot.Start, slot.End, b.Start, b.End) {
			return true
		}
	}
	return false
}
