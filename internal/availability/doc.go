// Package availability computes bookable consultant time slots.
//
// The package is free of I/O. Callers load a weekly template, the per-date
// overrides and the booked appointments, and the functions here resolve the
// effective working window of each day, slice it into fixed-length slots and
// drop the slots that collide with breaks or bookings. Times of day are
// carried as integer minutes since midnight and only formatted as "HH:MM" at
// the boundary.
package availability
