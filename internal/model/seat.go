package model

// SeatSection groups seats that are laid out next to each other, such as a
// sushi counter or a row of tables.  Geometry is owned by the layout editor;
// the seating core only needs the membership to scan for consecutive seats.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name of the section (e.g. "Counter").
//  SectionType – free-form type reported by the layout editor (counter, table).
type SeatSection struct {
	ID          uint64 // seat_sections.id
	Name        string // seat_sections.name
	SectionType string // seat_sections.section_type
}

// Seat describes a physical seat (a stool or a table) in the venue.
// Capacity is the number of guests the seat can hold and is always at
// least one.  Seats are ordered within a section by ID; that order is
// the one used when a party is seated across consecutive seats.
//
// Fields:
//  ID        – primary key identifier.
//  SectionID – section the seat belongs to.
//  Label     – short label printed on the floor plan (e.g. "C4").
//  Capacity  – number of guests the seat holds (>= 1).
//  IsActive  – false once the layout editor removed the seat.
type Seat struct {
	ID        uint64 // seats.id
	SectionID uint64 // seats.section_id
	Label     string // seats.label
	Capacity  uint32 // seats.capacity
	IsActive  bool   // seats.is_active
}
