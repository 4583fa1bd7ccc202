package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/restaurant-seating/internal/config"
	"github.com/iliyamo/restaurant-seating/internal/database"
	"github.com/iliyamo/restaurant-seating/internal/model"
	"github.com/iliyamo/restaurant-seating/internal/repository"
	"github.com/iliyamo/restaurant-seating/internal/service"
)

// seed loads a rotary sushi bar: a twelve-stool counter, four four-top
// tables and a handful of reservations and walk-ins in every state the
// floor staff will meet.  It does nothing when seats already exist.
func main() {
	cfg := config.Load()
	db, dialect, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	seats := repository.NewSeatRepo(db, dialect)
	occupants := repository.NewOccupantRepo(db, dialect)
	claims := repository.NewAllocationRepo(db, dialect)
	ctl := service.NewController(db, seats, occupants, claims, cfg.Venue.DiningDuration)

	existing, err := seats.ListSections(ctx)
	if err != nil {
		log.Fatalf("seed: list sections: %v", err)
	}
	if len(existing) > 0 {
		log.Printf("seed: %d sections already present; nothing to do", len(existing))
		return
	}

	counter := section(ctx, seats, "Sushi Counter", "counter")
	for i := 1; i <= 12; i++ {
		seat(ctx, seats, counter.ID, fmt.Sprintf("C%d", i), 1)
	}
	tables := section(ctx, seats, "Tables", "table")
	var tableIDs []uint64
	for i := 1; i <= 4; i++ {
		tableIDs = append(tableIDs, seat(ctx, seats, tables.ID, fmt.Sprintf("T%d", i), 4).ID)
	}

	now := time.Now().UTC().Truncate(time.Minute)
	reservation(ctx, occupants, "Leon Shimizu", "671-483-0219", "leon@example.com", 2, now.Add(24*time.Hour))
	reservation(ctx, occupants, "Kami Shimizu", "671-777-9724", "kami@example.com", 4, now.Add(48*time.Hour))
	reservation(ctx, occupants, "Dinner Group", "671-222-9999", "group@example.com", 5, now.Add(2*time.Hour))
	reservation(ctx, occupants, "Late Nighter", "671-123-4444", "night@example.com", 3, now.Add(12*time.Hour))
	canceled := reservation(ctx, occupants, "Canceled Example", "671-555-0000", "cancel@example.com", 2, now.Add(24*time.Hour))
	if _, err := ctl.Cancel(ctx, canceled); err != nil {
		log.Fatalf("seed: cancel: %v", err)
	}

	walkIn(ctx, occupants, "Walk-in Joe", 3, now)
	walkIn(ctx, occupants, "Party of Six", 6, now.Add(-30*time.Minute))
	nancy := walkIn(ctx, occupants, "No-Show Nancy", 2, now.Add(-time.Hour))
	if _, err := ctl.NoShow(ctx, nancy); err != nil {
		log.Fatalf("seed: no-show: %v", err)
	}
	rita := walkIn(ctx, occupants, "Reserved Rita", 4, now.Add(-15*time.Minute))
	if _, err := ctl.Reserve(ctx, service.AdmitRequest{Occupant: rita, SeatIDs: tableIDs[:1]}); err != nil {
		log.Fatalf("seed: reserve: %v", err)
	}
	log.Printf("seed: done")
}

func section(ctx context.Context, seats *repository.SeatRepo, name, kind string) model.SeatSection {
	s := model.SeatSection{Name: name, SectionType: kind}
	if err := seats.CreateSection(ctx, &s); err != nil {
		log.Fatalf("seed: section %s: %v", name, err)
	}
	return s
}

func seat(ctx context.Context, seats *repository.SeatRepo, sectionID uint64, label string, capacity uint32) model.Seat {
	s := model.Seat{SectionID: sectionID, Label: label, Capacity: capacity, IsActive: true}
	if err := seats.Create(ctx, &s); err != nil {
		log.Fatalf("seed: seat %s: %v", label, err)
	}
	return s
}

func reservation(ctx context.Context, occupants *repository.OccupantRepo, name, phone, email string, party int, start time.Time) model.OccupantRef {
	r := &model.Reservation{StartTime: start, PartySize: party, ContactName: name, ContactPhone: phone, ContactEmail: email}
	if err := occupants.CreateReservation(ctx, r); err != nil {
		log.Fatalf("seed: reservation %s: %v", name, err)
	}
	return r.Ref()
}

func walkIn(ctx context.Context, occupants *repository.OccupantRepo, name string, party int, checkIn time.Time) model.OccupantRef {
	w := &model.WaitlistEntry{PartySize: party, ContactName: name, CheckInTime: checkIn}
	if err := occupants.CreateWaitlistEntry(ctx, w); err != nil {
		log.Fatalf("seed: walk-in %s: %v", name, err)
	}
	return w.Ref()
}
