package application

import (
	"github.com/tradesmatepro/fulfillment-service/internal/domain"
)

func toJobDTO(job *domain.Job, badge domain.Badge) *JobDTO {
	items := make([]JobLineItemDTO, len(job.LineItems))
	for i, item := range job.LineItems {
		items[i] = JobLineItemDTO{
			ItemID:           item.ItemID,
			LocationID:       item.LocationID,
			QuantityRequired: item.QuantityRequired,
			UsedQuantity:     item.UsedQuantity,
		}
	}

	return &JobDTO{
		ID:        job.ID,
		Status:    string(job.Status),
		LineItems: items,
		Badge:     string(badge),
		Version:   job.Version,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

func toSnapshotDTO(s *domain.Snapshot) *StockSnapshotDTO {
	return &StockSnapshotDTO{
		ItemID:     s.ItemID,
		LocationID: s.LocationID,
		OnHand:     s.OnHand,
		Reserved:   s.Reserved,
		Allocated:  s.Allocated,
		Available:  s.Available,
	}
}

func toMovementDTO(m *domain.Movement) MovementDTO {
	return MovementDTO{
		ID:          m.ID,
		ItemID:      m.ItemID,
		LocationID:  m.LocationID,
		Type:        string(m.Type),
		Quantity:    m.Quantity,
		ReferenceID: m.ReferenceID,
		CreatedAt:   m.CreatedAt,
	}
}

func toMovementDTOs(movements []*domain.Movement) []MovementDTO {
	dtos := make([]MovementDTO, len(movements))
	for i, m := range movements {
		dtos[i] = toMovementDTO(m)
	}
	return dtos
}

func toReservationDTO(r *domain.Reservation) *ReservationDTO {
	return &ReservationDTO{
		ID:                r.ID,
		JobID:             r.JobID,
		ItemID:            r.ItemID,
		LocationID:        r.LocationID,
		Quantity:          r.Quantity,
		AllocatedQuantity: r.AllocatedQuantity,
		Partial:           r.Partial,
		Status:            string(r.Status),
		CreatedAt:         r.CreatedAt,
		ReleasedAt:        r.ReleasedAt,
	}
}

func toReservationDTOs(reservations []*domain.Reservation) []ReservationDTO {
	dtos := make([]ReservationDTO, len(reservations))
	for i, r := range reservations {
		dtos[i] = *toReservationDTO(r)
	}
	return dtos
}

func toPickListDTO(p *domain.PickList) *PickListDTO {
	lines := make([]PickListLineDTO, len(p.Lines))
	for i := range p.Lines {
		line := &p.Lines[i]
		lines[i] = PickListLineDTO{
			ItemID:            line.ItemID,
			LocationID:        line.LocationID,
			QuantityRequested: line.QuantityRequested,
			QuantityPicked:    line.QuantityPicked,
			Source:            string(line.Source),
			Fulfilled:         line.Fulfilled(),
		}
	}

	return &PickListDTO{
		ID:        p.ID,
		JobID:     p.JobID,
		Status:    string(p.Status),
		Badge:     string(domain.BadgeFor(p)),
		Lines:     lines,
		Version:   p.Version,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		PickedAt:  p.PickedAt,
	}
}
