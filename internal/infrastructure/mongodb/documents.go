package mongodb

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradesmatepro/fulfillment-service/internal/domain"
)

// Quantities are stored as strings because decimal.Decimal has no BSON codec
// and float64 would lose precision on fractional material quantities.

func decToString(d decimal.Decimal) string {
	return d.String()
}

func decFromString(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode %s %q: %w", field, value, err)
	}
	return d, nil
}

type jobLineItemDoc struct {
	ItemID           string  `bson:"itemId"`
	LocationID       string  `bson:"locationId"`
	QuantityRequired string  `bson:"quantityRequired"`
	UsedQuantity     *string `bson:"usedQuantity,omitempty"`
}

type jobDoc struct {
	ID        string           `bson:"_id"`
	TenantID  string           `bson:"tenantId"`
	Status    string           `bson:"status"`
	LineItems []jobLineItemDoc `bson:"lineItems"`
	Version   int64            `bson:"version"`
	CreatedAt time.Time        `bson:"createdAt"`
	UpdatedAt time.Time        `bson:"updatedAt"`
}

func toJobDoc(job *domain.Job) *jobDoc {
	items := make([]jobLineItemDoc, len(job.LineItems))
	for i, li := range job.LineItems {
		items[i] = jobLineItemDoc{
			ItemID:           li.ItemID,
			LocationID:       li.LocationID,
			QuantityRequired: decToString(li.QuantityRequired),
		}
		if li.UsedQuantity != nil {
			used := decToString(*li.UsedQuantity)
			items[i].UsedQuantity = &used
		}
	}
	return &jobDoc{
		ID:        job.ID,
		TenantID:  job.TenantID,
		Status:    string(job.Status),
		LineItems: items,
		Version:   job.Version,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

func (d *jobDoc) toDomain() (*domain.Job, error) {
	items := make([]domain.JobLineItem, len(d.LineItems))
	for i, li := range d.LineItems {
		required, err := decFromString("quantityRequired", li.QuantityRequired)
		if err != nil {
			return nil, err
		}
		items[i] = domain.JobLineItem{
			ItemID:           li.ItemID,
			LocationID:       li.LocationID,
			QuantityRequired: required,
		}
		if li.UsedQuantity != nil {
			used, err := decFromString("usedQuantity", *li.UsedQuantity)
			if err != nil {
				return nil, err
			}
			items[i].UsedQuantity = &used
		}
	}
	return &domain.Job{
		ID:        d.ID,
		TenantID:  d.TenantID,
		Status:    domain.JobStatus(d.Status),
		LineItems: items,
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

type reservationDoc struct {
	ID                string     `bson:"_id"`
	TenantID          string     `bson:"tenantId"`
	JobID             string     `bson:"jobId"`
	ItemID            string     `bson:"itemId"`
	LocationID        string     `bson:"locationId"`
	Quantity          string     `bson:"quantity"`
	AllocatedQuantity string     `bson:"allocatedQuantity"`
	Partial           bool       `bson:"partial"`
	Status            string     `bson:"status"`
	CreatedAt         time.Time  `bson:"createdAt"`
	UpdatedAt         time.Time  `bson:"updatedAt"`
	ReleasedAt        *time.Time `bson:"releasedAt,omitempty"`
}

func toReservationDoc(r *domain.Reservation) *reservationDoc {
	return &reservationDoc{
		ID:                r.ID,
		TenantID:          r.TenantID,
		JobID:             r.JobID,
		ItemID:            r.ItemID,
		LocationID:        r.LocationID,
		Quantity:          decToString(r.Quantity),
		AllocatedQuantity: decToString(r.AllocatedQuantity),
		Partial:           r.Partial,
		Status:            string(r.Status),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		ReleasedAt:        r.ReleasedAt,
	}
}

func (d *reservationDoc) toDomain() (*domain.Reservation, error) {
	quantity, err := decFromString("quantity", d.Quantity)
	if err != nil {
		return nil, err
	}
	allocated, err := decFromString("allocatedQuantity", d.AllocatedQuantity)
	if err != nil {
		return nil, err
	}
	return &domain.Reservation{
		ID:                d.ID,
		TenantID:          d.TenantID,
		JobID:             d.JobID,
		ItemID:            d.ItemID,
		LocationID:        d.LocationID,
		Quantity:          quantity,
		AllocatedQuantity: allocated,
		Partial:           d.Partial,
		Status:            domain.ReservationStatus(d.Status),
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
		ReleasedAt:        d.ReleasedAt,
	}, nil
}

type pickListLineDoc struct {
	ItemID            string `bson:"itemId"`
	LocationID        string `bson:"locationId"`
	QuantityRequested string `bson:"quantityRequested"`
	QuantityPicked    string `bson:"quantityPicked"`
	Source            string `bson:"source"`
}

type pickListDoc struct {
	ID        string            `bson:"_id"`
	TenantID  string            `bson:"tenantId"`
	JobID     string            `bson:"jobId"`
	Status    string            `bson:"status"`
	Lines     []pickListLineDoc `bson:"lines"`
	Version   int64             `bson:"version"`
	CreatedAt time.Time         `bson:"createdAt"`
	UpdatedAt time.Time         `bson:"updatedAt"`
	PickedAt  *time.Time        `bson:"pickedAt,omitempty"`
}

func toPickListDoc(p *domain.PickList) *pickListDoc {
	lines := make([]pickListLineDoc, len(p.Lines))
	for i, l := range p.Lines {
		lines[i] = pickListLineDoc{
			ItemID:            l.ItemID,
			LocationID:        l.LocationID,
			QuantityRequested: decToString(l.QuantityRequested),
			QuantityPicked:    decToString(l.QuantityPicked),
			Source:            string(l.Source),
		}
	}
	return &pickListDoc{
		ID:        p.ID,
		TenantID:  p.TenantID,
		JobID:     p.JobID,
		Status:    string(p.Status),
		Lines:     lines,
		Version:   p.Version,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		PickedAt:  p.PickedAt,
	}
}

func (d *pickListDoc) toDomain() (*domain.PickList, error) {
	lines := make([]domain.PickListLine, len(d.Lines))
	for i, l := range d.Lines {
		requested, err := decFromString("quantityRequested", l.QuantityRequested)
		if err != nil {
			return nil, err
		}
		picked, err := decFromString("quantityPicked", l.QuantityPicked)
		if err != nil {
			return nil, err
		}
		lines[i] = domain.PickListLine{
			ItemID:            l.ItemID,
			LocationID:        l.LocationID,
			QuantityRequested: requested,
			QuantityPicked:    picked,
			Source:            domain.LineSource(l.Source),
		}
	}
	return &domain.PickList{
		ID:        d.ID,
		TenantID:  d.TenantID,
		JobID:     d.JobID,
		Status:    domain.PickListStatus(d.Status),
		Lines:     lines,
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		PickedAt:  d.PickedAt,
	}, nil
}

type movementDoc struct {
	ID          string    `bson:"_id"`
	TenantID    string    `bson:"tenantId"`
	ItemID      string    `bson:"itemId"`
	LocationID  string    `bson:"locationId"`
	Type        string    `bson:"type"`
	Quantity    string    `bson:"quantity"`
	ReferenceID string    `bson:"referenceId,omitempty"`
	CreatedAt   time.Time `bson:"createdAt"`
}

func toMovementDoc(m *domain.Movement) *movementDoc {
	return &movementDoc{
		ID:          m.ID,
		TenantID:    m.TenantID,
		ItemID:      m.ItemID,
		LocationID:  m.LocationID,
		Type:        string(m.Type),
		Quantity:    decToString(m.Quantity),
		ReferenceID: m.ReferenceID,
		CreatedAt:   m.CreatedAt,
	}
}

func (d *movementDoc) toDomain() (*domain.Movement, error) {
	quantity, err := decFromString("quantity", d.Quantity)
	if err != nil {
		return nil, err
	}
	return &domain.Movement{
		ID:          d.ID,
		TenantID:    d.TenantID,
		ItemID:      d.ItemID,
		LocationID:  d.LocationID,
		Type:        domain.MovementType(d.Type),
		Quantity:    quantity,
		ReferenceID: d.ReferenceID,
		CreatedAt:   d.CreatedAt,
	}, nil
}

type stockLevelDoc struct {
	ID         string    `bson:"_id"`
	TenantID   string    `bson:"tenantId"`
	ItemID     string    `bson:"itemId"`
	LocationID string    `bson:"locationId"`
	OnHand     string    `bson:"onHand"`
	Reserved   string    `bson:"reserved"`
	Allocated  string    `bson:"allocated"`
	Version    int64     `bson:"version"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

func stockLevelID(itemID, locationID string) string {
	return itemID + "/" + locationID
}

func toStockLevelDoc(s *domain.StockLevel) *stockLevelDoc {
	return &stockLevelDoc{
		ID:         stockLevelID(s.ItemID, s.LocationID),
		TenantID:   s.TenantID,
		ItemID:     s.ItemID,
		LocationID: s.LocationID,
		OnHand:     decToString(s.OnHand),
		Reserved:   decToString(s.Reserved),
		Allocated:  decToString(s.Allocated),
		Version:    s.Version,
		UpdatedAt:  s.UpdatedAt,
	}
}

func (d *stockLevelDoc) toDomain() (*domain.StockLevel, error) {
	onHand, err := decFromString("onHand", d.OnHand)
	if err != nil {
		return nil, err
	}
	reserved, err := decFromString("reserved", d.Reserved)
	if err != nil {
		return nil, err
	}
	allocated, err := decFromString("allocated", d.Allocated)
	if err != nil {
		return nil, err
	}
	return &domain.StockLevel{
		TenantID:   d.TenantID,
		ItemID:     d.ItemID,
		LocationID: d.LocationID,
		OnHand:     onHand,
		Reserved:   reserved,
		Allocated:  allocated,
		Version:    d.Version,
		UpdatedAt:  d.UpdatedAt,
	}, nil
}
