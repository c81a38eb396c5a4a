package materials

import (
	"time"

	"github.com/google/uuid"
)

type Unit string

const (
	UnitKg     Unit = "kg"
	UnitPcs    Unit = "pcs"
	UnitMeters Unit = "meters"
)

// Material — партия металла: марка, размер и сопроводительные документы.
type Material struct {
	ID                int64
	ExternalID        uuid.UUID // для QR-этикеток и внешних систем
	Grade             string
	Size              string
	Supplier          string
	OrderNumber       string
	CertificateNumber string
	HeatNumber        string
	Quantity          float64
	Unit              Unit
	Location          string
	Deleted           bool
	DeletedAt         *time.Time
	CreatedAt         time.Time
}

// Descriptor — то, по чему работают правила УЗК/ППСД.
type Descriptor struct {
	Grade string
	Size  string
}

func (m Material) Descriptor() Descriptor { return Descriptor{Grade: m.Grade, Size: m.Size} }

// NewInput — поля новой партии.
type NewInput struct {
	Grade             string
	Size              string
	Supplier          string
	OrderNumber       string
	CertificateNumber string
	HeatNumber        string
	Quantity          float64
	Unit              Unit
	Location          string
}
