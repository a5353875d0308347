package models

import (
	"time"

	"github.com/erp/supplier-portal/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProviderModel is the persistence model for the Provider domain entity.
type ProviderModel struct {
	BaseModel
	NIT          string                     `gorm:"column:nit;type:varchar(50);not null;uniqueIndex:idx_provider_nit"`
	LegalName    string                     `gorm:"type:varchar(200);not null"`
	Email        string                     `gorm:"type:varchar(200);not null"`
	Mobile       string                     `gorm:"type:varchar(50);not null"`
	Phone        string                     `gorm:"type:varchar(50)"`
	City         string                     `gorm:"type:varchar(100)"`
	Address      string                     `gorm:"type:text"`
	PasswordHash string                     `gorm:"type:varchar(255);not null"`
	Status       procurement.ProviderStatus `gorm:"type:varchar(20);not null;default:'activo'"`
}

// TableName returns the table name for GORM
func (ProviderModel) TableName() string {
	return "providers"
}

// ToDomain converts the persistence model to a domain Provider entity.
func (m *ProviderModel) ToDomain() *procurement.Provider {
	return &procurement.Provider{
		BaseEntity:   m.BaseModel.entity(),
		NIT:          m.NIT,
		LegalName:    m.LegalName,
		Email:        m.Email,
		Mobile:       m.Mobile,
		Phone:        m.Phone,
		City:         m.City,
		Address:      m.Address,
		PasswordHash: m.PasswordHash,
		Status:       m.Status,
	}
}

// FromDomain populates the persistence model from a domain Provider entity.
func (m *ProviderModel) FromDomain(p *procurement.Provider) {
	m.BaseModel = baseFromEntity(p.BaseEntity)
	m.NIT = p.NIT
	m.LegalName = p.LegalName
	m.Email = p.Email
	m.Mobile = p.Mobile
	m.Phone = p.Phone
	m.City = p.City
	m.Address = p.Address
	m.PasswordHash = p.PasswordHash
	m.Status = p.Status
}

// ProviderModelFromDomain creates a new persistence model from a domain Provider entity.
func ProviderModelFromDomain(p *procurement.Provider) *ProviderModel {
	m := &ProviderModel{}
	m.FromDomain(p)
	return m
}

// PurchaseOrderModel is the persistence model for the PurchaseOrder domain entity.
type PurchaseOrderModel struct {
	BaseModel
	ProviderID          uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex:idx_purchase_order_provider_document,priority:1"`
	DocumentNumber      string                     `gorm:"type:varchar(50);not null;uniqueIndex:idx_purchase_order_provider_document,priority:2"`
	ExternalID          *string                    `gorm:"type:varchar(100)"`
	DocumentType        string                     `gorm:"type:varchar(20)"`
	OrderDate           time.Time                  `gorm:"not null"`
	City                string                     `gorm:"type:varchar(100)"`
	Reference           string                     `gorm:"type:varchar(200)"`
	Description         string                     `gorm:"type:text"`
	Notes               string                     `gorm:"type:text"`
	BuyerName           string                     `gorm:"type:varchar(200)"`
	Subtotal            decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	Tax                 decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	Total               decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	GlobalDiscount      decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	Status              procurement.OrderStatus    `gorm:"type:varchar(20);not null;default:'pendiente'"`
	DeliveryStatus      procurement.DeliveryStatus `gorm:"type:varchar(20);not null;default:'no_entregada'"`
	EstimatedDeliveryAt *time.Time
	TrackingNumber      *string                       `gorm:"type:varchar(100)"`
	InvoiceNumber       *string                       `gorm:"type:varchar(100)"`
	NotificationState   procurement.NotificationState `gorm:"not null;default:0;index"`
	NotifiedAt          *time.Time
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the persistence model to a domain PurchaseOrder entity.
func (m *PurchaseOrderModel) ToDomain() *procurement.PurchaseOrder {
	return &procurement.PurchaseOrder{
		BaseEntity:          m.BaseModel.entity(),
		ProviderID:          m.ProviderID,
		ExternalID:          m.ExternalID,
		DocumentType:        m.DocumentType,
		DocumentNumber:      m.DocumentNumber,
		OrderDate:           m.OrderDate,
		City:                m.City,
		Reference:           m.Reference,
		Description:         m.Description,
		Notes:               m.Notes,
		BuyerName:           m.BuyerName,
		Subtotal:            m.Subtotal,
		Tax:                 m.Tax,
		Total:               m.Total,
		GlobalDiscount:      m.GlobalDiscount,
		Status:              m.Status,
		DeliveryStatus:      m.DeliveryStatus,
		EstimatedDeliveryAt: m.EstimatedDeliveryAt,
		TrackingNumber:      m.TrackingNumber,
		InvoiceNumber:       m.InvoiceNumber,
		Notification:        m.NotificationState,
		NotifiedAt:          m.NotifiedAt,
	}
}

// FromDomain populates the persistence model from a domain PurchaseOrder entity.
func (m *PurchaseOrderModel) FromDomain(o *procurement.PurchaseOrder) {
	m.BaseModel = baseFromEntity(o.BaseEntity)
	m.ProviderID = o.ProviderID
	m.ExternalID = o.ExternalID
	m.DocumentType = o.DocumentType
	m.DocumentNumber = o.DocumentNumber
	m.OrderDate = o.OrderDate
	m.City = o.City
	m.Reference = o.Reference
	m.Description = o.Description
	m.Notes = o.Notes
	m.BuyerName = o.BuyerName
	m.Subtotal = o.Subtotal
	m.Tax = o.Tax
	m.Total = o.Total
	m.GlobalDiscount = o.GlobalDiscount
	m.Status = o.Status
	m.DeliveryStatus = o.DeliveryStatus
	m.EstimatedDeliveryAt = o.EstimatedDeliveryAt
	m.TrackingNumber = o.TrackingNumber
	m.InvoiceNumber = o.InvoiceNumber
	m.NotificationState = o.Notification
	m.NotifiedAt = o.NotifiedAt
}

// PurchaseOrderModelFromDomain creates a new persistence model from a domain PurchaseOrder entity.
func PurchaseOrderModelFromDomain(o *procurement.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{}
	m.FromDomain(o)
	return m
}

// OrderLineModel is the persistence model for the OrderLine domain entity.
type OrderLineModel struct {
	BaseModel
	PurchaseOrderID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_order_line_order_reference,priority:1"`
	Reference       string          `gorm:"type:varchar(200);not null;uniqueIndex:idx_order_line_order_reference,priority:2"`
	Description     string          `gorm:"type:text"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Tax             decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Total           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ToDomain converts the persistence model to a domain OrderLine entity.
func (m *OrderLineModel) ToDomain() *procurement.OrderLine {
	return &procurement.OrderLine{
		BaseEntity:      m.BaseModel.entity(),
		PurchaseOrderID: m.PurchaseOrderID,
		Reference:       m.Reference,
		Description:     m.Description,
		Quantity:        m.Quantity,
		UnitPrice:       m.UnitPrice,
		Tax:             m.Tax,
		Total:           m.Total,
	}
}

// FromDomain populates the persistence model from a domain OrderLine entity.
func (m *OrderLineModel) FromDomain(l *procurement.OrderLine) {
	m.BaseModel = baseFromEntity(l.BaseEntity)
	m.PurchaseOrderID = l.PurchaseOrderID
	m.Reference = l.Reference
	m.Description = l.Description
	m.Quantity = l.Quantity
	m.UnitPrice = l.UnitPrice
	m.Tax = l.Tax
	m.Total = l.Total
}

// OrderLineModelFromDomain creates a new persistence model from a domain OrderLine entity.
func OrderLineModelFromDomain(l *procurement.OrderLine) *OrderLineModel {
	m := &OrderLineModel{}
	m.FromDomain(l)
	return m
}

// SyncRunModel is the persistence model for the SyncRun audit record.
type SyncRunModel struct {
	ID               uuid.UUID               `gorm:"type:uuid;primary_key"`
	StartedAt        time.Time               `gorm:"not null;index"`
	EndedAt          *time.Time              `gorm:"index"`
	Status           procurement.SyncStatus  `gorm:"type:varchar(20);not null;index"`
	Trigger          procurement.SyncTrigger `gorm:"type:varchar(20);not null;default:'scheduled'"`
	RecordsProcessed int                     `gorm:"not null;default:0"`
	OrdersCreated    int                     `gorm:"not null;default:0"`
	OrdersUpdated    int                     `gorm:"not null;default:0"`
	GroupsSkipped    int                     `gorm:"not null;default:0"`
	GroupsFailed     int                     `gorm:"not null;default:0"`
	ErrorMessage     string                  `gorm:"type:text"`
	NextScheduledAt  *time.Time
}

// TableName returns the table name for GORM
func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// ToDomain converts the persistence model to a domain SyncRun.
func (m *SyncRunModel) ToDomain() *procurement.SyncRun {
	return &procurement.SyncRun{
		ID:        m.ID,
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
		Status:    m.Status,
		Trigger:   m.Trigger,
		Counts: procurement.SyncCounts{
			RecordsProcessed: m.RecordsProcessed,
			OrdersCreated:    m.OrdersCreated,
			OrdersUpdated:    m.OrdersUpdated,
			GroupsSkipped:    m.GroupsSkipped,
			GroupsFailed:     m.GroupsFailed,
		},
		ErrorMessage:    m.ErrorMessage,
		NextScheduledAt: m.NextScheduledAt,
	}
}

// FromDomain populates the persistence model from a domain SyncRun.
func (m *SyncRunModel) FromDomain(r *procurement.SyncRun) {
	m.ID = r.ID
	m.StartedAt = r.StartedAt
	m.EndedAt = r.EndedAt
	m.Status = r.Status
	m.Trigger = r.Trigger
	m.RecordsProcessed = r.Counts.RecordsProcessed
	m.OrdersCreated = r.Counts.OrdersCreated
	m.OrdersUpdated = r.Counts.OrdersUpdated
	m.GroupsSkipped = r.Counts.GroupsSkipped
	m.GroupsFailed = r.Counts.GroupsFailed
	m.ErrorMessage = r.ErrorMessage
	m.NextScheduledAt = r.NextScheduledAt
}

// SyncRunModelFromDomain creates a new persistence model from a domain SyncRun.
func SyncRunModelFromDomain(r *procurement.SyncRun) *SyncRunModel {
	m := &SyncRunModel{}
	m.FromDomain(r)
	return m
}

// ProcurementModels lists every model owned by the procurement context, in
// dependency order, for AutoMigrate in tests and local development.
func ProcurementModels() []any {
	return []any{
		&ProviderModel{},
		&PurchaseOrderModel{},
		&OrderLineModel{},
		&SyncRunModel{},
	}
}
