package dto

import (
	"time"

	"barstock/internal/domain/availability"
)

// AvailabilityResponse represents the derived availability of one product.
// DisplayStock is the clamped figure for checkout screens; AvailableStock
// keeps the true (possibly negative) value for diagnostics.
type AvailabilityResponse struct {
	ProductID         string `json:"productId"`
	PhysicalStock     int    `json:"physicalStock"`
	ConsignedStock    int    `json:"consignedStock"`
	PendingDeductions int    `json:"pendingDeductions"`
	AvailableStock    int    `json:"availableStock"`
	DisplayStock      int    `json:"displayStock"`
	LowStock          bool   `json:"lowStock"`
	Oversold          bool   `json:"oversold"`
}

// FromRecord converts an engine record to response DTO.
func FromRecord(r availability.Record) AvailabilityResponse {
	return AvailabilityResponse{
		ProductID:         r.ProductID.String(),
		PhysicalStock:     r.PhysicalStock,
		ConsignedStock:    r.ConsignedStock,
		PendingDeductions: r.PendingDeductions,
		AvailableStock:    r.AvailableStock,
		DisplayStock:      r.DisplayStock(),
		LowStock:          r.LowStock,
		Oversold:          r.Oversold(),
	}
}

// AvailabilityListResponse represents availability for every known product.
type AvailabilityListResponse struct {
	Items   []AvailabilityResponse `json:"items"`
	Sources []SourceStatusResponse `json:"sources"`
}

// SourceStatusResponse reports the freshness of one engine input family.
type SourceStatusResponse struct {
	Source     string    `json:"source"`
	ObservedAt time.Time `json:"observedAt"`
	Stale      bool      `json:"stale"`
	LastError  string    `json:"lastError,omitempty"`
}

// FromSourceStatus converts an engine source status to response DTO.
func FromSourceStatus(s availability.SourceStatus) SourceStatusResponse {
	return SourceStatusResponse{
		Source:     string(s.Source),
		ObservedAt: s.ObservedAt,
		Stale:      s.Stale,
		LastError:  s.LastError,
	}
}

// FromSourceStatuses converts all source statuses.
func FromSourceStatuses(statuses []availability.SourceStatus) []SourceStatusResponse {
	out := make([]SourceStatusResponse, len(statuses))
	for i, s := range statuses {
		out[i] = FromSourceStatus(s)
	}
	return out
}
