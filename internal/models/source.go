package models

import "fmt"

// SourceKind discriminates an order's lineage.
type SourceKind string

const (
	SourceService SourceKind = "service"
	SourceGigBid  SourceKind = "gig_bid"
)

// OrderSource is a tagged union: an order comes either from a direct service
// booking or from an accepted bid on a gig, never both and never neither.
type OrderSource struct {
	Kind      SourceKind `json:"kind"`
	ServiceID string     `json:"service_id,omitempty"`
	GigID     string     `json:"gig_id,omitempty"`
	BidID     string     `json:"bid_id,omitempty"`
}

// ServiceSource builds the lineage for a direct service booking.
func ServiceSource(serviceID string) OrderSource {
	return OrderSource{Kind: SourceService, ServiceID: serviceID}
}

// GigBidSource builds the lineage for an accepted bid.
func GigBidSource(gigID, bidID string) OrderSource {
	return OrderSource{Kind: SourceGigBid, GigID: gigID, BidID: bidID}
}

// Validate rejects any lineage that is not exactly one of the two variants.
func (s OrderSource) Validate() error {
	switch s.Kind {
	case SourceService:
		if s.ServiceID == "" || s.GigID != "" || s.BidID != "" {
			return fmt.Errorf("service source must carry exactly a service id")
		}
	case SourceGigBid:
		if s.GigID == "" || s.BidID == "" || s.ServiceID != "" {
			return fmt.Errorf("gig_bid source must carry gig and bid ids only")
		}
	default:
		return fmt.Errorf("unknown order source kind: %q", s.Kind)
	}
	return nil
}
