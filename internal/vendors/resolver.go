package vendors

import (
	"context"

	"github.com/angelmondragon/printbridge-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/printbridge-backend/pkg/errors"
	"github.com/angelmondragon/printbridge-backend/pkg/logger"
	"github.com/angelmondragon/printbridge-backend/pkg/types"
)

// Source records which signal identified the vendor.
type Source string

const (
	SourceExplicit     Source = "explicit"
	SourceSessionEntry Source = "session_entry"
	SourcePaymentURL   Source = "payment_url"
	SourceHeader       Source = "source_header"
	SourceNone         Source = "none"
)

// Hints carries transport-level signals that are not part of the order body.
type Hints struct {
	SourceURL string
	Platform  enums.Platform
}

// Resolution is the resolver's answer. VendorID is 0 when Resolved is false.
// StoreURL is the normalized URL the order came from, when one was found.
type Resolution struct {
	VendorID int64
	StoreURL string
	Source   Source
	Resolved bool
}

type ResolverParams struct {
	Repo   Repository
	Logger *logger.Logger
}

type Resolver struct {
	repo Repository
	logg *logger.Logger
}

func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "vendor repository required")
	}
	return &Resolver{repo: params.Repo, logg: params.Logger}, nil
}

type candidate struct {
	raw    string
	source Source
}

// Resolve maps event to a vendor. An explicit vendor id wins when that vendor
// exists. Otherwise the store URL candidates are tried in order (attribution
// session entry, payment URL, sender source header) against active store
// connections. Lookup failures are returned; not finding a vendor is not an error.
func (r *Resolver) Resolve(ctx context.Context, event *types.OrderEvent, hints Hints) (Resolution, error) {
	if event == nil {
		return Resolution{Source: SourceNone}, pkgerrors.New(pkgerrors.CodeValidation, "order event required")
	}

	candidates := []candidate{
		{raw: event.Meta(types.MetaSessionEntry), source: SourceSessionEntry},
		{raw: event.PaymentURL, source: SourcePaymentURL},
		{raw: hints.SourceURL, source: SourceHeader},
	}
	firstURL := ""
	for _, c := range candidates {
		if norm, ok := NormalizeStoreURL(c.raw); ok {
			firstURL = norm
			break
		}
	}

	if id, ok := explicitVendorID(event); ok {
		vendor, err := r.repo.FindVendorByID(ctx, id)
		if err != nil {
			return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup vendor")
		}
		if vendor != nil {
			return Resolution{VendorID: vendor.ID, StoreURL: firstURL, Source: SourceExplicit, Resolved: true}, nil
		}
		if r.logg != nil {
			r.logg.Warn(r.logg.WithVendorID(ctx, id), "explicit vendor id does not exist, falling back to store url")
		}
	}

	for _, c := range candidates {
		norm, ok := NormalizeStoreURL(c.raw)
		if !ok {
			continue
		}
		conn, err := r.repo.FindActiveConnectionByURL(ctx, norm)
		if err != nil {
			return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup store connection")
		}
		if conn != nil {
			return Resolution{VendorID: conn.VendorID, StoreURL: norm, Source: c.source, Resolved: true}, nil
		}
	}

	return Resolution{StoreURL: firstURL, Source: SourceNone}, nil
}

func explicitVendorID(event *types.OrderEvent) (int64, bool) {
	if id, ok := event.VendorID.Int64(); ok {
		return id, true
	}
	return types.FlexibleID(event.Meta(types.MetaVendorID)).Int64()
}
