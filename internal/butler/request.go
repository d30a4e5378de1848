package butler

import (
	"fmt"
	"strings"

	"ripple/internal/config"
	"ripple/internal/services"
)

// Kind identifies the dataset type a fetch targets.
type Kind string

const (
	KindDeepCoadd     Kind = "deep_coadd"
	KindObjectCatalog Kind = "object_catalog"
	KindCalExp        Kind = "calexp"
)

// Request is a value object identifying one dataset. Construct through
// DeepCoadd, ObjectCatalog, or CalExp; Validate runs before any network
// call.
type Request struct {
	Kind     Kind
	Tract    int
	Patch    int
	Band     string
	Visit    int64
	Detector int
}

// DeepCoadd identifies a coadded image cutout by tract, patch, and band.
func DeepCoadd(tract, patch int, band string) Request {
	return Request{Kind: KindDeepCoadd, Tract: tract, Patch: patch, Band: strings.TrimSpace(band)}
}

// ObjectCatalog identifies the object catalog covering a tract/patch/band.
func ObjectCatalog(tract, patch int, band string) Request {
	return Request{Kind: KindObjectCatalog, Tract: tract, Patch: patch, Band: strings.TrimSpace(band)}
}

// CalExp identifies a calibrated single-visit exposure by visit and detector.
func CalExp(visit int64, detector int) Request {
	return Request{Kind: KindCalExp, Visit: visit, Detector: detector}
}

// FromTarget converts a configured pipeline target into a fetch request.
func FromTarget(target config.Target) (Request, error) {
	switch target.Type {
	case string(KindDeepCoadd):
		return DeepCoadd(target.Tract, target.Patch, target.Band), nil
	case string(KindObjectCatalog):
		return ObjectCatalog(target.Tract, target.Patch, target.Band), nil
	case string(KindCalExp):
		return CalExp(target.Visit, target.Detector), nil
	default:
		return Request{}, services.Wrap(services.ErrValidation, "butler", "request",
			fmt.Sprintf("unknown target type %q", target.Type), nil)
	}
}

// Validate checks the request fields for the dataset kind.
func (r Request) Validate() error {
	switch r.Kind {
	case KindDeepCoadd, KindObjectCatalog:
		if r.Tract < 0 || r.Patch < 0 {
			return services.Wrap(services.ErrValidation, "butler", "request",
				fmt.Sprintf("%s: tract and patch must be non-negative", r.Kind), nil)
		}
		if r.Band == "" {
			return services.Wrap(services.ErrValidation, "butler", "request",
				fmt.Sprintf("%s: band is required", r.Kind), nil)
		}
	case KindCalExp:
		if r.Visit <= 0 {
			return services.Wrap(services.ErrValidation, "butler", "request", "calexp: visit must be positive", nil)
		}
		if r.Detector < 0 {
			return services.Wrap(services.ErrValidation, "butler", "request", "calexp: detector must be non-negative", nil)
		}
	default:
		return services.Wrap(services.ErrValidation, "butler", "request",
			fmt.Sprintf("unknown dataset kind %q", r.Kind), nil)
	}
	return nil
}

// CacheKey returns the stable identity string used by the response cache.
func (r Request) CacheKey() string {
	switch r.Kind {
	case KindCalExp:
		return fmt.Sprintf("calexp:%d:%d", r.Visit, r.Detector)
	default:
		return fmt.Sprintf("%s:%d:%d:%s", r.Kind, r.Tract, r.Patch, r.Band)
	}
}

func (r Request) String() string {
	switch r.Kind {
	case KindCalExp:
		return fmt.Sprintf("calexp visit=%d detector=%d", r.Visit, r.Detector)
	default:
		return fmt.Sprintf("%s tract=%d patch=%d band=%s", r.Kind, r.Tract, r.Patch, r.Band)
	}
}
