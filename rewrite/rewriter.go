// Package rewrite is the in-place mutation stage of the packet pipeline:
// TTL decrement and address translation on a header view, followed by a
// checksum re-stamp.
package rewrite

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/frozenpine/ip4view"
	ierrors "github.com/frozenpine/ip4view/errors"
	"github.com/frozenpine/ip4view/log"
)

// Result describes what Apply did to one header.
type Result struct {
	// Before flow as received
	Before ip4view.Flow
	// After flow as forwarded
	After ip4view.Flow
	// TTL as forwarded
	TTL uint8
	// Changed any field other than the checksum was written
	Changed bool
	// WasIntact received checksum was valid, only set with VerifyChecksum
	WasIntact bool
	// Restamped checksum field differed from the recomputed value
	Restamped bool
}

type Stats struct {
	Processed uint64
	Rewritten uint64
	Expired   uint64
	Corrupt   uint64
	Malformed uint64
}

type Rewriter struct {
	cfg  Config
	snat map[ip4view.IPv4Addr]ip4view.IPv4Addr
	dnat map[ip4view.IPv4Addr]ip4view.IPv4Addr
	log  log.Logger

	processed atomic.Uint64
	rewritten atomic.Uint64
	expired   atomic.Uint64
	corrupt   atomic.Uint64
	malformed atomic.Uint64
}

func buildTable(kind string, mappings []AddrMapping) (map[ip4view.IPv4Addr]ip4view.IPv4Addr, error) {
	table := make(map[ip4view.IPv4Addr]ip4view.IPv4Addr, len(mappings))

	for _, m := range mappings {
		if exist, dup := table[m.From]; dup && exist != m.To {
			return nil, errors.Errorf(
				"%s: %s mapped to both %s and %s", kind, m.From, exist, m.To,
			)
		}

		table[m.From] = m.To
	}

	return table, nil
}

// New creates a rewriter, nil cfg means DefaultConfig.
func New(cfg *Config) (*Rewriter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	snat, err := buildTable("snat", cfg.SNAT)
	if err != nil {
		return nil, err
	}

	dnat, err := buildTable("dnat", cfg.DNAT)
	if err != nil {
		return nil, err
	}

	return &Rewriter{
		cfg:  *cfg,
		snat: snat,
		dnat: dnat,
		log:  log.GetLogger().WithField("stage", "rewrite"),
	}, nil
}

// Apply mutates the header in place and re-stamps its checksum.
// Rejections (malformed, corrupt, expired) are recoverable errors: the
// pipeline drops the packet and keeps going. The buffer is not modified
// when a header is rejected.
func (r *Rewriter) Apply(hdr ip4view.HeaderView) (Result, error) {
	r.processed.Add(1)

	result := Result{Before: hdr.Flow()}

	if r.cfg.Validate {
		if err := hdr.Validate(); err != nil {
			r.malformed.Add(1)
			return result, ierrors.MarkRecoverable(err)
		}
	}

	if r.cfg.VerifyChecksum {
		intact, err := hdr.VerifyChecksum()
		if err != nil {
			r.malformed.Add(1)
			return result, ierrors.MarkRecoverable(err)
		}

		result.WasIntact = intact

		if !intact {
			r.corrupt.Add(1)

			if r.cfg.DropCorrupt {
				return result, ierrors.MarkRecoverable(errors.Wrapf(
					ierrors.ErrBadChecksum, "%s crc %#04x", result.Before, hdr.CRC(),
				))
			}
		}
	}

	if _, err := hdr.Header(); err != nil {
		r.malformed.Add(1)
		return result, ierrors.MarkRecoverable(err)
	}

	if r.cfg.DecrementTTL {
		ttl := hdr.TTL()

		if ttl <= 1 || ttl <= r.cfg.MinTTL {
			r.expired.Add(1)
			return result, ierrors.MarkRecoverable(errors.Wrapf(
				ierrors.ErrTTLExpired, "%s ttl %d", result.Before, ttl,
			))
		}

		hdr.SetTTL(ttl - 1)
		result.Changed = true
	}

	if to, exist := r.snat[result.Before.SrcAddr]; exist {
		hdr.SetSrcAddr(to)
		result.Changed = true
	}

	if to, exist := r.dnat[result.Before.DstAddr]; exist {
		hdr.SetDstAddr(to)
		result.Changed = true
	}

	intact, err := hdr.RecomputeChecksum()
	if err != nil {
		r.malformed.Add(1)
		return result, ierrors.MarkRecoverable(err)
	}

	result.Restamped = !intact
	result.After = hdr.Flow()
	result.TTL = hdr.TTL()

	if result.Changed {
		r.rewritten.Add(1)
	}

	if r.log.IsDebugEnabled() {
		r.log.WithFields(log.Fields{
			"before":  result.Before,
			"after":   result.After,
			"ttl":     result.TTL,
			"intact":  result.WasIntact,
			"restamp": result.Restamped,
		}).Debug("header rewritten")
	}

	return result, nil
}

func (r *Rewriter) Stats() Stats {
	return Stats{
		Processed: r.processed.Load(),
		Rewritten: r.rewritten.Load(),
		Expired:   r.expired.Load(),
		Corrupt:   r.corrupt.Load(),
		Malformed: r.malformed.Load(),
	}
}
