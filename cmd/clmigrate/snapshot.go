package main

import (
	"github.com/pkg/errors"

	"github.com/go-oidfed/certledger/storage/model"
)

// holderSnapshot holds everything stored for one holder
type holderSnapshot struct {
	Holder       model.Account
	Active       uint64
	Sequence     uint64
	Certificates []model.Certificate
}

// snapshot is the complete ledger state of a backend
type snapshot struct {
	Deployed bool
	Owner    model.Account
	Issuers  []model.Account
	Holders  []holderSnapshot
}

func (s snapshot) certificateCount() (n int) {
	for _, h := range s.Holders {
		n += len(h.Certificates)
	}
	return
}

func (s snapshot) empty() bool {
	return !s.Deployed && len(s.Issuers) == 0 && len(s.Holders) == 0
}

func readSnapshot(b model.Backend) (snap snapshot, err error) {
	err = b.View(
		func(state model.State) error {
			is := state.Issuers()
			if snap.Deployed, err = is.Deployed(); err != nil {
				return err
			}
			if snap.Owner, err = is.Owner(); err != nil {
				return err
			}
			if snap.Issuers, err = is.Issuers(); err != nil {
				return err
			}
			cs := state.Certificates()
			holders, err := cs.Holders()
			if err != nil {
				return err
			}
			for _, h := range holders {
				hs := holderSnapshot{Holder: h}
				if hs.Active, err = cs.ActiveCount(h); err != nil {
					return err
				}
				if hs.Sequence, err = cs.Sequence(h); err != nil {
					return err
				}
				if hs.Certificates, err = cs.Certificates(h); err != nil {
					return err
				}
				snap.Holders = append(snap.Holders, hs)
			}
			return nil
		},
	)
	return snap, errors.Wrap(err, "reading ledger state failed")
}

func writeSnapshot(b model.Backend, snap snapshot) error {
	err := b.Update(
		func(state model.State) error {
			is := state.Issuers()
			if snap.Deployed {
				if err := is.MarkDeployed(); err != nil {
					return err
				}
			}
			if err := is.SetOwner(snap.Owner); err != nil {
				return err
			}
			for _, i := range snap.Issuers {
				if err := is.AddIssuer(i); err != nil {
					return err
				}
			}
			cs := state.Certificates()
			for _, h := range snap.Holders {
				for _, c := range h.Certificates {
					if err := cs.Insert(c); err != nil {
						return err
					}
				}
				if err := cs.SetActiveCount(h.Holder, h.Active); err != nil {
					return err
				}
				if err := cs.SetSequence(h.Holder, h.Sequence); err != nil {
					return err
				}
			}
			return nil
		},
	)
	return errors.Wrap(err, "writing ledger state failed")
}

// migrate copies the complete ledger state from src to dst. dst must be
// empty. The copy is written in a single transaction.
func migrate(src, dst model.Backend, dryRun bool) (snapshot, error) {
	snap, err := readSnapshot(src)
	if err != nil {
		return snap, err
	}
	existing, err := readSnapshot(dst)
	if err != nil {
		return snap, err
	}
	if !existing.empty() {
		return snap, errors.New("destination already holds ledger state")
	}
	if dryRun {
		return snap, nil
	}
	return snap, writeSnapshot(dst, snap)
}
