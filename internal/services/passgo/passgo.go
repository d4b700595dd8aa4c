// Package passgo converts new reactions on a user's ships into cents and
// figurines, crediting each reacting user at most once per ship.
package passgo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/fastprodman/scalecoin/internal/config"
	"github.com/fastprodman/scalecoin/internal/identity"
	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/metrics"
	"github.com/fastprodman/scalecoin/internal/ships"
)

// Rand is the source of every random outcome of a run.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

type flushRequester interface {
	Request()
}

// ShipChange describes what one ship contributed to a run.
type ShipChange struct {
	MessageID string
	Reaction  string
	New       bool
	// CountBefore is the number of reactors credited before the run.
	CountBefore int
	CountAfter  int
	// TotalBefore and TotalAfter are the running total in cents around this ship.
	TotalBefore int64
	TotalAfter  int64
}

type Result struct {
	Identity     string
	NeverShipped bool
	NoChanges    bool
	StartCents   int64
	EndCents     int64
	Credited     int64
	Figurines    []ledger.Figurine
	Changes      []ShipChange
	// Awards maps each new figurine to the ship that earned it, in award order.
	Awards []Award
}

type Award struct {
	Fig       ledger.Figurine
	MessageID string
}

type Reconciler struct {
	store   *ledger.Store
	source  ships.Source
	flusher flushRequester
	metrics *metrics.Metrics
	rewards config.Rewards
	rand    Rand
}

// New builds a Reconciler. A nil rng uses math/rand/v2.
func New(
	store *ledger.Store,
	source ships.Source,
	flusher flushRequester,
	rewards config.Rewards,
	m *metrics.Metrics,
	rng Rand,
) *Reconciler {
	if rng == nil {
		rng = globalRand{}
	}

	return &Reconciler{
		store:   store,
		source:  source,
		flusher: flusher,
		metrics: m,
		rewards: rewards,
		rand:    rng,
	}
}

// Run reconciles the ledger with the current observations for one user. The
// account is locked from reading its ships until cents are credited.
func (r *Reconciler) Run(ctx context.Context, rawID string) (Result, error) {
	id, err := identity.Normalize(rawID)
	if err != nil {
		return Result{}, ledger.Inputf(ledger.ErrInvalidIdentity, "Expected a user, not %q", rawID)
	}

	_, err = r.store.GetOrCreate(ctx, id)
	if err != nil {
		return Result{}, err
	}

	obs, err := r.source.ForUser(ctx, id)
	if err != nil {
		r.metrics.PassgoRuns.WithLabelValues("failed").Inc()
		return Result{}, fmt.Errorf("passgo %s: %w: %w", id, ledger.ErrUnexpectedFailure, err)
	}

	if len(obs) == 0 {
		r.metrics.PassgoRuns.WithLabelValues("never_shipped").Inc()
		return Result{Identity: id, NeverShipped: true}, nil
	}

	ships.SortOldestFirst(obs)

	unlock := r.store.Lock(id)

	acct, ok := r.store.Get(id)
	if !ok {
		unlock()
		return Result{}, ledger.Inputf(ledger.ErrUnknownIdentity, "%s has no bank account", id)
	}

	res := r.reconcileLocked(id, acct, obs)

	unlock()

	if res.NoChanges {
		r.metrics.PassgoRuns.WithLabelValues("no_changes").Inc()
		return res, nil
	}

	r.metrics.PassgoRuns.WithLabelValues("credited").Inc()
	r.metrics.CentsMinted.Add(float64(res.Credited))

	for _, f := range res.Figurines {
		r.metrics.FigurinesAwarded.WithLabelValues(string(f.Kind)).Inc()
	}

	slog.Info("passgo credited",
		"id", id,
		"cents", res.Credited,
		"figurines", len(res.Figurines),
		"ships", len(res.Changes),
	)

	r.flusher.Request()

	return res, nil
}

func (r *Reconciler) reconcileLocked(id string, acct *ledger.Account, obs []ships.Observation) Result {
	start := int64(acct.CreditedTotal()) * r.rewards.CentsPerUnit

	res := Result{
		Identity:   id,
		StartCents: start,
		EndCents:   start,
	}

	// counts at or below the credited cardinality have nothing left to pay
	unchanged := true
	for _, o := range obs {
		if o.TopReactionCount > acct.CreditedCount(o.MessageID) {
			unchanged = false
			break
		}
	}

	if unchanged {
		res.NoChanges = true
		return res
	}

	acc := start

	for _, o := range obs {
		credited := acct.CreditedCount(o.MessageID)
		// a count below what was credited means reactions were removed; never debit
		if o.TopReactionCount <= credited {
			continue
		}

		delta := o.TopReactionCount - credited
		_, seen := acct.Ships[o.MessageID]
		before := acc

		for range delta {
			for _, f := range r.roll(acc, o) {
				acct.Figurines = append(acct.Figurines, f)
				res.Figurines = append(res.Figurines, f)
				res.Awards = append(res.Awards, Award{Fig: f, MessageID: o.MessageID})
			}
		}

		acc += r.figurineBonus(acct, o)
		acc += int64(delta) * r.rewards.CentsPerUnit

		res.Changes = append(res.Changes, ShipChange{
			MessageID:   o.MessageID,
			Reaction:    o.TopReactionName,
			New:         !seen,
			CountBefore: credited,
			CountAfter:  o.TopReactionCount,
			TotalBefore: before,
			TotalAfter:  acc,
		})
	}

	for _, o := range obs {
		acct.MergeShip(o.MessageID, o.ReactingUserIDs)
		padCredited(acct, o)
	}

	res.EndCents = acc
	res.Credited = max(0, acc-start)
	acct.Cents += res.Credited

	return res
}

// roll draws the figurine chances for one reaction unit. The boosted chance
// applies while the running total is below the threshold.
func (r *Reconciler) roll(acc int64, o ships.Observation) []ledger.Figurine {
	chance := r.rewards.BaseFigChance
	if acc < r.rewards.BoostBelowCents {
		chance = r.rewards.BoostedFigChance
	}

	var figs []ledger.Figurine

	if r.rand.Float64() < chance {
		figs = append(figs, ledger.Figurine{Kind: ledger.FigEmoji, ID: o.TopReactionName})
	}

	if r.rand.Float64() < chance && len(o.ReactingUserIDs) > 0 {
		u := o.ReactingUserIDs[r.rand.IntN(len(o.ReactingUserIDs))]
		figs = append(figs, ledger.Figurine{Kind: ledger.FigHacker, ID: identity.Strip(u)})
	}

	return figs
}

// figurineBonus is applied once per ship: a flat bonus per owned hacker
// figurine of a reactor not yet credited on it, and a random bonus per owned
// figurine of its top reaction.
func (r *Reconciler) figurineBonus(acct *ledger.Account, o ships.Observation) int64 {
	reactors := make(map[string]struct{}, len(o.ReactingUserIDs))
	for _, u := range o.ReactingUserIDs {
		reactors[identity.Strip(u)] = struct{}{}
	}

	var bonus int64

	for _, f := range acct.Figurines {
		switch f.Kind {
		case ledger.FigHacker:
			_, reacted := reactors[f.ID]
			if reacted && !acct.IsCredited(o.MessageID, f.ID) {
				bonus += r.rewards.HackerFigBonus
			}
		case ledger.FigEmoji:
			if f.ID == o.TopReactionName {
				spread := float64(r.rewards.EmojiFigBonusMax - r.rewards.EmojiFigBonusMin)
				bonus += r.rewards.EmojiFigBonusMin + int64(math.Round(spread*r.rand.Float64()))
			}
		}
	}

	return bonus
}

// padCredited fills the credited set up to the observed count with anonymous
// units when the reactor list is shorter than the count, so that the same
// count never pays twice.
func padCredited(acct *ledger.Account, o ships.Observation) {
	missing := o.TopReactionCount - acct.CreditedCount(o.MessageID)
	if missing <= 0 {
		return
	}

	pad := make([]string, 0, missing)
	for i := 0; len(pad) < missing; i++ {
		unit := "#" + strconv.Itoa(i)
		if !acct.IsCredited(o.MessageID, unit) {
			pad = append(pad, unit)
		}
	}

	acct.MergeShip(o.MessageID, pad)
}
