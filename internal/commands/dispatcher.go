// Package commands turns chat commands into ledger operations and renders
// their replies.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/fastprodman/scalecoin/internal/config"
	"github.com/fastprodman/scalecoin/internal/identity"
	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/services/bank"
	"github.com/fastprodman/scalecoin/internal/services/passgo"
	"github.com/fastprodman/scalecoin/internal/ships"
)

// Command is one invocation as produced by the chat routing layer.
type Command struct {
	Invoker string
	Name    string
	Args    []string
}

type Bank interface {
	Balance(ctx context.Context, id string) (bank.Balance, error)
	TransferCents(ctx context.Context, from, to string, cents int64, memo string) (bank.Receipt, error)
	TransferFigurine(ctx context.Context, from, to string, fig ledger.Figurine, memo string) (bank.FigReceipt, error)
	CreateHook(ctx context.Context, hooker, hooked string, v ledger.Value, desc string) (ledger.Hook, error)
	ListHooks(ctx context.Context, id string) (owned, held []ledger.Hook, err error)
	RevokeHook(ctx context.Context, revoker, hookID string) (ledger.Hook, error)
	IssueToken(ctx context.Context, bot, owner, endpoint string) (bank.Issued, error)
	Goblinstomp(ctx context.Context, id string) error
}

type Reconciler interface {
	Run(ctx context.Context, id string) (passgo.Result, error)
}

// Rand picks the contact trivia shown by bal.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

type Dispatcher struct {
	bank   Bank
	passgo Reconciler
	ships  ships.Source
	admins map[string]struct{}
	cfg    config.ShipsConfig
	rand   Rand
}

func NewDispatcher(b Bank, r Reconciler, src ships.Source, cfg config.ShipsConfig, admins []string) *Dispatcher {
	set := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		id, err := identity.Normalize(a)
		if err != nil {
			slog.Warn("ignoring malformed admin id", "id", a)
			continue
		}

		set[id] = struct{}{}
	}

	return &Dispatcher{
		bank:   b,
		passgo: r,
		ships:  src,
		admins: set,
		cfg:    cfg,
		rand:   globalRand{},
	}
}

const usage = "Try one of: `bal [user]`, `pay user cents [for reason]`, `givefig user fig [for reason]`, " +
	"`hook user cents|fig [for reason]`, `hooks`, `revoke hookId`, `passgo`, `ships [user|all]`, `token bot endpoint`."

// Handle runs cmd and returns the reply for the invoker. Input errors are
// rendered verbatim; anything else is logged and answered generically.
func (d *Dispatcher) Handle(ctx context.Context, cmd Command) string {
	invoker, err := identity.Normalize(cmd.Invoker)
	if err != nil {
		return ledger.UserMessage(err)
	}

	reply, err := d.dispatch(ctx, invoker, strings.ToLower(cmd.Name), cmd.Args)
	if err != nil {
		var ie *ledger.InputError
		if !errors.As(err, &ie) {
			slog.Error("command failed", "command", cmd.Name, "invoker", invoker, "error", err)
		}

		return ledger.UserMessage(err)
	}

	return reply
}

func (d *Dispatcher) dispatch(ctx context.Context, invoker, name string, args []string) (string, error) {
	switch name {
	case "bal", "balance":
		return d.bal(ctx, invoker, args)
	case "pay":
		return d.pay(ctx, invoker, args)
	case "givefig":
		return d.givefig(ctx, invoker, args)
	case "hook":
		return d.hook(ctx, invoker, args)
	case "hooks":
		return d.hooks(ctx, invoker)
	case "revoke":
		if len(args) != 1 {
			return "Usage: `revoke hookId`", nil
		}

		return d.revoke(ctx, invoker, args[0])
	case "passgo":
		return d.runPassgo(ctx, invoker)
	case "ships", "manifest":
		return d.shipStats(ctx, invoker, args)
	case "token":
		return d.token(ctx, invoker, args)
	case "goblinstomp":
		return d.goblinstomp(ctx, invoker, args)
	case "", "help":
		return usage, nil
	default:
		return fmt.Sprintf("I don't know `%s`. %s", name, usage), nil
	}
}

// RevokeAction handles the revoke button attached to a hook notification.
func (d *Dispatcher) RevokeAction(ctx context.Context, invoker, hookID string) string {
	reply, err := d.revoke(ctx, invoker, hookID)
	if err != nil {
		var ie *ledger.InputError
		if !errors.As(err, &ie) {
			slog.Error("revoke failed", "invoker", invoker, "hook", hookID, "error", err)
		}

		return ledger.UserMessage(err)
	}

	return reply
}

func (d *Dispatcher) revoke(ctx context.Context, invoker, hookID string) (string, error) {
	h, err := d.bank.RevokeHook(ctx, invoker, strings.TrimSpace(hookID))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Revoked! %s came back to you from %s.", describeValue(h.Value), h.Hooker), nil
}

// splitReason separates `... for some reason` from the leading args.
func splitReason(args []string) (head []string, reason string) {
	for i, a := range args {
		if strings.EqualFold(a, "for") {
			return args[:i], strings.Join(args[i+1:], " ")
		}
	}

	return args, ""
}

func (d *Dispatcher) pay(ctx context.Context, invoker string, args []string) (string, error) {
	head, reason := splitReason(args)
	if len(head) != 2 {
		return "Usage: `pay user cents [for reason]`", nil
	}

	cents, err := bank.ParseCents(head[1])
	if err != nil {
		return "", err
	}

	r, err := d.bank.TransferCents(ctx, invoker, head[0], cents, reason)
	if err != nil {
		return "", err
	}

	return renderReceipt(r), nil
}

func (d *Dispatcher) givefig(ctx context.Context, invoker string, args []string) (string, error) {
	head, reason := splitReason(args)
	if len(head) != 2 {
		return "Usage: `givefig user fig [for reason]`", nil
	}

	fig, err := ledger.ParseFigurine(head[1])
	if err != nil {
		return "", err
	}

	r, err := d.bank.TransferFigurine(ctx, invoker, head[0], fig, reason)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Transferred your %s figurine to %s!", r.Fig, r.Receiver), nil
}

func (d *Dispatcher) hook(ctx context.Context, invoker string, args []string) (string, error) {
	head, reason := splitReason(args)
	if len(head) != 2 {
		return "Usage: `hook user cents|fig [for reason]`", nil
	}

	var v ledger.Value

	cents, err := bank.ParseCents(head[1])
	if err == nil {
		v = ledger.CentsValue(cents)
	} else {
		fig, ferr := ledger.ParseFigurine(head[1])
		if ferr != nil {
			return "", err
		}

		v = ledger.FigValue(fig)
	}

	h, err := d.bank.CreateHook(ctx, head[0], invoker, v, reason)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Hooked %s to %s. Revoke it any time with `revoke %s`.", describeValue(h.Value), h.Hooker, h.ID), nil
}

func (d *Dispatcher) hooks(ctx context.Context, invoker string) (string, error) {
	owned, held, err := d.bank.ListHooks(ctx, invoker)
	if err != nil {
		return "", err
	}

	return renderHooks(owned, held), nil
}

func (d *Dispatcher) bal(ctx context.Context, invoker string, args []string) (string, error) {
	target := invoker
	if len(args) > 0 {
		target = args[0]
	}

	b, err := d.bank.Balance(ctx, target)
	if err != nil {
		return "", err
	}

	return d.renderBalance(b, b.ID == invoker), nil
}

func (d *Dispatcher) runPassgo(ctx context.Context, invoker string) (string, error) {
	res, err := d.passgo.Run(ctx, invoker)
	if err != nil {
		return "", err
	}

	return d.renderPassgo(res), nil
}

func (d *Dispatcher) shipStats(ctx context.Context, invoker string, args []string) (string, error) {
	target := invoker
	if len(args) > 0 {
		target = args[0]
	}

	global := false

	switch strings.ToLower(target) {
	case "all", "global", "<!everyone>":
		global = true
	default:
		id, err := identity.Normalize(target)
		if err != nil {
			return "", ledger.Inputf(ledger.ErrInvalidIdentity, "Expected a user or `all`, not %q", target)
		}

		target = id
	}

	all, err := d.ships.All(ctx)
	if err != nil {
		return "", fmt.Errorf("ships stats: %w: %w", ledger.ErrUnexpectedFailure, err)
	}

	var obs []ships.Observation
	if global {
		for _, o := range all {
			obs = append(obs, o...)
		}
	} else {
		obs = append(obs, all[target]...)
	}

	ships.SortOldestFirst(obs)

	if global {
		target = ""
	}

	return d.renderShips(ships.Summarize(obs), obs, target, target == invoker), nil
}

func (d *Dispatcher) token(ctx context.Context, invoker string, args []string) (string, error) {
	if len(args) != 2 {
		return "Usage: `token bot endpoint`", nil
	}

	issued, err := d.bank.IssueToken(ctx, args[0], invoker, args[1])
	if err != nil {
		return "", err
	}

	txt := fmt.Sprintf("Here's the API token for %s, keep it secret: `%s`", issued.BotID, issued.Token)
	if issued.PrevOwner != "" {
		txt += fmt.Sprintf("\nThis replaces the token %s had for it.", issued.PrevOwner)
	}

	return txt, nil
}

func (d *Dispatcher) goblinstomp(ctx context.Context, invoker string, args []string) (string, error) {
	if _, ok := d.admins[invoker]; !ok {
		return "Only admins can stomp goblins.", nil
	}

	if len(args) != 1 {
		return "Usage: `goblinstomp user`", nil
	}

	err := d.bank.Goblinstomp(ctx, args[0])
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s's bank account has been deleted.", args[0]), nil
}
