package commands

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/services/bank"
	"github.com/fastprodman/scalecoin/internal/services/passgo"
	"github.com/fastprodman/scalecoin/internal/ships"
)

func describeValue(v ledger.Value) string {
	if v.IsFig() {
		return fmt.Sprintf("the %s figurine", v.Fig)
	}

	return bank.FormatCents(v.Cents)
}

func renderReceipt(r bank.Receipt) string {
	return fmt.Sprintf(
		"Transferred %s from %s to %s\n%s balance: %s -> %s\n%s balance: %s -> %s",
		bank.FormatCents(r.Cents), r.Sender, r.Receiver,
		r.Sender, bank.Units(r.SenderBefore), bank.Units(r.SenderAfter),
		r.Receiver, bank.Units(r.ReceiverBefore), bank.Units(r.ReceiverAfter),
	)
}

type contactFact struct {
	desc  string
	cents bool
	get   func(*ledger.Contact) int64
}

var contactFacts = []contactFact{
	{desc: "sent a total of %s to", cents: true, get: func(c *ledger.Contact) int64 { return c.CentsSentTo }},
	{desc: "received a total of %s from", cents: true, get: func(c *ledger.Contact) int64 { return c.CentsReceivedFrom }},
	{desc: "sent *%s* separate transactions to", get: func(c *ledger.Contact) int64 { return c.TransactionsSentTo }},
	{desc: "received *%s* separate transactions from", get: func(c *ledger.Contact) int64 { return c.TransactionsReceivedFrom }},
}

// minContactsForTrivia is how many contacts an account needs before bal
// mentions one of them.
const minContactsForTrivia = 4

func (d *Dispatcher) renderBalance(b bank.Balance, self bool) string {
	var sb strings.Builder

	subject := b.ID + " has"
	if self {
		subject = "You have"
	}

	fmt.Fprintf(&sb, "%s %s available.", subject, bank.FormatCents(b.Usable))

	if b.Usable != b.Account.Cents {
		fmt.Fprintf(&sb, " (%s more is held in hooks.)", bank.FormatCents(b.Account.Cents-b.Usable))
	}

	sb.WriteString("\n")

	if len(b.Account.Contacts) >= minContactsForTrivia {
		fact := contactFacts[d.rand.IntN(len(contactFacts))]

		ids := make([]string, 0, len(b.Account.Contacts))
		for id := range b.Account.Contacts {
			ids = append(ids, id)
		}

		slices.SortFunc(ids, func(x, y string) int {
			return cmp.Or(
				cmp.Compare(fact.get(b.Account.Contacts[y]), fact.get(b.Account.Contacts[x])),
				strings.Compare(x, y),
			)
		})

		outlier := ids[d.rand.IntN(3)]
		val := fmt.Sprint(fact.get(b.Account.Contacts[outlier]))
		if fact.cents {
			val = bank.FormatCents(fact.get(b.Account.Contacts[outlier]))
		}

		fmt.Fprintf(&sb, "\n%s %s %s\n", subject, fmt.Sprintf(fact.desc, val), outlier)
	}

	lvl := b.Level
	fmt.Fprintf(&sb, "\n*Level %d, %s:* %d/%d xp", lvl.Index+1, lvl.Name, lvl.Progress, lvl.Goal)

	sb.WriteString("\n\n*Figurines:*")

	for _, f := range b.Account.Figurines {
		fmt.Fprintf(&sb, "\n - the %s figurine!", f)
	}

	if len(b.Account.Hooks) > 0 || len(b.Held) > 0 {
		fmt.Fprintf(&sb, "\n\n*Hooks:* %d out, %d held", len(b.Account.Hooks), len(b.Held))
	}

	return sb.String()
}

func renderHooks(owned, held []ledger.Hook) string {
	if len(owned) == 0 && len(held) == 0 {
		return "No outstanding hooks."
	}

	var sb strings.Builder

	if len(owned) > 0 {
		sb.WriteString("*Hooks you can revoke:*")

		for _, h := range owned {
			fmt.Fprintf(&sb, "\n - `%s`: %s held by %s", h.ID, describeValue(h.Value), h.Hooker)
			if h.Description != "" {
				fmt.Fprintf(&sb, " for %s", h.Description)
			}
		}
	}

	if len(held) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}

		sb.WriteString("*Hooks you hold:*")

		for _, h := range held {
			fmt.Fprintf(&sb, "\n - %s from %s", describeValue(h.Value), h.Hooked)
			if h.Description != "" {
				fmt.Fprintf(&sb, " for %s", h.Description)
			}
		}
	}

	return sb.String()
}

func (d *Dispatcher) neverShipped(self bool, who string) string {
	if self {
		return "looks like you haven't shipped anything yet, " +
			"or your ships haven't received any reactions.\n\n" +
			fmt.Sprintf("post something cool you've made in <#%s>, ", d.cfg.ChannelID) +
			"and the scales may yet tip in your favor!"
	}

	return fmt.Sprintf("looks like %s hasn't shipped anything yet, ", who) +
		"or their ships haven't received any reactions.\n\n" +
		fmt.Sprintf("perhaps if they post something cool they've made in <#%s>, ", d.cfg.ChannelID) +
		"the scales may yet tip in their favor!"
}

func (d *Dispatcher) link(msg, text string) string {
	return ships.Link(d.cfg.Workspace, d.cfg.ChannelID, msg, text)
}

func (d *Dispatcher) renderPassgo(res passgo.Result) string {
	if res.NeverShipped {
		return d.neverShipped(true, res.Identity)
	}

	if res.NoChanges {
		return "*No recent changes on your ships!* They're still worth " +
			bank.FormatCents(res.StartCents) + ".\n" +
			"Try `ships` to get some interesting data about your ships overall."
	}

	var sb strings.Builder

	for _, c := range res.Changes {
		for _, a := range res.Awards {
			if a.MessageID != c.MessageID {
				continue
			}

			kind := "emoji "
			if a.Fig.Kind == ledger.FigHacker {
				kind = ""
			}

			fmt.Fprintf(&sb, "\n*OMG YOU EARNED A FIGURINE!!!* It's the %s %sone!", a.Fig, kind)
		}

		if c.New {
			fmt.Fprintf(&sb, "\nFound %s! :%s: %s -> %s",
				d.link(c.MessageID, "New Ship"), c.Reaction,
				bank.FormatCents(c.TotalBefore), bank.FormatCents(c.TotalAfter))
		} else {
			fmt.Fprintf(&sb, "\nFound %s! *:%s: %d* -> *:%s: %d*!",
				d.link(c.MessageID, "More Reactions"), c.Reaction, c.CountBefore, c.Reaction, c.CountAfter)
		}
	}

	if n := len(res.Figurines); n > 0 {
		earned := "a figurine"
		if n > 1 {
			earned = fmt.Sprintf("%d figurines", n)
		}

		fmt.Fprintf(&sb, "\n\n*You've earned %s!* Now, you will get more sc from reacts of the emoji or"+
			" hack clubber the figurine represents. You can also trade or sell"+
			" the figurine to other hackclubbers.", earned)
	}

	fmt.Fprintf(&sb, "\n\n_Overview: %s -> %s_", bank.FormatCents(res.StartCents), bank.FormatCents(res.EndCents))

	return strings.TrimPrefix(sb.String(), "\n")
}

// fewShipsToLink is the variant size under which every ship gets a link.
const fewShipsToLink = 5

func (d *Dispatcher) renderShips(s ships.Summary, obs []ships.Observation, who string, self bool) string {
	if s.Ships == 0 {
		return d.neverShipped(self, who)
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "the most popular reactions across all %d ", s.Ships)
	if who != "" {
		fmt.Fprintf(&sb, "of %s's ", who)
	}

	fmt.Fprintf(&sb, "<#%s>s *are worth %d*:scales: in total.", d.cfg.ChannelID, s.Total)

	for _, v := range s.Variants {
		fmt.Fprintf(&sb, "\n%d :%s: ", v.Sum, v.Name)

		if v.Ships > 1 {
			fmt.Fprintf(&sb, "across %d ships", v.Ships)
		} else {
			sb.WriteString("on a single ship")
		}

		if who != "" && v.Ships < fewShipsToLink {
			links := make([]string, 0, len(v.MessageIDs))
			for i, msg := range v.MessageIDs {
				text := "this one"
				if v.Ships > 1 {
					text = fmt.Sprint(i + 1)
				}

				links = append(links, d.link(msg, text))
			}

			fmt.Fprintf(&sb, " (%s)", strings.Join(links, ", "))
		}
	}

	if len(obs) > 1 {
		switch {
		case who == "":
			sb.WriteString("\n*Globally, the top 5 ship reactors are:*")
		case self:
			fmt.Fprintf(&sb, "\n*Your top %d fans are:*", len(s.Fans))
		default:
			fmt.Fprintf(&sb, "\n*%s's top %d fans are:*", who, len(s.Fans))
		}

		for _, f := range s.Fans {
			fmt.Fprintf(&sb, "\n<@%s>, reacted on %v%%", f.User, f.Percent)
		}
	}

	return sb.String()
}
