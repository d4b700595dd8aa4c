package bank

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fastprodman/scalecoin/internal/ledger"
	"github.com/fastprodman/scalecoin/internal/notify"
)

// Receipt describes a completed cents transfer.
type Receipt struct {
	Sender, Receiver string
	Cents            int64
	SenderBefore     int64
	SenderAfter      int64
	ReceiverBefore   int64
	ReceiverAfter    int64
	FirstContact     bool
}

// FigReceipt describes a completed figurine transfer.
type FigReceipt struct {
	Sender, Receiver string
	Fig              ledger.Figurine
	// SenderFigs is the number of figurines the sender has left.
	SenderFigs int
}

// TransferCents moves cents from sender to receiver and grants both parties xp.
func (s *Service) TransferCents(ctx context.Context, rawSender, rawReceiver string, cents int64, memo string) (Receipt, error) {
	rcpt, err := s.transferCents(ctx, rawSender, rawReceiver, cents)
	s.observe("cents", err)

	if err != nil {
		return Receipt{}, err
	}

	slog.Info("cents transferred", "from", rcpt.Sender, "to", rcpt.Receiver, "cents", cents)

	if s.isBot(rcpt.Receiver) {
		s.notifier.Bot(rcpt.Receiver, notify.Event{
			Kind:  notify.ReceivedCents,
			From:  rcpt.Sender,
			To:    rcpt.Receiver,
			Cents: cents,
			Memo:  memo,
		})
	} else {
		s.notifier.User(rcpt.Receiver, withMemo(fmt.Sprintf("%s sent you %s!", rcpt.Sender, FormatCents(cents)), memo))
	}

	s.flusher.Request()

	return rcpt, nil
}

func (s *Service) transferCents(ctx context.Context, rawSender, rawReceiver string, cents int64) (Receipt, error) {
	if cents <= 0 {
		return Receipt{}, ledger.Inputf(ledger.ErrInvalidAmount, "You can only transact positive amounts, not %d", cents)
	}

	sender, receiver, err := s.pair(ctx, rawSender, rawReceiver, "You can't pay yourself!")
	if err != nil {
		return Receipt{}, err
	}

	unlock := s.store.Lock(sender, receiver)
	defer unlock()

	accts, err := s.locked(sender, receiver)
	if err != nil {
		return Receipt{}, err
	}

	from, to := accts[0], accts[1]

	err = s.checkFundsLocked(sender, from, cents)
	if err != nil {
		return Receipt{}, err
	}

	rcpt := Receipt{
		Sender:         sender,
		Receiver:       receiver,
		Cents:          cents,
		SenderBefore:   from.Cents,
		ReceiverBefore: to.Cents,
		FirstContact:   !from.HasTransactedWith(receiver) && !to.HasTransactedWith(sender),
	}

	earned := s.transactionXP(cents, rcpt.FirstContact)
	now := s.store.Now()
	from.AddXP(now, earned)
	to.AddXP(now, earned)

	moveLocked(sender, receiver, from, to, ledger.CentsValue(cents))

	rcpt.SenderAfter = from.Cents
	rcpt.ReceiverAfter = to.Cents

	return rcpt, nil
}

func (s *Service) transactionXP(cents int64, firstContact bool) int64 {
	earned := s.rewards.TransactionXP + min(s.rewards.MaxSizeXP, cents/s.rewards.CentsPerSizeXP)
	if firstContact {
		earned += s.rewards.FirstContactXP
	}

	return earned
}

// TransferFigurine moves one instance of fig from sender to receiver.
func (s *Service) TransferFigurine(ctx context.Context, rawSender, rawReceiver string, fig ledger.Figurine, memo string) (FigReceipt, error) {
	rcpt, err := s.transferFigurine(ctx, rawSender, rawReceiver, fig)
	s.observe("figurine", err)

	if err != nil {
		return FigReceipt{}, err
	}

	slog.Info("figurine transferred", "from", rcpt.Sender, "to", rcpt.Receiver, "fig", fig.String())

	if s.isBot(rcpt.Receiver) {
		s.notifier.Bot(rcpt.Receiver, notify.Event{
			Kind: notify.ReceivedFig,
			From: rcpt.Sender,
			To:   rcpt.Receiver,
			Fig:  &fig,
			Memo: memo,
		})
	} else {
		s.notifier.User(rcpt.Receiver, withMemo(fmt.Sprintf("%s sent you a %s figurine!", rcpt.Sender, fig), memo))
	}

	s.flusher.Request()

	return rcpt, nil
}

func (s *Service) transferFigurine(ctx context.Context, rawSender, rawReceiver string, fig ledger.Figurine) (FigReceipt, error) {
	sender, receiver, err := s.pair(ctx, rawSender, rawReceiver, "You can't give a figurine to yourself!")
	if err != nil {
		return FigReceipt{}, err
	}

	unlock := s.store.Lock(sender, receiver)
	defer unlock()

	accts, err := s.locked(sender, receiver)
	if err != nil {
		return FigReceipt{}, err
	}

	from, to := accts[0], accts[1]

	err = s.checkFigLocked(sender, from, fig)
	if err != nil {
		return FigReceipt{}, err
	}

	moveLocked(sender, receiver, from, to, ledger.FigValue(fig))

	return FigReceipt{
		Sender:     sender,
		Receiver:   receiver,
		Fig:        fig,
		SenderFigs: len(from.Figurines),
	}, nil
}

func withMemo(text, memo string) string {
	if memo == "" {
		return text
	}

	return text + " (for " + memo + ")"
}
