package escrow

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eventpay/escrow-api/internal/domain/dispute"
	"github.com/eventpay/escrow-api/internal/domain/event"
	"github.com/eventpay/escrow-api/internal/domain/wallet"
	"github.com/eventpay/escrow-api/internal/pkg/logger"
	"github.com/eventpay/escrow-api/internal/pkg/metrics"
	"github.com/eventpay/escrow-api/internal/pkg/payment"
)

// Notifier is the fire-and-forget notification sink.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, message, link string) error
}

// Gate reads the dispute and refund decisions of an event.
type Gate interface {
	Check(ctx context.Context, eventID uuid.UUID) (*dispute.Verdict, error)
}

// PassReport summarizes one settlement pass.
type PassReport struct {
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	EventsScanned   int           `json:"events_scanned"`
	EscrowsReleased int           `json:"escrows_released"`
	EscrowsRefunded int           `json:"escrows_refunded"`
	EventsBlocked   int           `json:"events_blocked"`
	EventsClosed    int           `json:"events_closed"`
	Failures        int           `json:"failures"`
}

// errSkip marks a unit that found nothing to do because another writer got there first.
var errSkip = errors.New("escrow no longer held")

// Scheduler periodically drives escrows of concluded and cancelled events to a
// terminal state. Each pass re-derives every decision from the store, and each
// escrow is settled in its own committed unit, so a pass may stop anywhere and
// the next one resumes.
type Scheduler struct {
	store    Store
	gate     Gate
	notifier Notifier
	interval time.Duration
	log      zerolog.Logger
	stop     chan struct{}
	running  atomic.Bool
}

func NewScheduler(store Store, gate Gate, notifier Notifier, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{
		store:    store,
		gate:     gate,
		notifier: notifier,
		interval: interval,
		log:      logger.Component("settlement"),
		stop:     make(chan struct{}, 1),
	}
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Start runs one pass immediately and then one per tick. The stop signal is
// only observed between passes. Call in a goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.running.Store(true)
	defer s.running.Store(false)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Stop signals the loop to exit after the current pass.
func (s *Scheduler) Stop() {
	select {
	case s.stop <- struct{}{}:
	default:
	}
}

// RunOnce executes one full pass. A started pass is not cancelled by ctx;
// units run on a context detached from cancellation.
func (s *Scheduler) RunOnce(ctx context.Context) PassReport {
	ctx = context.WithoutCancel(ctx)
	report := PassReport{StartedAt: time.Now().UTC()}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		metrics.SettlementPassesTotal.Inc()
		metrics.SettlementPassDuration.Observe(report.Duration.Seconds())
	}()

	candidates, err := s.store.ListSettlementCandidates(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list settlement candidates")
		report.Failures++
		return report
	}

	for _, ev := range candidates {
		report.EventsScanned++
		s.safeProcessEvent(ctx, ev, &report)
	}

	if report.EscrowsReleased+report.EscrowsRefunded+report.EventsBlocked+report.Failures > 0 {
		s.log.Info().
			Int("events", report.EventsScanned).
			Int("released", report.EscrowsReleased).
			Int("refunded", report.EscrowsRefunded).
			Int("blocked", report.EventsBlocked).
			Int("closed", report.EventsClosed).
			Int("failures", report.Failures).
			Msg("settlement pass finished")
	}
	return report
}

func (s *Scheduler) safeProcessEvent(ctx context.Context, ev *event.Event, report *PassReport) {
	defer func() {
		if r := recover(); r != nil {
			report.Failures++
			s.log.Error().Str("event_id", ev.ID.String()).Str("panic", fmt.Sprint(r)).Msg("panic while settling event")
		}
	}()
	if err := s.processEvent(ctx, ev, report); err != nil {
		report.Failures++
		s.log.Error().Err(err).Str("event_id", ev.ID.String()).Msg("failed to settle event")
	}
}

func (s *Scheduler) processEvent(ctx context.Context, ev *event.Event, report *PassReport) error {
	if ev.IsCancelled() {
		return s.settle(ctx, ev, StatusRefunded, nil, report)
	}
	if !ev.IsConcluded() {
		return nil
	}

	held, err := s.store.ListEscrowsByEvent(ctx, ev.ID, StatusHeld)
	if err != nil {
		return err
	}

	verdict, err := s.gate.Check(ctx, ev.ID)
	if err != nil {
		return err
	}

	// Nothing is held: recover any unpaid host payout, then close. No money
	// moves here, so pending disputes are left for an administrator.
	if len(held) == 0 {
		return s.finish(ctx, ev, finalStatus(verdict), false, report)
	}

	switch {
	case verdict.BlockedByDispute():
		return s.block(ctx, ev, event.EscrowBlockedByDispute, verdict.DisputeRaisers(), report)
	case verdict.BlockedByRefund():
		return s.block(ctx, ev, event.EscrowBlockedByRefund, verdict.RefundRequesters(), report)
	default:
		return s.settle(ctx, ev, finalStatus(verdict), verdict, report)
	}
}

// finalStatus picks the flavor of a concluded event: a dispute ruled Refunded
// sends the whole event back to its payers.
func finalStatus(v *dispute.Verdict) Status {
	if v != nil && v.RefundAll {
		return StatusRefunded
	}
	return StatusReleased
}

func (s *Scheduler) block(ctx context.Context, ev *event.Event, status event.EscrowStatus, requesters []uuid.UUID, report *PassReport) error {
	report.EventsBlocked++
	metrics.SettlementBlockedTotal.WithLabelValues(string(status)).Inc()
	if ev.EscrowStatus == status {
		return nil
	}
	if err := s.store.SetEventEscrowStatus(ctx, ev.ID, status); err != nil {
		return err
	}

	s.log.Info().Str("event_id", ev.ID.String()).Str("escrow_status", string(status)).Msg("settlement blocked")

	link := eventLink(ev.ID)
	s.notify(ctx, ev.HostID, "Payout for your event is on hold until an administrator reviews an open request.", link)
	for _, id := range requesters {
		s.notify(ctx, id, "Your request was received. Escrowed funds stay held until an administrator decides.", link)
	}
	return nil
}

// settle drives every Held escrow of the event to flavor, one committed unit per
// escrow, then pays the host and closes the aggregate when nothing is left.
func (s *Scheduler) settle(ctx context.Context, ev *event.Event, flavor Status, verdict *dispute.Verdict, report *PassReport) error {
	held, err := s.store.ListEscrowsByEvent(ctx, ev.ID, StatusHeld)
	if err != nil {
		return err
	}

	for _, esc := range held {
		to := flavor
		var refundRequestID uuid.NullUUID
		if rr, ok := verdict.RefundFor(esc.ID); ok && flavor == StatusReleased {
			to = StatusRefunded
			refundRequestID = uuid.NullUUID{UUID: rr.ID, Valid: true}
		}

		amount, err := s.settleEscrow(ctx, esc, to, refundRequestID)
		switch {
		case err == nil:
		case errors.Is(err, errSkip), errors.Is(err, ErrConcurrentUpdate):
			metrics.SettlementEscrowsTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
			continue
		default:
			report.Failures++
			metrics.SettlementEscrowsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
			var l *zerolog.Event
			if wallet.IsIntegrityError(err) {
				metrics.IntegrityAlertsTotal.Inc()
				l = logger.Integrity(ctx)
			} else {
				l = s.log.Error()
			}
			l.Err(err).Str("event_id", ev.ID.String()).Str("escrow_id", esc.ID.String()).Msg("escrow settlement step skipped")
			continue
		}

		if to == StatusRefunded {
			report.EscrowsRefunded++
			metrics.SettlementEscrowsTotal.WithLabelValues(metrics.OutcomeRefunded).Inc()
			s.notify(ctx, esc.PayerID, fmt.Sprintf("%s was refunded to your wallet.", payment.FormatAmount(amount)), eventLink(ev.ID))
		} else {
			report.EscrowsReleased++
			metrics.SettlementEscrowsTotal.WithLabelValues(metrics.OutcomeReleased).Inc()
			s.notify(ctx, esc.PayerID, fmt.Sprintf("%s held for this event was released to the host.", payment.FormatAmount(amount)), eventLink(ev.ID))
		}
	}

	return s.finish(ctx, ev, flavor, true, report)
}

// finish pays the host whatever is pending and closes the aggregate.
func (s *Scheduler) finish(ctx context.Context, ev *event.Event, flavor Status, resolveDisputes bool, report *PassReport) error {
	paid, err := s.payout(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("host payout: %w", err)
	}
	if paid > 0 {
		s.notify(ctx, ev.HostID, fmt.Sprintf("You received %s from event escrow.", payment.FormatAmount(paid)), eventLink(ev.ID))
	}

	closed, err := s.close(ctx, ev.ID, flavor, resolveDisputes)
	if err != nil {
		return fmt.Errorf("close event escrow: %w", err)
	}
	if closed {
		report.EventsClosed++
	}
	return nil
}

// settleEscrow is one unit: re-read under lock, verify still Held, move the
// money, write the transaction row and the conditional status change. Rows are
// locked event, payer wallet, escrow, the same order funding uses.
func (s *Scheduler) settleEscrow(ctx context.Context, listed *Escrow, to Status, refundRequestID uuid.NullUUID) (int64, error) {
	var amount int64
	err := s.store.InTx(ctx, func(tx Tx) error {
		ev, err := tx.LockEvent(ctx, listed.EventID)
		if err != nil {
			return err
		}
		w, err := tx.LockWallet(ctx, listed.PayerID)
		if err != nil {
			return err
		}
		esc, err := tx.LockEscrow(ctx, listed.ID)
		if err != nil {
			return err
		}
		if !esc.IsHeld() {
			return errSkip
		}
		amount = esc.Amount

		var t *wallet.Transaction
		if to == StatusRefunded {
			floored, err := w.RefundEscrow(amount)
			if err != nil {
				return err
			}
			if floored {
				metrics.IntegrityAlertsTotal.Inc()
				logger.Integrity(ctx).Str("escrow_id", esc.ID.String()).Str("payer_id", esc.PayerID.String()).Int64("amount", amount).Msg("total_spent floored at zero on refund")
			}
			t = wallet.NewTransaction(esc.PayerID, wallet.TransactionTypeEscrowRefund, amount, wallet.PaymentMethodWallet).ForEscrow(esc.ID)
		} else {
			if err := w.ReleaseEscrow(amount); err != nil {
				return err
			}
			ev.PendingPayout += amount
			if err := tx.SaveEventEscrow(ctx, ev); err != nil {
				return err
			}
			t = wallet.NewTransaction(esc.PayerID, wallet.TransactionTypeEscrowReleased, -amount, wallet.PaymentMethodWallet).ForEscrow(esc.ID)
		}

		if err := esc.Settle(to); err != nil {
			return err
		}
		if err := tx.UpdateEscrow(ctx, esc, StatusHeld); err != nil {
			return err
		}
		if err := tx.SaveWallet(ctx, w); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, t); err != nil {
			return err
		}
		if refundRequestID.Valid {
			return tx.MarkRefundApplied(ctx, refundRequestID.UUID)
		}
		return nil
	})
	return amount, err
}

// payout credits the event's accumulated released amount to the host as one
// Escrow_Receive row. It is a no-op when nothing is pending.
func (s *Scheduler) payout(ctx context.Context, eventID uuid.UUID) (int64, error) {
	var paid int64
	err := s.store.InTx(ctx, func(tx Tx) error {
		ev, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.PendingPayout <= 0 {
			return nil
		}

		if err := tx.EnsureWallet(ctx, ev.HostID); err != nil {
			return err
		}
		host, err := tx.LockWallet(ctx, ev.HostID)
		if err != nil {
			return err
		}
		if err := host.Credit(ev.PendingPayout); err != nil {
			return err
		}
		if err := tx.SaveWallet(ctx, host); err != nil {
			return err
		}
		t := wallet.NewTransaction(ev.HostID, wallet.TransactionTypeEscrowReceive, ev.PendingPayout, wallet.PaymentMethodWallet).
			WithReference(ev.ID.String())
		if err := tx.InsertTransaction(ctx, t); err != nil {
			return err
		}

		paid = ev.PendingPayout
		ev.PendingPayout = 0
		return tx.SaveEventEscrow(ctx, ev)
	})
	if err == nil && paid > 0 {
		s.log.Info().Str("event_id", eventID.String()).Int64("amount", paid).Msg("host payout credited")
	}
	return paid, err
}

// close sets the terminal aggregate once no escrow is Held. With
// resolveDisputes the still-Pending disputes are marked moot.
func (s *Scheduler) close(ctx context.Context, eventID uuid.UUID, flavor Status, resolveDisputes bool) (bool, error) {
	status := event.EscrowReleased
	decision := dispute.DecisionReleased
	if flavor == StatusRefunded {
		status = event.EscrowRefunded
		decision = dispute.DecisionRefunded
	}

	var closed bool
	err := s.store.InTx(ctx, func(tx Tx) error {
		ev, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		n, err := tx.CountHeldEscrows(ctx, eventID)
		if err != nil {
			return err
		}
		if n > 0 || ev.PendingPayout > 0 {
			return nil
		}

		ev.EscrowStatus = status
		if err := tx.SaveEventEscrow(ctx, ev); err != nil {
			return err
		}
		closed = true
		if !resolveDisputes {
			return nil
		}
		resolved, err := tx.ResolvePendingDisputes(ctx, eventID, decision)
		if err != nil {
			return err
		}
		if resolved > 0 {
			s.log.Info().Str("event_id", eventID.String()).Int("disputes", resolved).Str("decision", string(decision)).Msg("pending disputes resolved after settlement")
		}
		return nil
	})
	return closed, err
}

func (s *Scheduler) notify(ctx context.Context, userID uuid.UUID, message, link string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, message, link); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("notification failed")
	}
}

func eventLink(eventID uuid.UUID) string {
	return "/events/" + eventID.String()
}
