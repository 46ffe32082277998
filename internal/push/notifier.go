package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mhutchens/chorebank/internal/chore"
	"github.com/mhutchens/chorebank/internal/model"
	"github.com/mhutchens/chorebank/internal/store"
)

// sender is the slice of Service the notifier needs; tests substitute a fake.
type sender interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

// Notifier turns lifecycle events into push notifications. Completions go to
// the family's parents; approvals and rejections go to the child involved.
type Notifier struct {
	svc    sender
	subs   *store.PushStore
	logger *slog.Logger
}

func NewNotifier(svc *Service, subs *store.PushStore, logger *slog.Logger) *Notifier {
	return &Notifier{svc: svc, subs: subs, logger: logger}
}

// Notify fans the events out to their recipients. It is safe to call from a
// goroutine after the originating transaction commits; failures are logged,
// never surfaced to the request that caused them.
func (n *Notifier) Notify(ctx context.Context, events []chore.Event) {
	for _, ev := range events {
		var (
			subs    []model.PushSubscription
			payload Payload
			err     error
		)

		switch ev.Kind {
		case chore.EventChoreCompleted:
			subs, err = n.subs.ListByFamilyRole(ev.FamilyID, model.RoleParent)
			payload = Payload{
				Title: "Chore completed",
				Body:  fmt.Sprintf("%q is waiting for your approval", ev.Title),
				URL:   "/pending",
				Tag:   fmt.Sprintf("assignment-%d", ev.AssignmentID),
			}
		case chore.EventChoreApproved:
			subs, err = n.subs.ListByUser(ev.ChildID)
			payload = Payload{
				Title: "Chore approved",
				Body:  fmt.Sprintf("%q earned you %d points", ev.Title, ev.Amount),
				URL:   "/chores",
				Tag:   fmt.Sprintf("assignment-%d", ev.AssignmentID),
			}
		case chore.EventChoreRejected:
			subs, err = n.subs.ListByUser(ev.ChildID)
			payload = Payload{
				Title: "Chore sent back",
				Body:  fmt.Sprintf("%q needs another look", ev.Title),
				URL:   "/chores",
				Tag:   fmt.Sprintf("assignment-%d", ev.AssignmentID),
			}
		default:
			continue
		}
		if err != nil {
			n.logger.Error("list push subscriptions", "kind", ev.Kind, "error", err)
			continue
		}

		for i := range subs {
			n.send(ctx, &subs[i], payload)
		}
	}
}

// send delivers one notification with a short exponential backoff. Expired
// subscriptions are pruned instead of retried.
func (n *Notifier) send(ctx context.Context, sub *model.PushSubscription, payload Payload) {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := n.svc.Send(sub, payload)
		if errors.Is(err, ErrExpired) {
			return err // not retryable
		}
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if errors.Is(err, ErrExpired) {
		if derr := n.subs.DeleteByEndpoint(sub.Endpoint); derr != nil {
			n.logger.Error("prune expired subscription", "error", derr)
		}
		return
	}
	if err != nil {
		n.logger.Error("send push", "subscription", sub.ID, "error", err)
	}
}
