// Package topic tracks which identities subscribe to which topics, so domain event
// envelopes can be fanned out to everyone following the topics a command named.
package topic

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/missionhub/internal/document"
	apperrors "github.com/allisson/missionhub/internal/errors"
	customValidation "github.com/allisson/missionhub/internal/validation"
)

// Collection is the document collection subscriptions are stored in.
const Collection = "topic_subscriptions"

// ErrSubscriptionNotFound is returned when unsubscribing an identity that is not subscribed.
var ErrSubscriptionNotFound = apperrors.Wrap(apperrors.ErrNotFound, "topic subscription not found")

// subscriptionNamespace scopes the deterministic subscription uids.
var subscriptionNamespace = uuid.MustParse("6f1d3c52-8a4e-4b8e-9a51-2f0d7c3e9b14")

// Subscription links an identity to a topic. Destination is where fan-out is delivered;
// it defaults to the identity.
type Subscription struct {
	UID         string    `json:"uid"`
	Topic       string    `json:"topic"`
	Identity    string    `json:"identity"`
	Destination string    `json:"destination"`
	CreatedAt   time.Time `json:"created_at"`
}

// SubscribeInput subscribes an identity to a topic.
type SubscribeInput struct {
	Topic       string `json:"topic"`
	Identity    string `json:"identity"`
	Destination string `json:"destination"`
}

// Validate checks the input.
func (i *SubscribeInput) Validate() error {
	err := validation.ValidateStruct(i,
		validation.Field(&i.Topic, validation.Required, customValidation.NotBlank, validation.Length(1, 64)),
		validation.Field(&i.Identity, validation.Required, customValidation.Identity),
		validation.Field(&i.Destination, customValidation.Identity),
	)
	return customValidation.WrapValidationError(err)
}

// Registry stores subscriptions in the document store, one document per
// (topic, identity) with the topic as parent.
type Registry struct {
	subscriptions *document.Collection[Subscription]
	now           func() time.Time
}

// NewRegistry creates a registry over store.
func NewRegistry(store document.Store) *Registry {
	return &Registry{
		subscriptions: document.NewCollection(store, Collection,
			func(s *Subscription) (string, string) { return s.UID, s.Topic },
			ErrSubscriptionNotFound),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe adds or refreshes a subscription.
func (r *Registry) Subscribe(ctx context.Context, input *SubscribeInput) (*Subscription, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	identity := normalizeIdentity(input.Identity)
	destination := input.Destination
	if destination == "" {
		destination = identity
	}

	subscription := &Subscription{
		UID:         subscriptionUID(input.Topic, identity),
		Topic:       input.Topic,
		Identity:    identity,
		Destination: destination,
		CreatedAt:   r.now(),
	}
	if err := r.subscriptions.Put(ctx, subscription); err != nil {
		return nil, err
	}
	return subscription, nil
}

// Unsubscribe removes the subscription of identity to topic.
func (r *Registry) Unsubscribe(ctx context.Context, topic, identity string) error {
	return r.subscriptions.Delete(ctx, subscriptionUID(topic, normalizeIdentity(identity)))
}

// List returns the subscriptions of one topic.
func (r *Registry) List(ctx context.Context, topic string) ([]*Subscription, error) {
	return r.subscriptions.List(ctx, topic)
}

// Subscribers returns the subscriptions of every given topic, one per identity. The
// first topic an identity follows wins.
func (r *Registry) Subscribers(ctx context.Context, topics ...string) ([]*Subscription, error) {
	seen := make(map[string]struct{})
	result := make([]*Subscription, 0)

	for _, topic := range topics {
		if topic == "" {
			continue
		}
		subscriptions, err := r.subscriptions.List(ctx, topic)
		if err != nil {
			return nil, err
		}
		for _, s := range subscriptions {
			if _, dup := seen[s.Identity]; dup {
				continue
			}
			seen[s.Identity] = struct{}{}
			result = append(result, s)
		}
	}
	return result, nil
}

func subscriptionUID(topic, identity string) string {
	return uuid.NewSHA1(subscriptionNamespace, []byte(topic+"\x00"+identity)).String()
}

func normalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
