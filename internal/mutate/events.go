package mutate

import (
	"context"
	"log"

	"github.com/campushub/backend/internal/domain"
	"github.com/campushub/backend/internal/store"
)

// AddEvent stamps the creator identity and creation time onto the event and
// writes it. CreatedAt drives display ordering only; the retention window
// comes from the event's own (date, time) pair.
func (p *Pipeline) AddEvent(ctx context.Context, who domain.Identity, e domain.Event) (domain.Event, error) {
	e.CreatorEmail = who.Email
	e.AuthorName = who.DisplayName
	e.AuthorAvatarURL = who.AvatarURL
	e.CreatedAt = p.now()

	id, err := p.store.Add(ctx, domain.CollectionEvents, e.DocData())
	if err != nil {
		log.Printf("add event: %v", err)
		return domain.Event{}, classify(err)
	}
	e.ID = id
	p.apply(eventAdded{event: e})
	return e, nil
}

// FetchEvent reads the event document directly, bypassing the cache.
func (p *Pipeline) FetchEvent(ctx context.Context, id string) (domain.Event, error) {
	doc, err := p.store.Get(ctx, domain.CollectionEvents, id)
	if err != nil {
		return domain.Event{}, err
	}
	return domain.EventFromDoc(doc.ID, doc.Data), nil
}

// UpdateEvent rewrites the editable fields of an existing event, preserving
// its creator and creation time.
func (p *Pipeline) UpdateEvent(ctx context.Context, id string, e domain.Event) (domain.Event, error) {
	doc, err := p.store.Get(ctx, domain.CollectionEvents, id)
	if err != nil {
		log.Printf("update event %s: %v", id, err)
		return domain.Event{}, err
	}
	current := domain.EventFromDoc(doc.ID, doc.Data)

	e.ID = id
	e.CreatorEmail = current.CreatorEmail
	e.AuthorName = current.AuthorName
	e.AuthorAvatarURL = current.AuthorAvatarURL
	e.CreatedAt = current.CreatedAt

	if err := p.store.Set(ctx, domain.CollectionEvents, id, e.DocData(), true); err != nil {
		log.Printf("update event %s: %v", id, err)
		return domain.Event{}, classify(err)
	}
	p.apply(eventUpdated{event: e})
	return e, nil
}

// DeleteEvent removes the event from the store and the cache. Used both by
// the API surface and by the eviction sweep.
func (p *Pipeline) DeleteEvent(ctx context.Context, id string) error {
	if err := p.store.Delete(ctx, domain.CollectionEvents, id); err != nil {
		log.Printf("delete event %s: %v", id, err)
		return classify(err)
	}
	p.apply(eventRemoved{id: id})
	return nil
}

// AuthorizedOrganizer reports whether email appears in the organizer list
// kept in the settings singleton document.
func (p *Pipeline) AuthorizedOrganizer(ctx context.Context, email string) (bool, error) {
	doc, err := p.store.Get(ctx, domain.CollectionSettings, domain.DocAuthorizedUsers)
	if err != nil {
		return false, err
	}
	for _, authorized := range docEmails(doc) {
		if authorized == email {
			return true, nil
		}
	}
	return false, nil
}

func docEmails(doc store.Document) []string {
	raw, ok := doc.Data["emails"].([]any)
	if !ok {
		if v, ok := doc.Data["emails"].([]string); ok {
			return v
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
