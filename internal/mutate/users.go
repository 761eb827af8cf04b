package mutate

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/campushub/backend/internal/domain"
	"github.com/campushub/backend/internal/store"
)

// EnsureUser creates the profile document on first sign-in and loads it into
// the cache. Safe to call on every session start.
func (p *Pipeline) EnsureUser(ctx context.Context, who domain.Identity) (domain.UserProfile, error) {
	profile, err := p.FetchUser(ctx, who.Email)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.UserProfile{}, err
	}

	data := map[string]any{
		"email":          who.Email,
		"username":       who.DisplayName,
		"profilePicture": who.AvatarURL,
	}
	if err := p.store.Set(ctx, domain.CollectionUsers, who.Email, data, false); err != nil {
		log.Printf("ensure user %s: %v", who.Email, err)
		return domain.UserProfile{}, classify(err)
	}
	return p.FetchUser(ctx, who.Email)
}

// FetchUser reads the profile document and refreshes the cache entry.
func (p *Pipeline) FetchUser(ctx context.Context, email string) (domain.UserProfile, error) {
	doc, err := p.store.Get(ctx, domain.CollectionUsers, email)
	if err != nil {
		return domain.UserProfile{}, err
	}
	profile := domain.UserFromDoc(email, doc.Data)
	p.apply(userLoaded{user: profile})
	return profile, nil
}

// UpdateUserDetails merge-writes the editable profile fields plus whatever
// freeform details the UI sent, then re-reads the merged document.
func (p *Pipeline) UpdateUserDetails(ctx context.Context, email, username, picture string, details map[string]any) (domain.UserProfile, error) {
	data := make(map[string]any, len(details)+2)
	for k, v := range details {
		data[k] = v
	}
	data["username"] = username
	data["profilePicture"] = picture

	if err := p.store.Set(ctx, domain.CollectionUsers, email, data, true); err != nil {
		log.Printf("update user %s: %v", email, err)
		return domain.UserProfile{}, classify(err)
	}
	return p.FetchUser(ctx, email)
}

type CertificateFile struct {
	Name string
	Body io.Reader
	Size int64
}

// UploadCertificates stores each file under a path scoped by the owner's
// email, then set-unions the resulting {name, url} records into the profile.
// Records equal to an existing one are absorbed by the union.
func (p *Pipeline) UploadCertificates(ctx context.Context, email string, files []CertificateFile) ([]domain.Certificate, error) {
	added := make([]domain.Certificate, 0, len(files))
	records := make([]any, 0, len(files))
	for _, f := range files {
		path := "certificates/" + email + "/" + f.Name
		url, err := p.blobs.Put(ctx, path, f.Body, f.Size, uploadProgress(path))
		if err != nil {
			log.Printf("upload certificate %s: %v", path, err)
			return nil, classify(err)
		}
		cert := domain.Certificate{Name: f.Name, URL: url}
		added = append(added, cert)
		records = append(records, cert.DocData())
	}

	err := p.store.Update(ctx, domain.CollectionUsers, email, []store.Update{
		{Path: "certificates", Value: store.Union{Values: records}},
	})
	if err != nil {
		log.Printf("upload certificates for %s: %v", email, err)
		return nil, classify(err)
	}

	if _, err := p.FetchUser(ctx, email); err != nil {
		log.Printf("refresh user %s after certificate upload: %v", email, err)
	}
	return added, nil
}

// DeleteCertificate removes the blob first, then set-differences the exact
// {name, url} record out of the profile.
func (p *Pipeline) DeleteCertificate(ctx context.Context, email string, cert domain.Certificate) error {
	if err := p.blobs.DeleteByURL(ctx, cert.URL); err != nil {
		log.Printf("delete certificate blob %s: %v", cert.URL, err)
		return classify(err)
	}

	err := p.store.Update(ctx, domain.CollectionUsers, email, []store.Update{
		{Path: "certificates", Value: store.Remove{Values: []any{cert.DocData()}}},
	})
	if err != nil {
		log.Printf("delete certificate for %s: %v", email, err)
		return classify(err)
	}

	if _, err := p.FetchUser(ctx, email); err != nil {
		log.Printf("refresh user %s after certificate delete: %v", email, err)
	}
	return nil
}
