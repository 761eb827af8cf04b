package domain

import "time"

// Document field names below are the ones the production collections already
// contain; the article author block in particular keeps its legacy keys
// (email under "description", display name under "title").

func ArticleFromDoc(id string, m map[string]any) Article {
	actor := docMap(m, "actor")
	likes := docMap(m, "likes")

	a := Article{
		ID: id,
		Actor: Actor{
			Email:       docString(actor, "description"),
			DisplayName: docString(actor, "title"),
			PostedAt:    docTime(actor, "date"),
			AvatarURL:   docString(actor, "image"),
		},
		VideoURL:    docString(m, "video"),
		ImageURL:    docString(m, "sharedImage"),
		Description: docString(m, "description"),
		Likes: LikeSet{
			Count: docInt(likes, "count"),
			Users: docStrings(likes, "users"),
		},
	}
	for _, c := range docMaps(m, "comments") {
		a.Comments = append(a.Comments, CommentFromDoc(c))
	}
	return a
}

func (a Article) DocData() map[string]any {
	comments := make([]any, 0, len(a.Comments))
	for _, c := range a.Comments {
		comments = append(comments, c.DocData())
	}
	return map[string]any{
		"actor": map[string]any{
			"description": a.Actor.Email,
			"title":       a.Actor.DisplayName,
			"date":        a.Actor.PostedAt,
			"image":       a.Actor.AvatarURL,
		},
		"video":       a.VideoURL,
		"sharedImage": a.ImageURL,
		"description": a.Description,
		"comments":    comments,
		"likes":       a.Likes.DocData(),
	}
}

func CommentFromDoc(m map[string]any) Comment {
	return Comment{
		AuthorEmail: docString(m, "userEmail"),
		AuthorName:  docString(m, "username"),
		Text:        docString(m, "comment"),
		AvatarURL:   docString(m, "userImage"),
	}
}

func (c Comment) DocData() map[string]any {
	return map[string]any{
		"userEmail": c.AuthorEmail,
		"username":  c.AuthorName,
		"comment":   c.Text,
		"userImage": c.AvatarURL,
	}
}

func (l LikeSet) DocData() map[string]any {
	users := l.Users
	if users == nil {
		users = []string{}
	}
	return map[string]any{"count": l.Count, "users": users}
}

func EventFromDoc(id string, m map[string]any) Event {
	return Event{
		ID:               id,
		Name:             docString(m, "name"),
		Date:             docString(m, "date"),
		Time:             docString(m, "time"),
		Duration:         docString(m, "duration"),
		Location:         docString(m, "location"),
		ClubName:         docString(m, "clubName"),
		Description:      docString(m, "description"),
		PosterURL:        docString(m, "poster"),
		BrochureURL:      docString(m, "brochure"),
		RegistrationLink: docString(m, "registrationLink"),
		CreatorEmail:     docString(m, "creator"),
		AuthorName:       docString(m, "userName"),
		AuthorAvatarURL:  docString(m, "profilePic"),
		CreatedAt:        docTime(m, "timestamp"),
	}
}

func (e Event) DocData() map[string]any {
	return map[string]any{
		"name":             e.Name,
		"date":             e.Date,
		"time":             e.Time,
		"duration":         e.Duration,
		"location":         e.Location,
		"clubName":         e.ClubName,
		"description":      e.Description,
		"poster":           e.PosterURL,
		"brochure":         e.BrochureURL,
		"registrationLink": e.RegistrationLink,
		"creator":          e.CreatorEmail,
		"userName":         e.AuthorName,
		"profilePic":       e.AuthorAvatarURL,
		"timestamp":        e.CreatedAt,
	}
}

func ProjectFromDoc(id string, m map[string]any) Project {
	p := Project{
		ID:              id,
		Name:            docString(m, "name"),
		Description:     docString(m, "description"),
		Members:         docStrings(m, "members"),
		CreatorEmail:    docString(m, "creator"),
		AuthorName:      docString(m, "userName"),
		AuthorAvatarURL: docString(m, "profilePic"),
		CreatedAt:       docTime(m, "timestamp"),
	}
	for _, r := range docMaps(m, "roles") {
		p.Roles = append(p.Roles, Role{
			PersonName: docString(r, "personName"),
			RoleName:   docString(r, "roleName"),
		})
	}
	return p
}

func (p Project) DocData() map[string]any {
	roles := make([]any, 0, len(p.Roles))
	for _, r := range p.Roles {
		roles = append(roles, r.DocData())
	}
	members := p.Members
	if members == nil {
		members = []string{}
	}
	return map[string]any{
		"name":        p.Name,
		"description": p.Description,
		"roles":       roles,
		"members":     members,
		"creator":     p.CreatorEmail,
		"userName":    p.AuthorName,
		"profilePic":  p.AuthorAvatarURL,
		"timestamp":   p.CreatedAt,
	}
}

func (r Role) DocData() map[string]any {
	return map[string]any{"personName": r.PersonName, "roleName": r.RoleName}
}

func CertificateFromDoc(m map[string]any) Certificate {
	return Certificate{Name: docString(m, "name"), URL: docString(m, "url")}
}

func (c Certificate) DocData() map[string]any {
	return map[string]any{"name": c.Name, "url": c.URL}
}

// UserFromDoc extracts the known profile fields and keeps everything else in
// Details, so freeform fields round-trip through merge writes untouched.
func UserFromDoc(email string, m map[string]any) UserProfile {
	u := UserProfile{
		Email:          email,
		Username:       docString(m, "username"),
		ProfilePicture: docString(m, "profilePicture"),
	}
	for _, c := range docMaps(m, "certificates") {
		u.Certificates = append(u.Certificates, CertificateFromDoc(c))
	}
	for k, v := range m {
		switch k {
		case "email", "username", "profilePicture", "certificates":
		default:
			if u.Details == nil {
				u.Details = map[string]any{}
			}
			u.Details[k] = v
		}
	}
	return u
}

func NotificationFromDoc(id string, m map[string]any) Notification {
	return Notification{ID: id, Text: docString(m, "text")}
}

func docMap(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

func docString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func docTime(m map[string]any, key string) time.Time {
	switch v := m[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// docInt tolerates the numeric types the store round-trips (int64 from
// Firestore, float64 from JSON, int from local writes).
func docInt(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func docStrings(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		if v, ok := m[key].([]string); ok {
			return append([]string(nil), v...)
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

func docMaps(m map[string]any, key string) []map[string]any {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		if mm, ok := e.(map[string]any); ok {
			out = append(out, mm)
		}
	}
	return out
}
