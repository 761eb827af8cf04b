package domain

import "time"

// Collection names in the document store.
const (
	CollectionArticles      = "articles"
	CollectionEvents        = "events"
	CollectionProjects      = "projects"
	CollectionUsers         = "users"
	CollectionNotifications = "notifications"
	CollectionSettings      = "settings"

	// DocAuthorizedUsers is the singleton settings document holding the list
	// of emails allowed to create events.
	DocAuthorizedUsers = "authorizedUsers"
)

// Identity is the signed-in user record produced by the auth flow. Its
// presence gates all subscription and mutation activity.
type Identity struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// Actor identifies who posted an article and when.
type Actor struct {
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	PostedAt    time.Time `json:"postedAt"`
	AvatarURL   string    `json:"avatarUrl"`
}

type Comment struct {
	AuthorEmail string `json:"authorEmail"`
	AuthorName  string `json:"authorName"`
	Text        string `json:"text"`
	AvatarURL   string `json:"avatarUrl"`
}

// LikeSet tracks who liked an article. Count always equals len(Users); a user
// appears at most once.
type LikeSet struct {
	Count int64    `json:"count"`
	Users []string `json:"users"`
}

// Contains reports whether email already liked.
func (l LikeSet) Contains(email string) bool {
	for _, u := range l.Users {
		if u == email {
			return true
		}
	}
	return false
}

type Article struct {
	ID          string    `json:"id"`
	Actor       Actor     `json:"actor"`
	VideoURL    string    `json:"video,omitempty"`
	ImageURL    string    `json:"sharedImage,omitempty"`
	Description string    `json:"description,omitempty"`
	Comments    []Comment `json:"comments"`
	Likes       LikeSet   `json:"likes"`
}

func (a Article) EntityID() string { return a.ID }

// Event dates are stored as separate calendar date and local time-of-day
// strings; StartsAt combines them into one instant.
const (
	EventDateLayout = "2006-01-02"
	EventTimeLayout = "15:04"
)

type Event struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Date             string    `json:"date"`
	Time             string    `json:"time"`
	Duration         string    `json:"duration,omitempty"`
	Location         string    `json:"location,omitempty"`
	ClubName         string    `json:"clubName,omitempty"`
	Description      string    `json:"description,omitempty"`
	PosterURL        string    `json:"poster,omitempty"`
	BrochureURL      string    `json:"brochure,omitempty"`
	RegistrationLink string    `json:"registrationLink,omitempty"`
	CreatorEmail     string    `json:"creator"`
	AuthorName       string    `json:"authorName"`
	AuthorAvatarURL  string    `json:"authorAvatarUrl,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (e Event) EntityID() string { return e.ID }

// StartsAt resolves the event's (date, time) pair to an instant in the local
// time zone.
func (e Event) StartsAt() (time.Time, error) {
	return time.ParseInLocation(EventDateLayout+" "+EventTimeLayout, e.Date+" "+e.Time, time.Local)
}

// Upcoming reports whether the event's instant is strictly in the future.
// Events with an unparseable date are treated as upcoming so that bad data is
// never silently evicted.
func (e Event) Upcoming(now time.Time) bool {
	at, err := e.StartsAt()
	if err != nil {
		return true
	}
	return at.After(now)
}

type Role struct {
	PersonName string `json:"personName"`
	RoleName   string `json:"roleName"`
}

type Project struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Roles           []Role    `json:"roles"`
	Members         []string  `json:"members"`
	CreatorEmail    string    `json:"creator"`
	AuthorName      string    `json:"authorName"`
	AuthorAvatarURL string    `json:"authorAvatarUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (p Project) EntityID() string { return p.ID }

type Certificate struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// UserProfile is keyed by email rather than a generated document id. Details
// holds the freeform profile fields the UI edits as an opaque block.
type UserProfile struct {
	Email          string         `json:"email"`
	Username       string         `json:"username"`
	ProfilePicture string         `json:"profilePicture,omitempty"`
	Certificates   []Certificate  `json:"certificates"`
	Details        map[string]any `json:"details,omitempty"`
}

func (u UserProfile) EntityID() string { return u.Email }

type Notification struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (n Notification) EntityID() string { return n.ID }
