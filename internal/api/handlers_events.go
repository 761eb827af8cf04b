package api

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campushub/backend/internal/domain"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// listEvents serves only upcoming events, newest-created first, optionally
// filtered by a case-insensitive name substring. Past events are excluded
// here regardless of whether the eviction sweep has caught up.
func (h *Handler) listEvents(c *gin.Context) {
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	now := timeNow()

	events := h.cache.Events.Items()
	upcoming := events[:0:0]
	for _, e := range events {
		if !e.Upcoming(now) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(e.Name), q) {
			continue
		}
		upcoming = append(upcoming, e)
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].CreatedAt.After(upcoming[j].CreatedAt)
	})

	c.JSON(http.StatusOK, gin.H{"ok": true, "events": upcoming})
}

type eventReq struct {
	Name             string `json:"name"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	Duration         string `json:"duration"`
	Location         string `json:"location"`
	ClubName         string `json:"clubName"`
	Description      string `json:"description"`
	PosterURL        string `json:"poster"`
	BrochureURL      string `json:"brochure"`
	RegistrationLink string `json:"registrationLink"`
}

func (r eventReq) event() domain.Event {
	return domain.Event{
		Name:             strings.TrimSpace(r.Name),
		Date:             r.Date,
		Time:             r.Time,
		Duration:         r.Duration,
		Location:         r.Location,
		ClubName:         r.ClubName,
		Description:      r.Description,
		PosterURL:        r.PosterURL,
		BrochureURL:      r.BrochureURL,
		RegistrationLink: r.RegistrationLink,
	}
}

func (r eventReq) valid() bool {
	if strings.TrimSpace(r.Name) == "" {
		return false
	}
	e := r.event()
	_, err := e.StartsAt()
	return err == nil
}

// addEvent is restricted to the organizer list in the settings document.
func (h *Handler) addEvent(c *gin.Context) {
	who := CurrentIdentity(c)

	ok, err := h.pipeline.AuthorizedOrganizer(c.Request.Context(), who.Email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		fail(c, err)
		return
	}
	if !ok {
		fail(c, domain.ErrNotAuthorized)
		return
	}

	var req eventReq
	if err := c.ShouldBindJSON(&req); err != nil || !req.valid() {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	event, err := h.pipeline.AddEvent(c.Request.Context(), who, req.event())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "event": event})
}

// eventCreatorOnly verifies the caller created the event, reading the
// document when the cache has not yet seen it. Reports whether the request
// may proceed; the failure response is already written otherwise.
func (h *Handler) eventCreatorOnly(c *gin.Context, id string) bool {
	current, ok := h.cache.Events.Get(id)
	if !ok {
		var err error
		current, err = h.pipeline.FetchEvent(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return false
		}
	}
	if current.CreatorEmail != CurrentIdentity(c).Email {
		fail(c, domain.ErrNotAuthorized)
		return false
	}
	return true
}

// updateEvent and deleteEvent are restricted to the event's creator.
func (h *Handler) updateEvent(c *gin.Context) {
	id := c.Param("id")

	if !h.eventCreatorOnly(c, id) {
		return
	}

	var req eventReq
	if err := c.ShouldBindJSON(&req); err != nil || !req.valid() {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	event, err := h.pipeline.UpdateEvent(c.Request.Context(), id, req.event())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "event": event})
}

func (h *Handler) deleteEvent(c *gin.Context) {
	id := c.Param("id")

	if !h.eventCreatorOnly(c, id) {
		return
	}
	if err := h.pipeline.DeleteEvent(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
