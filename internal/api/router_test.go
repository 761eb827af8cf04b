package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/backend/internal/cache"
	"github.com/campushub/backend/internal/domain"
	"github.com/campushub/backend/internal/mutate"
	"github.com/campushub/backend/internal/store"
)

type fixture struct {
	router *gin.Engine
	mem    *store.Memory
	blobs  *store.MemoryBlobs
	cache  *cache.Cache
}

// newFixture wires the full handler stack against the in-memory store, with a
// nil auth client so identity comes from headers.
func newFixture(t *testing.T) *fixture {
	return newFixtureWithUploadCap(t, 16)
}

func newFixtureWithUploadCap(t *testing.T, maxUploadMB int) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := store.NewMemory()
	blobs := store.NewMemoryBlobs()
	c := cache.New()
	p := mutate.NewPipeline(mem, blobs, c)
	h := NewHandler(c, p, nil, "campushub-api", "test", maxUploadMB)

	router := gin.New()
	h.RegisterHealth(router)
	grp := router.Group("/api/v1")
	grp.Use(WithIdentity(nil))
	h.Register(grp)

	return &fixture{router: router, mem: mem, blobs: blobs, cache: c}
}

func (f *fixture) do(t *testing.T, method, path string, body io.Reader, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("X-User-Email", "alice@campus.edu")
	req.Header.Set("X-User-Name", "Alice")
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func asJSON(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func jsonBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func withJSON(req *http.Request) { req.Header.Set("Content-Type", "application/json") }

func asUser(email string) func(*http.Request) {
	return func(req *http.Request) { req.Header.Set("X-User-Email", email) }
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "campushub-api", resp.Service)
}

func TestIdentityRequired(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/articles", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSession(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, w.Code)

	profile, ok := f.cache.Users.Get("alice@campus.edu")
	require.True(t, ok)
	assert.Equal(t, "Alice", profile.Username)
}

func TestArticleRoutes(t *testing.T) {
	f := newFixture(t)

	postForm := func(t *testing.T, description string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("description", description))
		require.NoError(t, mw.Close())
		return f.do(t, http.MethodPost, "/api/v1/articles", &buf, func(req *http.Request) {
			req.Header.Set("Content-Type", mw.FormDataContentType())
		})
	}

	t.Run("post and list", func(t *testing.T) {
		w := postForm(t, "hello feed")
		require.Equal(t, http.StatusCreated, w.Code)

		w = f.do(t, http.MethodGet, "/api/v1/articles", nil)
		require.Equal(t, http.StatusOK, w.Code)
		articles := jsonBody(t, w)["articles"].([]any)
		require.Len(t, articles, 1)
	})

	t.Run("empty post is rejected", func(t *testing.T) {
		w := postForm(t, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("like twice counts once", func(t *testing.T) {
		id := f.cache.Articles.Items()[0].ID
		for i := 0; i < 2; i++ {
			w := f.do(t, http.MethodPost, "/api/v1/articles/"+id+"/like", nil)
			require.Equal(t, http.StatusOK, w.Code)
		}
		article, _ := f.cache.Articles.Get(id)
		assert.Equal(t, int64(1), article.Likes.Count)
	})

	t.Run("comment needs text", func(t *testing.T) {
		id := f.cache.Articles.Items()[0].ID
		w := f.do(t, http.MethodPost, "/api/v1/articles/"+id+"/comments", asJSON(t, gin.H{"text": "  "}), withJSON)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("comment by a signed-in user", func(t *testing.T) {
		id := f.cache.Articles.Items()[0].ID
		require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/session", nil).Code)

		w := f.do(t, http.MethodPost, "/api/v1/articles/"+id+"/comments", asJSON(t, gin.H{"text": "great"}), withJSON)
		require.Equal(t, http.StatusOK, w.Code)
		article, _ := f.cache.Articles.Get(id)
		require.Len(t, article.Comments, 1)
		assert.Equal(t, "Alice", article.Comments[0].AuthorName)
	})

	t.Run("only the creator may delete", func(t *testing.T) {
		id := f.cache.Articles.Items()[0].ID
		w := f.do(t, http.MethodDelete, "/api/v1/articles/"+id, nil, asUser("mallory@campus.edu"))
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = f.do(t, http.MethodDelete, "/api/v1/articles/"+id, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestEventRoutes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	body := gin.H{"name": "Tech Talk", "date": "2099-01-01", "time": "18:00"}

	t.Run("non-organizers cannot create events", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/events", asJSON(t, body), withJSON)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	require.NoError(t, f.mem.Set(ctx, domain.CollectionSettings, domain.DocAuthorizedUsers,
		map[string]any{"emails": []any{"alice@campus.edu"}}, false))

	t.Run("organizers can", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/events", asJSON(t, body), withJSON)
		require.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("rejects an unparseable date", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/events", asJSON(t, gin.H{"name": "x", "date": "soon", "time": "later"}), withJSON)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("listing hides past events", func(t *testing.T) {
		restore := timeNow
		defer func() { timeNow = restore }()
		timeNow = func() time.Time { return time.Date(2099, 1, 1, 19, 0, 0, 0, time.Local) }

		w := f.do(t, http.MethodGet, "/api/v1/events", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, jsonBody(t, w)["events"])

		timeNow = func() time.Time { return time.Date(2098, 12, 31, 0, 0, 0, 0, time.Local) }
		w = f.do(t, http.MethodGet, "/api/v1/events", nil)
		events := jsonBody(t, w)["events"].([]any)
		assert.Len(t, events, 1)
	})

	t.Run("name filter", func(t *testing.T) {
		restore := timeNow
		defer func() { timeNow = restore }()
		timeNow = func() time.Time { return time.Date(2098, 12, 31, 0, 0, 0, 0, time.Local) }

		w := f.do(t, http.MethodGet, "/api/v1/events?q=tech", nil)
		assert.Len(t, jsonBody(t, w)["events"], 1)

		w = f.do(t, http.MethodGet, "/api/v1/events?q=nomatch", nil)
		assert.Empty(t, jsonBody(t, w)["events"])
	})

	t.Run("only the creator may update or delete", func(t *testing.T) {
		id := f.cache.Events.Items()[0].ID
		w := f.do(t, http.MethodPut, "/api/v1/events/"+id, asJSON(t, body), withJSON, asUser("mallory@campus.edu"))
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = f.do(t, http.MethodDelete, "/api/v1/events/"+id, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestProjectRoutes(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/projects", asJSON(t, gin.H{"name": "Robotics", "description": "club bot"}), withJSON)
	require.Equal(t, http.StatusCreated, w.Code)
	id := f.cache.Projects.Items()[0].ID

	t.Run("role and member append", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/roles",
			asJSON(t, gin.H{"personName": "Bob", "roleName": "lead"}), withJSON)
		require.Equal(t, http.StatusOK, w.Code)

		w = f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/members",
			asJSON(t, gin.H{"member": "carol@campus.edu"}), withJSON)
		require.Equal(t, http.StatusOK, w.Code)

		project, _ := f.cache.Projects.Get(id)
		assert.Len(t, project.Roles, 1)
		assert.Equal(t, []string{"carol@campus.edu"}, project.Members)
	})

	t.Run("update restricted to the creator", func(t *testing.T) {
		w := f.do(t, http.MethodPut, "/api/v1/projects/"+id,
			asJSON(t, gin.H{"name": "X", "description": "Y"}), withJSON, asUser("mallory@campus.edu"))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		w := f.do(t, http.MethodDelete, "/api/v1/projects/"+id, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, f.cache.Projects.Len())
	})
}

func TestOwnershipSurvivesCacheMiss(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Documents written straight to the store: present remotely, absent from
	// the cache because no subscription manager runs in this fixture.
	article := domain.Article{Actor: domain.Actor{Email: "alice@campus.edu"}, Description: "direct"}
	require.NoError(t, f.mem.Set(ctx, domain.CollectionArticles, "a-direct", article.DocData(), false))
	event := domain.Event{Name: "Hidden", Date: "2099-01-01", Time: "10:00", CreatorEmail: "alice@campus.edu"}
	require.NoError(t, f.mem.Set(ctx, domain.CollectionEvents, "e-direct", event.DocData(), false))
	project := domain.Project{Name: "Hidden", CreatorEmail: "alice@campus.edu"}
	require.NoError(t, f.mem.Set(ctx, domain.CollectionProjects, "p-direct", project.DocData(), false))

	t.Run("uncached article is still protected", func(t *testing.T) {
		w := f.do(t, http.MethodDelete, "/api/v1/articles/a-direct", nil, asUser("mallory@campus.edu"))
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = f.do(t, http.MethodDelete, "/api/v1/articles/a-direct", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("uncached event is still protected", func(t *testing.T) {
		body := gin.H{"name": "Taken Over", "date": "2099-01-01", "time": "10:00"}
		w := f.do(t, http.MethodPut, "/api/v1/events/e-direct", asJSON(t, body), withJSON, asUser("mallory@campus.edu"))
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = f.do(t, http.MethodDelete, "/api/v1/events/e-direct", nil, asUser("mallory@campus.edu"))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("uncached project is still protected", func(t *testing.T) {
		w := f.do(t, http.MethodDelete, "/api/v1/projects/p-direct", nil, asUser("mallory@campus.edu"))
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = f.do(t, http.MethodDelete, "/api/v1/projects/p-direct", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("a vanished document is a 404, not a free pass", func(t *testing.T) {
		w := f.do(t, http.MethodDelete, "/api/v1/events/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUploadCap(t *testing.T) {
	f := newFixtureWithUploadCap(t, 1)

	fileForm := func(t *testing.T, field, name string, size int) (*bytes.Buffer, string) {
		t.Helper()
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write(bytes.Repeat([]byte("a"), size))
		require.NoError(t, err)
		require.NoError(t, mw.Close())
		return &buf, mw.FormDataContentType()
	}

	t.Run("oversized certificate is rejected", func(t *testing.T) {
		body, contentType := fileForm(t, "files", "big.pdf", (1<<20)+1)
		w := f.do(t, http.MethodPost, "/api/v1/users/alice@campus.edu/certificates", body, func(req *http.Request) {
			req.Header.Set("Content-Type", contentType)
		})
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.False(t, f.blobs.Has("mem://certificates/alice@campus.edu/big.pdf"))
	})

	t.Run("oversized article image is rejected", func(t *testing.T) {
		body, contentType := fileForm(t, "image", "big.png", (1<<20)+1)
		w := f.do(t, http.MethodPost, "/api/v1/articles", body, func(req *http.Request) {
			req.Header.Set("Content-Type", contentType)
		})
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, 0, f.cache.Articles.Len())
	})

	t.Run("a file inside the cap goes through", func(t *testing.T) {
		require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/session", nil).Code)
		body, contentType := fileForm(t, "files", "small.pdf", 1024)
		w := f.do(t, http.MethodPost, "/api/v1/users/alice@campus.edu/certificates", body, func(req *http.Request) {
			req.Header.Set("Content-Type", contentType)
		})
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

func TestStream(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"X-User-Email": {"alice@campus.edu"}})
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.Eventually(t, func() bool { return f.cache.Subscribers() == 1 },
		time.Second, 10*time.Millisecond, "handler subscribes after the upgrade")

	f.cache.Events.Replace([]domain.Event{{ID: "e1", Name: "Tech Talk"}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var change cache.Change
	require.NoError(t, conn.ReadJSON(&change))
	assert.Equal(t, domain.CollectionEvents, change.Collection)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return f.cache.Subscribers() == 0 },
		time.Second, 10*time.Millisecond, "disconnect cancels the subscription")
}

func TestUserRoutes(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/session", nil).Code)

	t.Run("unknown profile", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/users/ghost@campus.edu", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("only the owner may edit", func(t *testing.T) {
		w := f.do(t, http.MethodPut, "/api/v1/users/alice@campus.edu",
			asJSON(t, gin.H{"username": "Eve"}), withJSON, asUser("eve@campus.edu"))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("profile edit with freeform details", func(t *testing.T) {
		w := f.do(t, http.MethodPut, "/api/v1/users/alice@campus.edu",
			asJSON(t, gin.H{"username": "Alice W.", "details": gin.H{"headline": "robotics"}}), withJSON)
		require.Equal(t, http.StatusOK, w.Code)

		profile, _ := f.cache.Users.Get("alice@campus.edu")
		assert.Equal(t, "Alice W.", profile.Username)
		assert.Equal(t, "robotics", profile.Details["headline"])
	})

	t.Run("certificate upload and delete", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("files", "aws.pdf")
		require.NoError(t, err)
		_, err = fw.Write([]byte("pdf"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		w := f.do(t, http.MethodPost, "/api/v1/users/alice@campus.edu/certificates", &buf, func(req *http.Request) {
			req.Header.Set("Content-Type", mw.FormDataContentType())
		})
		require.Equal(t, http.StatusCreated, w.Code)

		profile, _ := f.cache.Users.Get("alice@campus.edu")
		require.Len(t, profile.Certificates, 1)
		cert := profile.Certificates[0]
		assert.True(t, f.blobs.Has(cert.URL))

		w = f.do(t, http.MethodDelete, "/api/v1/users/alice@campus.edu/certificates",
			asJSON(t, gin.H{"name": cert.Name, "url": cert.URL}), withJSON)
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, f.blobs.Has(cert.URL))
	})
}
