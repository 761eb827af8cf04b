package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/backend/internal/domain"
)

func TestCollection_Replace(t *testing.T) {
	c := New()

	t.Run("replaces contents wholesale", func(t *testing.T) {
		c.Articles.Replace([]domain.Article{{ID: "a1", Description: "hi"}})
		require.Equal(t, 1, c.Articles.Len())

		c.Articles.Replace([]domain.Article{{ID: "a2", Description: "other"}})
		require.Equal(t, 1, c.Articles.Len())
		_, ok := c.Articles.Get("a1")
		assert.False(t, ok)
	})

	t.Run("keeps first occurrence of duplicated ids", func(t *testing.T) {
		c.Articles.Replace([]domain.Article{
			{ID: "a1", Description: "first"},
			{ID: "a1", Description: "second"},
		})
		require.Equal(t, 1, c.Articles.Len())
		got, ok := c.Articles.Get("a1")
		require.True(t, ok)
		assert.Equal(t, "first", got.Description)
	})

	t.Run("empty snapshot clears the collection", func(t *testing.T) {
		c.Articles.Replace(nil)
		assert.Equal(t, 0, c.Articles.Len())
	})
}

func TestCollection_UpsertMany(t *testing.T) {
	c := New()
	c.Events.Replace([]domain.Event{{ID: "e1", Name: "old"}, {ID: "e2", Name: "kept"}})

	c.Events.UpsertMany([]domain.Event{{ID: "e1", Name: "new"}, {ID: "e3", Name: "added"}})

	require.Equal(t, 3, c.Events.Len())
	e1, _ := c.Events.Get("e1")
	assert.Equal(t, "new", e1.Name)
	e2, ok := c.Events.Get("e2")
	require.True(t, ok)
	assert.Equal(t, "kept", e2.Name)
}

func TestCollection_Remove(t *testing.T) {
	c := New()
	c.Projects.Replace([]domain.Project{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}})

	c.Projects.Remove("p2")

	require.Equal(t, 2, c.Projects.Len())
	_, ok := c.Projects.Get("p2")
	assert.False(t, ok)
	// Index stays consistent after the shift.
	p3, ok := c.Projects.Get("p3")
	require.True(t, ok)
	assert.Equal(t, "p3", p3.ID)

	c.Projects.Remove("missing") // no-op
	assert.Equal(t, 2, c.Projects.Len())
}

func TestCollection_Patch(t *testing.T) {
	c := New()
	c.Articles.Replace([]domain.Article{{ID: "a1", Likes: domain.LikeSet{Count: 0}}})

	ok := c.Articles.Patch("a1", func(a domain.Article) domain.Article {
		a.Likes.Count++
		a.Likes.Users = append(a.Likes.Users, "x@y.com")
		return a
	})
	require.True(t, ok)

	got, _ := c.Articles.Get("a1")
	assert.Equal(t, int64(1), got.Likes.Count)
	assert.Equal(t, []string{"x@y.com"}, got.Likes.Users)

	assert.False(t, c.Articles.Patch("missing", func(a domain.Article) domain.Article { return a }))
}

func TestCache_Subscribe(t *testing.T) {
	c := New()
	ch, cancel := c.Subscribe()
	defer cancel()

	c.Events.Replace([]domain.Event{{ID: "e1"}})

	change := <-ch
	assert.Equal(t, domain.CollectionEvents, change.Collection)

	t.Run("cancel closes the channel", func(t *testing.T) {
		ch2, cancel2 := c.Subscribe()
		cancel2()
		_, open := <-ch2
		assert.False(t, open)
	})

	t.Run("slow consumers drop instead of blocking", func(t *testing.T) {
		ch3, cancel3 := c.Subscribe()
		defer cancel3()
		for i := 0; i < 100; i++ {
			c.Events.Replace([]domain.Event{{ID: "e1"}})
		}
		// Writer never blocked; the buffered portion is readable.
		assert.NotZero(t, len(ch3))
	})
}
