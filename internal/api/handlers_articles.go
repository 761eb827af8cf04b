package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campushub/backend/internal/domain"
	"github.com/campushub/backend/internal/mutate"
)

// listArticles serves the feed from the cache; the subscription layer keeps
// it sorted by post time descending.
func (h *Handler) listArticles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "articles": h.cache.Articles.Items()})
}

// postArticle accepts a multipart form: description, video, and an optional
// image file.
func (h *Handler) postArticle(c *gin.Context) {
	who := CurrentIdentity(c)

	in := mutate.PostArticleInput{
		Description: strings.TrimSpace(c.PostForm("description")),
		VideoURL:    strings.TrimSpace(c.PostForm("video")),
	}

	if file, err := c.FormFile("image"); err == nil {
		if h.uploadTooLarge(file.Size) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"ok": false, "error": "image too large"})
			return
		}
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unreadable image"})
			return
		}
		defer f.Close()
		in.Image = f
		in.ImageName = file.Filename
		in.ImageSize = file.Size
	}

	article, err := h.pipeline.PostArticle(c.Request.Context(), who, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "article": article})
}

// deleteArticle is restricted to the article's author. A cache miss falls
// back to reading the document, so a not-yet-synced article cannot be deleted
// by someone else.
func (h *Handler) deleteArticle(c *gin.Context) {
	id := c.Param("id")
	who := CurrentIdentity(c)

	article, ok := h.cache.Articles.Get(id)
	if !ok {
		var err error
		article, err = h.pipeline.FetchArticle(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
	}
	if article.Actor.Email != who.Email {
		fail(c, domain.ErrNotAuthorized)
		return
	}
	if err := h.pipeline.DeleteArticle(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) likeArticle(c *gin.Context) {
	who := CurrentIdentity(c)
	if err := h.pipeline.Like(c.Request.Context(), c.Param("id"), who.Email); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type commentReq struct {
	Text string `json:"text"`
}

func (h *Handler) addComment(c *gin.Context) {
	var req commentReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	who := CurrentIdentity(c)
	if err := h.pipeline.AddComment(c.Request.Context(), c.Param("id"), who, req.Text); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
