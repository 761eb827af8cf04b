package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/backend/internal/domain"
	"github.com/campushub/backend/internal/mutate"
)

func (h *Handler) getUser(c *gin.Context) {
	profile, err := h.pipeline.FetchUser(c.Request.Context(), c.Param("email"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "profile": profile})
}

type userDetailsReq struct {
	Username       string         `json:"username"`
	ProfilePicture string         `json:"profilePicture"`
	Details        map[string]any `json:"details"`
}

// updateUser merge-writes profile fields. Only the owner may edit.
func (h *Handler) updateUser(c *gin.Context) {
	email := c.Param("email")
	if CurrentIdentity(c).Email != email {
		fail(c, domain.ErrNotAuthorized)
		return
	}

	var req userDetailsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	profile, err := h.pipeline.UpdateUserDetails(c.Request.Context(), email, req.Username, req.ProfilePicture, req.Details)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "profile": profile})
}

// uploadCertificates accepts a multipart form with one or more "files"
// entries.
func (h *Handler) uploadCertificates(c *gin.Context) {
	email := c.Param("email")
	if CurrentIdentity(c).Email != email {
		fail(c, domain.ErrNotAuthorized)
		return
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "no files"})
		return
	}

	var files []mutate.CertificateFile
	for _, header := range form.File["files"] {
		if h.uploadTooLarge(header.Size) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"ok": false, "error": "file too large"})
			return
		}
		f, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unreadable file"})
			return
		}
		defer f.Close()
		files = append(files, mutate.CertificateFile{Name: header.Filename, Body: f, Size: header.Size})
	}

	added, err := h.pipeline.UploadCertificates(c.Request.Context(), email, files)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "certificates": added})
}

type certificateReq struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (h *Handler) deleteCertificate(c *gin.Context) {
	email := c.Param("email")
	if CurrentIdentity(c).Email != email {
		fail(c, domain.ErrNotAuthorized)
		return
	}

	var req certificateReq
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	err := h.pipeline.DeleteCertificate(c.Request.Context(), email, domain.Certificate{Name: req.Name, URL: req.URL})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
