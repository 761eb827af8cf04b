package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campushub/backend/internal/domain"
)

func (h *Handler) listProjects(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": h.cache.Projects.Items()})
}

type projectReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) addProject(c *gin.Context) {
	var req projectReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	who := CurrentIdentity(c)
	project, err := h.pipeline.AddProject(c.Request.Context(), who, domain.Project{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": project})
}

// projectCreatorOnly mirrors eventCreatorOnly for projects.
func (h *Handler) projectCreatorOnly(c *gin.Context, id string) bool {
	current, ok := h.cache.Projects.Get(id)
	if !ok {
		var err error
		current, err = h.pipeline.FetchProject(c.Request.Context(), id)
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

func (h *Handler) updateProject(c *gin.Context) {
	id := c.Param("id")

	if !h.projectCreatorOnly(c, id) {
		return
	}

	var req projectReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	if err := h.pipeline.UpdateProject(c.Request.Context(), id, strings.TrimSpace(req.Name), req.Description); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) deleteProject(c *gin.Context) {
	id := c.Param("id")

	if !h.projectCreatorOnly(c, id) {
		return
	}
	if err := h.pipeline.DeleteProject(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type roleReq struct {
	PersonName string `json:"personName"`
	RoleName   string `json:"roleName"`
}

func (h *Handler) addProjectRole(c *gin.Context) {
	var req roleReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PersonName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	err := h.pipeline.AddProjectRole(c.Request.Context(), c.Param("id"), domain.Role{
		PersonName: strings.TrimSpace(req.PersonName),
		RoleName:   strings.TrimSpace(req.RoleName),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type memberReq struct {
	Member string `json:"member"`
}

func (h *Handler) addProjectMember(c *gin.Context) {
	var req memberReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Member) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	if err := h.pipeline.AddProjectMember(c.Request.Context(), c.Param("id"), strings.TrimSpace(req.Member)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
