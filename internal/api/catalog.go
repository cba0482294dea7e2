package api

import (
	"net/http"
	"strconv"

	"campusmarket/internal/service"
	"campusmarket/internal/store"

	"github.com/gin-gonic/gin"
)

// --- Services ---

func (h *Handler) createService(c *gin.Context) {
	var req service.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	svc, err := h.catalog.CreateService(c.Request.Context(), actor(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, svc)
}

func (h *Handler) listServices(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter := store.ServiceFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Limit:    limit,
	}

	services, err := h.catalog.ListServices(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

func (h *Handler) getService(c *gin.Context) {
	svc, err := h.catalog.GetService(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

func (h *Handler) updateService(c *gin.Context) {
	var req service.UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	svc, err := h.catalog.UpdateService(c.Request.Context(), actor(c), c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

func (h *Handler) deleteService(c *gin.Context) {
	if err := h.catalog.DeleteService(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listMyServices(c *gin.Context) {
	services, err := h.catalog.ListServicesByProvider(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

// --- Gigs ---

func (h *Handler) createGig(c *gin.Context) {
	var req service.CreateGigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	gig, err := h.catalog.CreateGig(c.Request.Context(), actor(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gig)
}

func (h *Handler) listGigs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter := store.GigFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		Limit:    limit,
	}

	gigs, err := h.catalog.ListGigs(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gigs": gigs})
}

func (h *Handler) getGig(c *gin.Context) {
	gig, err := h.catalog.GetGig(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gig)
}

func (h *Handler) updateGig(c *gin.Context) {
	var req service.UpdateGigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	gig, err := h.catalog.UpdateGig(c.Request.Context(), actor(c), c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gig)
}

func (h *Handler) deleteGig(c *gin.Context) {
	if err := h.catalog.DeleteGig(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listMyGigs(c *gin.Context) {
	gigs, err := h.catalog.ListGigsByClient(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gigs": gigs})
}
