package api

import (
	"net/http"

	"campusmarket/internal/service"

	"github.com/gin-gonic/gin"
)

// placeBid places a bid on an open gig
func (h *Handler) placeBid(c *gin.Context) {
	var req service.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	bid, err := h.bidding.PlaceBid(c.Request.Context(), actor(c), c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bid)
}

// listGigBids returns all bids on a gig, visible to its client only
func (h *Handler) listGigBids(c *gin.Context) {
	bids, err := h.bidding.ListBidsByGig(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

func (h *Handler) listMyBids(c *gin.Context) {
	bids, err := h.bidding.ListMyBids(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

func (h *Handler) editBid(c *gin.Context) {
	var req service.EditBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	bid, err := h.bidding.EditBid(c.Request.Context(), actor(c), c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bid)
}

func (h *Handler) withdrawBid(c *gin.Context) {
	if err := h.bidding.WithdrawBid(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "withdrawn"})
}

// acceptBid accepts one bid, rejecting its siblings and creating the order
func (h *Handler) acceptBid(c *gin.Context) {
	result, err := h.bidding.AcceptBid(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bid":           result.Bid,
		"gig":           result.Gig,
		"order":         result.Order,
		"rejected_bids": result.RejectedBids,
	})
}
