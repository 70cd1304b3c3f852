package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/tombola/internal/room"
)

// RoomStats returns aggregate counts over every live room (public).
func RoomStats(reg *room.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, reg.Stats())
	}
}

// GetRoom returns the public summary of one room by code.
func GetRoom(reg *room.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := reg.Find(c.Param("code"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, r.Summary())
	}
}

// ListRooms returns every live room (super-admin only).
func ListRooms(reg *room.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": reg.Summaries()})
	}
}

// CloseRoom force-closes a room (super-admin only). Members receive
// room:closed.
func CloseRoom(reg *room.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		code, err := room.CanonicalCode(c.Param("code"))
		if err != nil {
			respondError(c, err)
			return
		}
		if !reg.Remove(code, room.ReasonRemoved) {
			respondError(c, room.ErrRoomNotFound)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Room closed"})
	}
}
