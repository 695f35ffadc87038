package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"clockin/internal/devstore"
)

// lateGrace is how far past an event's start a clock-in still counts as
// present.
const lateGrace = 10 * time.Minute

// markAttendanceHandler validates the multipart clock-in payload and
// records the attendance. Status codes mirror the production contract:
// 400 malformed, 404 unknown event, 403 outside the event window or a
// repeated mark, 201 recorded.
func markAttendanceHandler(db devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID := c.PostForm("eventId")
		latStr := c.PostForm("latitude")
		lngStr := c.PostForm("longitude")
		if eventID == "" || latStr == "" || lngStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "eventId, latitude and longitude required"})
			return
		}
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lng, errLng := strconv.ParseFloat(lngStr, 64)
		if errLat != nil || errLng != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})
			return
		}
		if _, _, err := c.Request.FormFile("image"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image field required"})
			return
		}

		evt, err := db.GetEvent(c.Request.Context(), eventID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}

		now := time.Now()
		if now.Before(evt.Start) || now.After(evt.End) {
			c.JSON(http.StatusForbidden, gin.H{"error": "event is not ongoing"})
			return
		}

		status := "present"
		if now.After(evt.Start.Add(lateGrace)) {
			status = "late"
		}

		userID := claimsSubject(c)
		if err := db.MarkAttendance(c.Request.Context(), userID, eventID, status, lat, lng); err != nil {
			if err == devstore.ErrAlreadyMarked {
				c.JSON(http.StatusForbidden, gin.H{"error": "attendance already marked"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"status": status})
	}
}
