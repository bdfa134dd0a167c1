package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gammapace/backend/internal/geo"
	sessiondomain "github.com/gammapace/backend/internal/session/domain"
	userdomain "github.com/gammapace/backend/internal/user/domain"
)

type deviceRequest struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	Browser    string `json:"browser"`
	OS         string `json:"os"`
}

type signupRequest struct {
	Email     string        `json:"email"`
	Password  string        `json:"password"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Country   string        `json:"country"`
	Timezone  string        `json:"timezone"`
	Device    deviceRequest `json:"device"`
}

type signinRequest struct {
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Timezone string        `json:"timezone"`
	Device   deviceRequest `json:"device"`

	// Force takes over a live session on another device after the user
	// has confirmed the conflict.
	Force bool `json:"force"`
}

func (s *Server) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ctx := c.Request.Context()

	var location *geo.Location
	if loc, ok := s.geoSvc.Lookup(ctx, geo.Query{IP: c.ClientIP(), Timezone: req.Timezone}); ok {
		location = &loc
	}

	user, err := s.userSvc.Signup(ctx, userdomain.SignupRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Country:   req.Country,
		Location:  location,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	started, err := s.sessionSvc.Start(ctx, sessiondomain.StartRequest{
		UserID:     user.ID,
		DeviceID:   req.Device.DeviceID,
		DeviceName: req.Device.DeviceName,
		Browser:    req.Device.Browser,
		OS:         req.Device.OS,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"user":    user,
		"session": gin.H{
			"token":      started.Token,
			"device_id":  started.Session.DeviceID,
			"started_at": started.Session.StartedAt,
		},
	})
}

func (s *Server) Signin(c *gin.Context) {
	if s.authLimiter != nil && !s.authLimiter.allow(c.ClientIP(), s.clock.Now()) {
		s.metrics.RecordRateLimitDenied(c.Request.Context(), "signin")
		AbortWithError(c, ErrRateLimited)
		return
	}

	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ctx := c.Request.Context()

	user, err := s.userSvc.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	started, err := s.sessionSvc.Start(ctx, sessiondomain.StartRequest{
		UserID:     user.ID,
		DeviceID:   req.Device.DeviceID,
		DeviceName: req.Device.DeviceName,
		Browser:    req.Device.Browser,
		OS:         req.Device.OS,
		Force:      req.Force,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if loc, ok := s.geoSvc.Lookup(ctx, geo.Query{IP: c.ClientIP(), Timezone: req.Timezone}); ok {
		// Location history is advisory; failures never block a signin.
		_ = s.userSvc.RecordLocation(ctx, user.ID, loc, "signin")
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"user":       user,
		"subscribed": user.Subscribed(s.clock.Now()),
		"session": gin.H{
			"token":      started.Token,
			"device_id":  started.Session.DeviceID,
			"started_at": started.Session.StartedAt,
		},
	})
}

func (s *Server) Signout(c *gin.Context) {
	if err := s.sessionSvc.End(c.Request.Context(), bearerToken(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
