package controllers

import (
	"net/http"
	"strings"

	"github.com/davidrecordon/dawnward-sub002/config"
	"github.com/davidrecordon/dawnward-sub002/middlewares"
	"github.com/davidrecordon/dawnward-sub002/services"
	"github.com/davidrecordon/dawnward-sub002/utils"

	"github.com/gin-gonic/gin"
)

type GoogleAuthController struct {
	OAuth *services.GoogleOAuth
}

func NewGoogleAuthController(oauth *services.GoogleOAuth) *GoogleAuthController {
	return &GoogleAuthController{OAuth: oauth}
}

const stateCookie = "dw_oauth_state"

// GET /auth/google/login?next=/trips
func (gc *GoogleAuthController) LoginRedirect(c *gin.Context) {
	next := utils.SafeRedirectPath(c.Query("next"), "/")
	nonce := utils.GenerateStateNonce()
	state := nonce + "|" + next

	c.SetCookie(stateCookie, nonce, 600, "/", "", true, true)
	c.Redirect(http.StatusFound, gc.OAuth.AuthCodeURL(state, false))
}

// GET /auth/google/calendar — incremental consent adding Calendar scope
func (gc *GoogleAuthController) CalendarConsent(c *gin.Context) {
	next := utils.SafeRedirectPath(c.Query("next"), "/")
	nonce := utils.GenerateStateNonce()
	state := nonce + "|" + next

	c.SetCookie(stateCookie, nonce, 600, "/", "", true, true)
	c.Redirect(http.StatusFound, gc.OAuth.AuthCodeURL(state, true))
}

// GET /auth/google/callback
func (gc *GoogleAuthController) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code or state"})
		return
	}

	nonce, next, found := strings.Cut(state, "|")
	if !found {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed state"})
		return
	}
	cookie, err := c.Cookie(stateCookie)
	if err != nil || !middlewares.TimingSafeEqual(cookie, nonce) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state mismatch"})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", true, true)

	token, err := gc.OAuth.Exchange(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "token exchange failed"})
		return
	}

	info, err := gc.OAuth.FetchUserInfo(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not fetch Google profile"})
		return
	}

	user, err := services.FindOrCreateGoogleUser(info.Email, info.Name)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	grantedScopes, _ := token.Extra("scope").(string)
	if _, err := gc.OAuth.UpsertAccount(config.DB, user.ID, info.Sub, token, strings.Fields(grantedScopes)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not link account"})
		return
	}

	jwtToken, err := utils.GenerateJWT(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate token"})
		return
	}

	c.Redirect(http.StatusFound, utils.SafeRedirectPath(next, "/")+"#token="+jwtToken)
}
