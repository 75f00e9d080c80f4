package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/movie-storefront/internal/service"
)

// SocialHandler handles ratings, reactions and favorites.  Every route is
// keyed by the movie in :id.
type SocialHandler struct {
    Social *service.SocialService
    Log    *zap.Logger
}

func NewSocialHandler(social *service.SocialService, log *zap.Logger) *SocialHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &SocialHandler{Social: social, Log: log.Named("social_http")}
}

// caller resolves the user and movie for a social route, writing the error
// response itself when either is missing.
func (h *SocialHandler) caller(c echo.Context) (userID, movieID uint64, ok bool) {
    userID, err := getUserID(c)
    if err != nil {
        _ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
        return 0, 0, false
    }
    movieID, ok = idParam(c, "id")
    if !ok {
        _ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
        return 0, 0, false
    }
    return userID, movieID, true
}

// Rate handles POST /v1/movies/:id/rating {"score": 1..10}.
func (h *SocialHandler) Rate(c echo.Context) error {
    userID, movieID, ok := h.caller(c)
    if !ok {
        return nil
    }
    var body struct {
        Score int `json:"score"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := h.Social.Rate(c.Request().Context(), userID, movieID, body.Score); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"movie_id": movieID, "score": body.Score})
}

// React handles POST /v1/movies/:id/reaction {"kind": "like"|"dislike"}.
func (h *SocialHandler) React(c echo.Context) error {
    userID, movieID, ok := h.caller(c)
    if !ok {
        return nil
    }
    var body struct {
        Kind string `json:"kind"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := h.Social.React(c.Request().Context(), userID, movieID, body.Kind); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"movie_id": movieID, "kind": body.Kind})
}

// Unreact handles DELETE /v1/movies/:id/reaction.
func (h *SocialHandler) Unreact(c echo.Context) error {
    userID, movieID, ok := h.caller(c)
    if !ok {
        return nil
    }
    if err := h.Social.Unreact(c.Request().Context(), userID, movieID); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// AddFavorite handles POST /v1/movies/:id/favorite.
func (h *SocialHandler) AddFavorite(c echo.Context) error {
    userID, movieID, ok := h.caller(c)
    if !ok {
        return nil
    }
    if err := h.Social.AddFavorite(c.Request().Context(), userID, movieID); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"movie_id": movieID})
}

// RemoveFavorite handles DELETE /v1/movies/:id/favorite.
func (h *SocialHandler) RemoveFavorite(c echo.Context) error {
    userID, movieID, ok := h.caller(c)
    if !ok {
        return nil
    }
    if err := h.Social.RemoveFavorite(c.Request().Context(), userID, movieID); err != nil {
        return writeError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}
