package handler

import (
    "context"
    "encoding/json"
    "strconv"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/matrimony-api/internal/middleware"
    "github.com/iliyamo/matrimony-api/internal/response"
    "github.com/iliyamo/matrimony-api/internal/service"
)

// CacheInvalidator drops cached GET responses for a path.
type CacheInvalidator interface {
    Invalidate(ctx context.Context, path string)
}

// ProfileHandler serves profile views and edits.
type ProfileHandler struct {
    Profiles *service.ProfileService
    Cache    CacheInvalidator // may be nil
    Log      *zap.Logger
}

func NewProfileHandler(s *service.ProfileService, cache CacheInvalidator, log *zap.Logger) *ProfileHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &ProfileHandler{Profiles: s, Cache: cache, Log: log}
}

func profilePath(userID uint64) string { return "/profiles/" + strconv.FormatUint(userID, 10) }

// Get: GET /profiles/:id
func (h *ProfileHandler) Get(c echo.Context) error {
    userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || userID == 0 {
        return writeError(c, h.Log, &service.ValidationError{Field: "id", Message: "must be a positive integer"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    p, err := h.Profiles.Get(ctx, userID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return response.OK(c, "", p)
}

// Update: PUT /profile.  Only allow-listed keys are accepted; any other key
// rejects the whole body.
func (h *ProfileHandler) Update(c echo.Context) error {
    id, ok := middleware.CurrentIdentity(c)
    if !ok {
        return writeError(c, h.Log, service.ErrUnauthenticated)
    }
    var body map[string]json.RawMessage
    if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
        return writeError(c, h.Log, invalidBody())
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    p, err := h.Profiles.Update(ctx, id.UserID, body)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    if h.Cache != nil {
        h.Cache.Invalidate(ctx, profilePath(id.UserID))
    }
    return response.OK(c, "profile updated", p)
}
