package server

import (
	"linkshelf/internal/middleware"
	"linkshelf/internal/models"
	"linkshelf/internal/repository"
	"linkshelf/internal/service"

	"github.com/gofiber/fiber/v2"
)

type setRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// maintenanceReport summarizes one reconcile run.
type maintenanceReport struct {
	FavoriteCountsFixed int64 `json:"favoriteCountsFixed"`
	TagsPruned          int64 `json:"tagsPruned"`
	PremiumExpired      int64 `json:"premiumExpired"`
}

// AdminListUsers handles GET /api/admin/users
// @Summary List users
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param status query string false "all, pending, approved or premium"
// @Param page query int false "Page"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} service.UserPage
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/users [get]
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	status := c.Query("status", repository.UserStatusAll)
	switch status {
	case repository.UserStatusAll, repository.UserStatusPending, repository.UserStatusApproved, repository.UserStatusPremium:
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("status must be one of: all pending approved premium"))
	}

	page, err := s.adminService.ListUsers(c.UserContext(), status, c.QueryInt("page", 1), c.QueryInt("limit", 20))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(page)
}

// AdminUpdateUser handles PATCH /api/admin/users/:id
// @Summary Update approval, premium tier or quota
// @Description Going premium without premiumUntil grants 30 days. Switching tier resets the quota unless maxBookmarks is given.
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body service.AdminUserPatch true "Patch"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id} [patch]
func (s *Server) AdminUpdateUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var patch service.AdminUserPatch
	if err := s.parseBody(c, &patch); err != nil {
		return nil
	}

	user, err := s.adminService.UpdateUser(c.UserContext(), id, patch)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// AdminSetRole handles POST /api/admin/users/:id/role
// @Summary Promote or demote
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body setRoleRequest true "Role"
// @Success 200 {object} models.User
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/users/{id}/role [post]
func (s *Server) AdminSetRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req setRoleRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.adminService.SetRole(c.UserContext(), middleware.PrincipalFrom(c), id, req.Role)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

// AdminGetSetting handles GET /api/admin/settings/:key
// @Summary Get setting document
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param key path string true "site or seo"
// @Success 200 {object} object
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/settings/{key} [get]
func (s *Server) AdminGetSetting(c *fiber.Ctx) error {
	doc, err := s.settingsService.Get(c.UserContext(), c.Params("key"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(doc)
}

// AdminPutSetting handles PUT /api/admin/settings/:key
// @Summary Replace setting document
// @Description Unknown fields are rejected.
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param key path string true "site or seo"
// @Success 200 {object} object
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/settings/{key} [put]
func (s *Server) AdminPutSetting(c *fiber.Ctx) error {
	doc, err := s.settingsService.Put(c.UserContext(), c.Params("key"), c.Body())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(doc)
}

// AdminReconcile handles POST /api/admin/maintenance/reconcile
// @Summary Run maintenance
// @Description Repairs favorite counters, prunes unused tags and expires lapsed premium accounts.
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} maintenanceReport
// @Router /admin/maintenance/reconcile [post]
func (s *Server) AdminReconcile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	var report maintenanceReport
	var err error

	if report.FavoriteCountsFixed, err = s.favoriteService.Reconcile(ctx); err != nil {
		return models.RespondWithAppError(c, err)
	}
	if report.TagsPruned, err = s.tagService.PruneOrphans(ctx); err != nil {
		return models.RespondWithAppError(c, err)
	}
	if report.PremiumExpired, err = s.adminService.ExpirePremium(ctx); err != nil {
		return models.RespondWithAppError(c, err)
	}

	middleware.Logger.InfoContext(ctx, "maintenance run",
		"favorites_fixed", report.FavoriteCountsFixed,
		"tags_pruned", report.TagsPruned,
		"premium_expired", report.PremiumExpired,
	)
	return c.JSON(report)
}
