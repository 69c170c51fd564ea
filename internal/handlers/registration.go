package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"registration-gateway/internal/models"
	"registration-gateway/internal/services"
	"registration-gateway/internal/utils"
)

type RegistrationHandler struct {
	registrations *services.RegistrationService
}

func NewRegistrationHandler(registrations *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

func (h *RegistrationHandler) SaveRegistration(c *gin.Context) {
	fields, err := bindFields(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	record, err := h.registrations.Save(c.Request.Context(), fields)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to save registration data", nil))
		return
	}

	c.JSON(http.StatusOK, &models.SaveRegistrationResponse{
		Success:        true,
		Message:        "Registration saved successfully",
		RegistrationID: record.ID,
	})
}

func (h *RegistrationHandler) ListRegistrations(c *gin.Context) {
	records, err := h.registrations.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to read registrations", nil))
		return
	}

	c.JSON(http.StatusOK, &models.RegistrationListResponse{
		Success:       true,
		Registrations: records,
	})
}

// bindFields reads an arbitrary JSON object or form submission. Repeated
// form keys keep all their values.
func bindFields(c *gin.Context) (map[string]any, error) {
	fields := map[string]any{}
	if c.ContentType() == binding.MIMEJSON {
		if c.Request.ContentLength == 0 {
			return fields, nil
		}
		if err := c.ShouldBindJSON(&fields); err != nil {
			return nil, err
		}
		return fields, nil
	}

	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	for k, v := range c.Request.PostForm {
		if len(v) == 1 {
			fields[k] = v[0]
			continue
		}
		fields[k] = v
	}
	return fields, nil
}
