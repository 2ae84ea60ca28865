package contact

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nordveil/site-api/internal/models"
	contactsvc "github.com/nordveil/site-api/internal/services/contact"
)

const timeoutDuration = 10 * time.Second

type submitter interface {
	Submit(ctx context.Context, sub models.ContactSubmission, clientIP string) (contactsvc.Result, error)
}

type Handler struct {
	Service submitter
	log     *zap.Logger
}

func NewHandler(svc submitter, log *zap.Logger) *Handler {
	return &Handler{Service: svc, log: log.With(zap.String("component", "ContactHandler"))}
}

// Submit
// @Summary Submit the contact form
// @Description Validates the submission, verifies the bot challenge and dispatches the notification emails.
// @Tags contact
// @Accept json
// @Param submission body models.ContactSubmission true "Contact submission"
// @Success 200
// @Failure 400
// @Failure 429
// @Failure 500
// @Router /contact [post]
func (h *Handler) Submit(c *gin.Context) {
	var sub models.ContactSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		h.log.Info("failed to bind contact submission", zap.Error(err))
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": details})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	result, err := h.Service.Submit(ctx, sub, c.ClientIP())
	if err != nil {
		if errors.Is(err, contactsvc.ErrChallengeFailed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Bot challenge verification failed"})
			return
		}
		h.log.Error("contact submission failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	message := "Thanks for reaching out! We will be in touch shortly."
	if result.NewsletterNote != "" {
		message += " " + result.NewsletterNote
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}
