package newsletter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nordveil/site-api/internal/models"
	newssvc "github.com/nordveil/site-api/internal/services/newsletter"
)

const timeoutDuration = 10 * time.Second

type subscriber interface {
	Subscribe(ctx context.Context, name, email, ip string, consent bool) error
	Confirm(ctx context.Context, signed string) (bool, error)
}

type challengeVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, string)
}

type Handler struct {
	Service  subscriber
	verifier challengeVerifier
	log      *zap.Logger
}

func NewHandler(svc subscriber, verifier challengeVerifier, log *zap.Logger) *Handler {
	return &Handler{
		Service:  svc,
		verifier: verifier,
		log:      log.With(zap.String("component", "NewsletterHandler")),
	}
}

// Subscribe
// @Summary Subscribe to the newsletter
// @Description Verifies the bot challenge and starts the double opt-in flow.
// @Tags newsletter
// @Accept json
// @Param signup body models.NewsletterSignup true "Signup request"
// @Success 200
// @Failure 400
// @Failure 429
// @Failure 500
// @Router /newsletter [post]
func (h *Handler) Subscribe(c *gin.Context) {
	var signup models.NewsletterSignup
	if err := c.ShouldBindJSON(&signup); err != nil {
		h.log.Info("failed to bind newsletter signup", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	if ok, _ := h.verifier.Verify(ctx, signup.TurnstileToken, c.ClientIP()); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bot challenge verification failed"})
		return
	}

	err := h.Service.Subscribe(ctx, signup.Name, signup.Email, c.ClientIP(), true)
	switch {
	case errors.Is(err, newssvc.ErrAlreadySubscribed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "This email is already subscribed"})
	case errors.Is(err, newssvc.ErrPendingConfirmation):
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "A confirmation email is already on its way. Please check your inbox.",
		})
	case err != nil:
		h.log.Error("newsletter subscribe failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	default:
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Almost there! Check your email to confirm your subscription.",
		})
	}
}

// Confirm
// @Summary Confirm a newsletter subscription
// @Description Verifies the emailed token and flips the subscriber to confirmed.
// @Tags newsletter
// @Param token query string true "Confirmation token"
// @Success 200
// @Failure 400
// @Failure 500
// @Router /newsletter/confirm [get]
func (h *Handler) Confirm(c *gin.Context) {
	signed := c.Query("token")
	if signed == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	ok, err := h.Service.Confirm(ctx, signed)
	if err != nil {
		h.log.Error("newsletter confirm failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired confirmation link"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Subscription confirmed. Welcome!"})
}
