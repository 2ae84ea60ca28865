package crm

import (
	"context"
	"html"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nordveil/site-api/internal/models"
)

const timeoutDuration = 10 * time.Second

type leadPusher interface {
	Push(ctx context.Context, lead models.Lead) error
}

// Handler exposes the add-contact endpoint in two shapes: GET with query
// parameters (opened from email links, answers with an HTML page) and POST
// with a JSON body. Both run through the same validation and dispatch path.
type Handler struct {
	crm leadPusher
	log *zap.Logger
}

func NewHandler(crm leadPusher, log *zap.Logger) *Handler {
	return &Handler{crm: crm, log: log.With(zap.String("component", "CRMHandler"))}
}

// AddContact
// @Summary Create a CRM lead
// @Description Maps the request to a lead payload and forwards it to the CRM webhook.
// @Tags crm
// @Accept json
// @Param firstName query string false "First name (GET variant)"
// @Param email query string false "Email (GET variant)"
// @Success 200
// @Failure 400
// @Failure 429
// @Failure 500
// @Router /crm/add-contact [post]
func (h *Handler) AddContact(c *gin.Context) {
	wantsHTML := c.Request.Method == http.MethodGet

	var lead models.Lead
	var err error
	if wantsHTML {
		err = c.ShouldBindQuery(&lead)
	} else {
		err = c.ShouldBindJSON(&lead)
	}
	if err != nil {
		h.log.Info("failed to bind lead", zap.Error(err))
		h.respond(c, wantsHTML, http.StatusBadRequest,
			"Something is missing", "The contact details are incomplete or invalid.")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	if err := h.crm.Push(ctx, lead); err != nil {
		h.log.Error("failed to push lead", zap.Error(err))
		h.respond(c, wantsHTML, http.StatusInternalServerError,
			"Something went wrong", "We could not save the contact right now. Please try again later.")
		return
	}

	h.respond(c, wantsHTML, http.StatusOK,
		"Contact saved", "The contact was added to our pipeline. You can close this page.")
}

func (h *Handler) respond(c *gin.Context, wantsHTML bool, status int, title, message string) {
	if wantsHTML {
		page := []byte(renderPage(title, message))
		c.Data(status, "text/html; charset=utf-8", page)
		return
	}
	if status == http.StatusOK {
		c.JSON(status, gin.H{"success": true, "message": message})
		return
	}
	c.JSON(status, gin.H{"error": message})
}

func renderPage(title, message string) string {
	return "<html>\n<body>\n    <h2>" + html.EscapeString(title) +
		"</h2>\n    <p>" + html.EscapeString(message) + "</p>\n</body>\n</html>"
}
