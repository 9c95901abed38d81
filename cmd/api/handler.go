package api

import (
	"net/http"

	authDelivery "github.com/tgrozenski/agent-email/internal/auth/delivery"
	authUsecase "github.com/tgrozenski/agent-email/internal/auth/usecase"
	docDelivery "github.com/tgrozenski/agent-email/internal/document/delivery"
	docUsecase "github.com/tgrozenski/agent-email/internal/document/usecase"
	emailDelivery "github.com/tgrozenski/agent-email/internal/email/delivery"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase     authUsecase.AuthUsecase
	authHandler     *authDelivery.AuthHandler
	emailHandler    *emailDelivery.EmailHandler
	documentHandler *docDelivery.DocumentHandler
}

func NewHandler(
	authUc authUsecase.AuthUsecase,
	documentUc docUsecase.DocumentUsecase,
	retriever docDelivery.Retriever,
	processor emailDelivery.NotificationProcessor,
	renewer emailDelivery.WatchRenewer,
) *Handler {
	return &Handler{
		authUsecase:     authUc,
		authHandler:     authDelivery.NewAuthHandler(authUc),
		emailHandler:    emailDelivery.NewEmailHandler(processor, renewer),
		documentHandler: docDelivery.NewDocumentHandler(documentUc, retriever),
	}
}

// Router builds the gin engine with CORS and every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), corsMiddleware())

	SetupRoutes(r, h.authUsecase, h.authHandler, h.documentHandler, h.emailHandler)
	return r
}

// Server wraps the router in an http.Server so the caller can shut it down.
func (h *Handler) Server(addr string) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: h.Router(),
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
