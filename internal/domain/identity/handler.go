package identity

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/apperror"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/pkg/pagination"
)

type Handler struct {
	svc    *Service
	tokens *auth.TokenService
	cookie auth.SessionCookie
}

func NewHandler(svc *Service, tokens *auth.TokenService, cookie auth.SessionCookie) *Handler {
	return &Handler{svc: svc, tokens: tokens, cookie: cookie}
}

// RegisterRoutes mounts the account endpoints under /auth. requireSession is
// the session middleware built in main; it is passed in so the handler does
// not construct its own token verification.
func (h *Handler) RegisterRoutes(api *echo.Group, requireSession echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout, requireSession)
	g.GET("/me", h.Me, requireSession)
	g.GET("/users", h.ListUsers, requireSession, auth.RequireRole(auth.Roles(RoleAdmin)))
}

type dataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return apperror.New(http.StatusBadRequest, "Invalid request body")
	}

	u, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}

	token, err := h.tokens.Issue(u.ID.String())
	if err != nil {
		return err
	}
	h.cookie.Attach(c, token)

	return c.JSON(http.StatusCreated, dataResponse{Success: true, Data: u.Public()})
}

func (h *Handler) Login(c echo.Context) error {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&in); err != nil {
		return apperror.New(http.StatusBadRequest, "Invalid request body")
	}

	u, err := h.svc.Authenticate(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		return err
	}

	token, err := h.tokens.Issue(u.ID.String())
	if err != nil {
		return err
	}
	h.cookie.Attach(c, token)

	return c.JSON(http.StatusOK, dataResponse{Success: true, Data: u.Public()})
}

func (h *Handler) Logout(c echo.Context) error {
	h.cookie.Clear(c)
	return c.JSON(http.StatusOK, messageResponse{Success: true, Message: "Logged out successfully"})
}

// Me returns the account behind the session, read fresh from the store. The
// session middleware lets a token for a deleted account through with no
// identity; that case, and an account deleted mid-request, surface as 404.
func (h *Handler) Me(c echo.Context) error {
	identity := auth.CurrentUser(c.Request().Context())
	if identity == nil {
		return apperror.New(http.StatusNotFound, "User not found")
	}

	u, err := h.svc.GetByID(c.Request().Context(), uuidFromString(identity.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.New(http.StatusNotFound, "User not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, dataResponse{Success: true, Data: u.Public()})
}

func (h *Handler) ListUsers(c echo.Context) error {
	p := pagination.FromContext(c)

	users, total, err := h.svc.List(c.Request().Context(), p.Limit, p.Offset())
	if err != nil {
		return err
	}

	publics := make([]Public, 0, len(users))
	for _, u := range users {
		publics = append(publics, u.Public())
	}
	return c.JSON(http.StatusOK, pagination.NewListResponse(publics, len(publics), total, p))
}

// uuidFromString parses an id already validated by the session middleware.
func uuidFromString(s string) uuid.UUID {
	id, _ := uuid.Parse(s)
	return id
}
