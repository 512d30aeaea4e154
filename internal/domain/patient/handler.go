package patient

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/apperror"
	"github.com/clinicore/clinicore/internal/platform/blobstore"
	"github.com/clinicore/clinicore/pkg/pagination"
)

// profileImageField is the multipart field name the intake form uploads under.
const profileImageField = "profileImage"

type Handler struct {
	svc    *Service
	images blobstore.Store
}

func NewHandler(svc *Service, images blobstore.Store) *Handler {
	return &Handler{svc: svc, images: images}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/patients")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/search", h.Search)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

type dataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)

	patients, total, err := h.svc.List(c.Request().Context(), p.Limit, p.Offset())
	if err != nil {
		return err
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewListResponse(patients, len(patients), total, p))
}

func (h *Handler) Search(c echo.Context) error {
	p := pagination.FromContext(c)

	patients, total, err := h.svc.Search(c.Request().Context(), c.QueryParam("query"), p.Limit, p.Offset())
	if err != nil {
		return err
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewListResponse(patients, len(patients), total, p))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dataResponse{Success: true, Data: p})
}

func (h *Handler) Create(c echo.Context) error {
	in, err := h.bindCreate(c)
	if err != nil {
		return err
	}

	p, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		// The record was rejected; the uploaded image has no owner.
		if in.ProfileImage != "" {
			h.images.Remove(in.ProfileImage)
		}
		return err
	}
	return c.JSON(http.StatusCreated, dataResponse{Success: true, Data: p})
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	in, err := h.bindUpdate(c)
	if err != nil {
		return err
	}

	p, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		if in.ProfileImage != "" {
			h.images.Remove(in.ProfileImage)
		}
		return err
	}
	return c.JSON(http.StatusOK, dataResponse{Success: true, Data: p})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dataResponse{Success: true, Data: struct{}{}})
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperror.BadID(err)
	}
	return id, nil
}

type createBody struct {
	FirstName        string            `json:"firstName"`
	LastName         string            `json:"lastName"`
	DateOfBirth      string            `json:"dateOfBirth"`
	Gender           string            `json:"gender"`
	ContactNumber    string            `json:"contactNumber"`
	Email            string            `json:"email"`
	Address          *Address          `json:"address"`
	EmergencyContact *EmergencyContact `json:"emergencyContact"`
}

func (h *Handler) bindCreate(c echo.Context) (CreateInput, error) {
	if !isMultipart(c) {
		var body createBody
		if err := c.Bind(&body); err != nil {
			return CreateInput{}, apperror.New(http.StatusBadRequest, "Invalid request body")
		}
		return CreateInput{
			FirstName:        body.FirstName,
			LastName:         body.LastName,
			DateOfBirth:      body.DateOfBirth,
			Gender:           body.Gender,
			ContactNumber:    body.ContactNumber,
			Email:            body.Email,
			Address:          body.Address,
			EmergencyContact: body.EmergencyContact,
		}, nil
	}

	in := CreateInput{
		FirstName:     c.FormValue("firstName"),
		LastName:      c.FormValue("lastName"),
		DateOfBirth:   c.FormValue("dateOfBirth"),
		Gender:        c.FormValue("gender"),
		ContactNumber: c.FormValue("contactNumber"),
		Email:         c.FormValue("email"),
	}
	in.Address = parseAddressForm(c.FormValue("address"))
	in.EmergencyContact = parseContactForm(c.FormValue("emergencyContact"))

	path, err := h.saveImage(c)
	if err != nil {
		return CreateInput{}, err
	}
	in.ProfileImage = path
	return in, nil
}

type updateBody struct {
	FirstName        *string           `json:"firstName"`
	LastName         *string           `json:"lastName"`
	DateOfBirth      *string           `json:"dateOfBirth"`
	Gender           *string           `json:"gender"`
	ContactNumber    *string           `json:"contactNumber"`
	Email            *string           `json:"email"`
	Address          *Address          `json:"address"`
	EmergencyContact *EmergencyContact `json:"emergencyContact"`
}

func (h *Handler) bindUpdate(c echo.Context) (UpdateInput, error) {
	if !isMultipart(c) {
		var body updateBody
		if err := c.Bind(&body); err != nil {
			return UpdateInput{}, apperror.New(http.StatusBadRequest, "Invalid request body")
		}
		return UpdateInput{
			FirstName:        body.FirstName,
			LastName:         body.LastName,
			DateOfBirth:      body.DateOfBirth,
			Gender:           body.Gender,
			ContactNumber:    body.ContactNumber,
			Email:            body.Email,
			Address:          body.Address,
			EmergencyContact: body.EmergencyContact,
		}, nil
	}

	var in UpdateInput
	in.FirstName = formLookup(c, "firstName")
	in.LastName = formLookup(c, "lastName")
	in.DateOfBirth = formLookup(c, "dateOfBirth")
	in.Gender = formLookup(c, "gender")
	in.ContactNumber = formLookup(c, "contactNumber")
	in.Email = formLookup(c, "email")
	if raw := formLookup(c, "address"); raw != nil {
		in.Address = parseAddressForm(*raw)
	}
	if raw := formLookup(c, "emergencyContact"); raw != nil {
		in.EmergencyContact = parseContactForm(*raw)
	}

	path, err := h.saveImage(c)
	if err != nil {
		return UpdateInput{}, err
	}
	in.ProfileImage = path
	return in, nil
}

// saveImage stores the uploaded profile image, if any, and returns its public
// path. A form without the file field is not an error.
func (h *Handler) saveImage(c echo.Context) (string, error) {
	fh, err := c.FormFile(profileImageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", apperror.New(http.StatusBadRequest, "Invalid profile image upload")
	}

	path, err := h.images.Save(fh)
	if err != nil {
		switch {
		case errors.Is(err, blobstore.ErrFileTooLarge):
			return "", apperror.New(http.StatusBadRequest, "Profile image exceeds the maximum allowed size")
		case errors.Is(err, blobstore.ErrInvalidContentType):
			return "", apperror.New(http.StatusBadRequest, "Profile image must be an image file")
		default:
			return "", err
		}
	}
	return path, nil
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// formLookup distinguishes an absent field from one submitted empty so that
// partial updates only touch what the form sent.
func formLookup(c echo.Context, key string) *string {
	form, err := c.MultipartForm()
	if err != nil {
		return nil
	}
	vals, ok := form.Value[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	return &vals[0]
}

// Nested documents ride inside the multipart form as JSON strings. A string
// that fails to decode is dropped rather than failing the whole request.
func parseAddressForm(raw string) *Address {
	if raw == "" {
		return nil
	}
	var a Address
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil
	}
	return &a
}

func parseContactForm(raw string) *EmergencyContact {
	if raw == "" {
		return nil
	}
	var ec EmergencyContact
	if err := json.Unmarshal([]byte(raw), &ec); err != nil {
		return nil
	}
	return &ec
}
