package patient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/apperror"
	"github.com/clinicore/clinicore/internal/platform/blobstore"
)

// mrnRetries bounds retrying MRN generation when the random suffix collides
// with an existing record.
const mrnRetries = 3

// dateFormats are the accepted dateOfBirth encodings, tried in order.
var dateFormats = []string{"2006-01-02", time.RFC3339}

type Service struct {
	repo   Repository
	images blobstore.Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, images blobstore.Store, logger zerolog.Logger) *Service {
	return &Service{repo: repo, images: images, logger: logger, now: time.Now}
}

// CreateInput carries the intake form fields. DateOfBirth arrives as a string
// because the form encodes everything as text.
type CreateInput struct {
	FirstName        string
	LastName         string
	DateOfBirth      string
	Gender           string
	ContactNumber    string
	Email            string
	Address          *Address
	EmergencyContact *EmergencyContact
	ProfileImage     string
}

// UpdateInput is a partial patch; nil scalar fields are left unchanged.
type UpdateInput struct {
	FirstName        *string
	LastName         *string
	DateOfBirth      *string
	Gender           *string
	ContactNumber    *string
	Email            *string
	Address          *Address
	EmergencyContact *EmergencyContact
	ProfileImage     string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Patient, error) {
	var msgs []string
	if in.FirstName == "" {
		msgs = append(msgs, "First name is required")
	}
	if in.LastName == "" {
		msgs = append(msgs, "Last name is required")
	}
	dob, dobErr := parseDate(in.DateOfBirth)
	if in.DateOfBirth == "" {
		msgs = append(msgs, "Date of birth is required")
	} else if dobErr != nil {
		msgs = append(msgs, "Date of birth must be a valid date")
	}
	if in.Gender != "" && !allowedGenders[in.Gender] {
		msgs = append(msgs, fmt.Sprintf("%s is not a valid gender", in.Gender))
	}
	if in.Email != "" && !emailValid(in.Email) {
		msgs = append(msgs, "Please add a valid email")
	}
	if len(msgs) > 0 {
		return nil, apperror.Validation(msgs...)
	}

	now := s.now()
	p := &Patient{
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		DateOfBirth:      dob,
		Gender:           in.Gender,
		ContactNumber:    in.ContactNumber,
		Email:            in.Email,
		Address:          in.Address,
		ProfileImage:     in.ProfileImage,
		EmergencyContact: in.EmergencyContact,
		RegistrationDate: now,
		LastUpdated:      now,
	}

	for attempt := 0; ; attempt++ {
		p.MedicalRecordNumber = NewMRN()
		err := s.repo.Create(ctx, p)
		if err == nil {
			return p, nil
		}
		if isUniqueViolation(err) && attempt < mrnRetries {
			s.logger.Debug().Str("mrn", p.MedicalRecordNumber).Msg("mrn collision, regenerating")
			continue
		}
		return nil, err
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.New(http.StatusNotFound, "Patient not found")
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Patient, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var msgs []string
	if in.FirstName != nil {
		if *in.FirstName == "" {
			msgs = append(msgs, "First name is required")
		} else {
			p.FirstName = *in.FirstName
		}
	}
	if in.LastName != nil {
		if *in.LastName == "" {
			msgs = append(msgs, "Last name is required")
		} else {
			p.LastName = *in.LastName
		}
	}
	if in.DateOfBirth != nil {
		dob, err := parseDate(*in.DateOfBirth)
		if err != nil {
			msgs = append(msgs, "Date of birth must be a valid date")
		} else {
			p.DateOfBirth = dob
		}
	}
	if in.Gender != nil {
		if !allowedGenders[*in.Gender] {
			msgs = append(msgs, fmt.Sprintf("%s is not a valid gender", *in.Gender))
		} else {
			p.Gender = *in.Gender
		}
	}
	if in.ContactNumber != nil {
		p.ContactNumber = *in.ContactNumber
	}
	if in.Email != nil {
		if *in.Email != "" && !emailValid(*in.Email) {
			msgs = append(msgs, "Please add a valid email")
		} else {
			p.Email = *in.Email
		}
	}
	if len(msgs) > 0 {
		return nil, apperror.Validation(msgs...)
	}

	if in.Address != nil {
		p.Address = in.Address
	}
	if in.EmergencyContact != nil {
		p.EmergencyContact = in.EmergencyContact
	}
	if in.ProfileImage != "" {
		if p.ProfileImage != "" && p.ProfileImage != in.ProfileImage {
			s.removeImage(p.ProfileImage)
		}
		p.ProfileImage = in.ProfileImage
	}

	p.LastUpdated = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.New(http.StatusNotFound, "Patient not found")
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.New(http.StatusNotFound, "Patient not found")
		}
		return err
	}

	if p.ProfileImage != "" {
		s.removeImage(p.ProfileImage)
	}
	return nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	if query == "" {
		return nil, 0, apperror.New(http.StatusBadRequest, "Please provide a search query")
	}
	return s.repo.Search(ctx, query, limit, offset)
}

// removeImage is best effort; a record without its image file is still valid.
func (s *Service) removeImage(publicPath string) {
	if err := s.images.Remove(publicPath); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		s.logger.Warn().Err(err).Str("path", publicPath).Msg("failed to remove profile image")
	}
}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateFormats {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
