package patient

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/apperror"
)

type fakeRepo struct {
	byID       map[uuid.UUID]*Patient
	order      []uuid.UUID
	createErrs []error
	failWith   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[uuid.UUID]*Patient{}}
}

func (r *fakeRepo) Create(ctx context.Context, p *Patient) error {
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if r.failWith != nil {
		return r.failWith
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	clone := *p
	r.byID[p.ID] = &clone
	r.order = append(r.order, p.ID)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	p, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *p
	return &clone, nil
}

func (r *fakeRepo) Update(ctx context.Context, p *Patient) error {
	if r.failWith != nil {
		return r.failWith
	}
	if _, ok := r.byID[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *p
	r.byID[p.ID] = &clone
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if r.failWith != nil {
		return r.failWith
	}
	if _, ok := r.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeRepo) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	if r.failWith != nil {
		return nil, 0, r.failWith
	}
	total := len(r.order)
	var page []*Patient
	for i := offset; i < total && len(page) < limit; i++ {
		page = append(page, r.byID[r.order[i]])
	}
	return page, total, nil
}

func (r *fakeRepo) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	if r.failWith != nil {
		return nil, 0, r.failWith
	}
	q := strings.ToLower(query)
	var matched []*Patient
	for _, id := range r.order {
		p := r.byID[id]
		haystack := strings.ToLower(p.FirstName + " " + p.LastName + " " + p.Email + " " + p.MedicalRecordNumber)
		if strings.Contains(haystack, q) {
			matched = append(matched, p)
		}
	}
	total := len(matched)
	var page []*Patient
	for i := offset; i < total && len(page) < limit; i++ {
		page = append(page, matched[i])
	}
	return page, total, nil
}

type fakeStore struct {
	saved   int
	removed []string
}

func (s *fakeStore) Save(fh *multipart.FileHeader) (string, error) {
	s.saved++
	return "/uploads/" + uuid.NewString() + ".png", nil
}

func (s *fakeStore) Remove(publicPath string) error {
	s.removed = append(s.removed, publicPath)
	return nil
}

func newTestService() (*Service, *fakeRepo, *fakeStore) {
	repo := newFakeRepo()
	store := &fakeStore{}
	return NewService(repo, store, zerolog.Nop()), repo, store
}

func validInput() CreateInput {
	return CreateInput{
		FirstName:     "John",
		LastName:      "Smith",
		DateOfBirth:   "1985-04-12",
		Gender:        "Male",
		ContactNumber: "555-0100",
		Email:         "john.smith@example.com",
	}
}

func asAppError(t *testing.T, err error) *apperror.Error {
	t.Helper()
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("error = %v, want *apperror.Error", err)
	}
	return appErr
}

func TestCreate_AssignsMRNAndTimestamps(t *testing.T) {
	svc, _, _ := newTestService()

	p, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if !strings.HasPrefix(p.MedicalRecordNumber, "MRN-") {
		t.Errorf("MedicalRecordNumber = %q, want MRN- prefix", p.MedicalRecordNumber)
	}
	if p.RegistrationDate.IsZero() || p.LastUpdated.IsZero() {
		t.Error("expected registration date and last updated to be set")
	}
	if got := p.DateOfBirth.Format("2006-01-02"); got != "1985-04-12" {
		t.Errorf("DateOfBirth = %s, want 1985-04-12", got)
	}
}

func TestCreate_ValidationMessageOrder(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), CreateInput{})
	appErr := asAppError(t, err)

	if appErr.Kind != apperror.KindValidation {
		t.Fatalf("kind = %v, want KindValidation", appErr.Kind)
	}
	want := []string{"First name is required", "Last name is required", "Date of birth is required"}
	if len(appErr.Fields) != len(want) {
		t.Fatalf("fields = %v, want %v", appErr.Fields, want)
	}
	for i, msg := range want {
		if appErr.Fields[i] != msg {
			t.Errorf("fields[%d] = %q, want %q", i, appErr.Fields[i], msg)
		}
	}
}

func TestCreate_RejectsBadGenderAndEmail(t *testing.T) {
	svc, _, _ := newTestService()

	in := validInput()
	in.Gender = "Robot"
	in.Email = "not-an-email"

	_, err := svc.Create(context.Background(), in)
	appErr := asAppError(t, err)

	want := []string{"Robot is not a valid gender", "Please add a valid email"}
	if len(appErr.Fields) != 2 || appErr.Fields[0] != want[0] || appErr.Fields[1] != want[1] {
		t.Errorf("fields = %v, want %v", appErr.Fields, want)
	}
}

func TestCreate_RejectsUnparsableDate(t *testing.T) {
	svc, _, _ := newTestService()

	in := validInput()
	in.DateOfBirth = "12/04/1985"

	_, err := svc.Create(context.Background(), in)
	appErr := asAppError(t, err)

	if len(appErr.Fields) != 1 || appErr.Fields[0] != "Date of birth must be a valid date" {
		t.Errorf("fields = %v, want date message", appErr.Fields)
	}
}

func TestCreate_AcceptsRFC3339Date(t *testing.T) {
	svc, _, _ := newTestService()

	in := validInput()
	in.DateOfBirth = "1985-04-12T00:00:00Z"

	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestCreate_RetriesMRNCollision(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.createErrs = []error{&pgconn.PgError{Code: "23505"}}

	p, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create after collision: %v", err)
	}
	if p.MedicalRecordNumber == "" {
		t.Error("expected a regenerated MRN")
	}
}

func TestGet_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Get(context.Background(), uuid.New())
	appErr := asAppError(t, err)

	if appErr.Status != http.StatusNotFound || appErr.Message != "Patient not found" {
		t.Errorf("got %d %q, want 404 Patient not found", appErr.Status, appErr.Message)
	}
}

func TestUpdate_PatchesOnlyProvidedFields(t *testing.T) {
	svc, _, _ := newTestService()

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	phone := "555-0199"
	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{ContactNumber: &phone})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.ContactNumber != phone {
		t.Errorf("ContactNumber = %q, want %q", updated.ContactNumber, phone)
	}
	if updated.FirstName != created.FirstName || updated.Email != created.Email {
		t.Error("untouched fields changed")
	}
	if updated.MedicalRecordNumber != created.MedicalRecordNumber {
		t.Error("MRN changed on update")
	}
	if !updated.LastUpdated.After(created.LastUpdated) && !updated.LastUpdated.Equal(created.LastUpdated) {
		t.Error("LastUpdated went backwards")
	}
}

func TestUpdate_RejectsClearingRequiredField(t *testing.T) {
	svc, _, _ := newTestService()

	created, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	empty := ""
	_, err = svc.Update(context.Background(), created.ID, UpdateInput{FirstName: &empty})
	appErr := asAppError(t, err)

	if appErr.Kind != apperror.KindValidation {
		t.Fatalf("kind = %v, want KindValidation", appErr.Kind)
	}
	if len(appErr.Fields) != 1 || appErr.Fields[0] != "First name is required" {
		t.Errorf("fields = %v", appErr.Fields)
	}
}

func TestUpdate_ReplacingImageRemovesOldFile(t *testing.T) {
	svc, _, store := newTestService()

	in := validInput()
	in.ProfileImage = "/uploads/old.png"
	created, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Update(context.Background(), created.ID, UpdateInput{ProfileImage: "/uploads/new.png"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(store.removed) != 1 || store.removed[0] != "/uploads/old.png" {
		t.Errorf("removed = %v, want the old image", store.removed)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	name := "Jane"
	_, err := svc.Update(context.Background(), uuid.New(), UpdateInput{FirstName: &name})
	appErr := asAppError(t, err)

	if appErr.Status != http.StatusNotFound || appErr.Message != "Patient not found" {
		t.Errorf("got %d %q, want 404 Patient not found", appErr.Status, appErr.Message)
	}
}

func TestDelete_RemovesRecordAndImage(t *testing.T) {
	svc, repo, store := newTestService()

	in := validInput()
	in.ProfileImage = "/uploads/face.png"
	created, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, ok := repo.byID[created.ID]; ok {
		t.Error("record still present after delete")
	}
	if len(store.removed) != 1 || store.removed[0] != "/uploads/face.png" {
		t.Errorf("removed = %v, want the profile image", store.removed)
	}
}

func TestDelete_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.Delete(context.Background(), uuid.New())
	appErr := asAppError(t, err)

	if appErr.Status != http.StatusNotFound || appErr.Message != "Patient not found" {
		t.Errorf("got %d %q, want 404 Patient not found", appErr.Status, appErr.Message)
	}
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	svc, _, _ := newTestService()

	_, _, err := svc.Search(context.Background(), "", 10, 0)
	appErr := asAppError(t, err)

	if appErr.Status != http.StatusBadRequest || appErr.Message != "Please provide a search query" {
		t.Errorf("got %d %q, want 400 Please provide a search query", appErr.Status, appErr.Message)
	}
}

func TestSearch_MatchesAcrossFields(t *testing.T) {
	svc, _, _ := newTestService()

	a := validInput()
	a.FirstName = "Alice"
	a.Email = "alice@example.com"
	if _, err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	b := validInput()
	b.FirstName = "Bob"
	b.Email = "bob@example.com"
	if _, err := svc.Create(context.Background(), b); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, total, err := svc.Search(context.Background(), "alice", 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].FirstName != "Alice" {
		t.Errorf("search returned %d/%d, want Alice only", len(got), total)
	}
}
