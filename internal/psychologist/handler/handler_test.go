package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/models"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/service"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/store"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/validation"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/wizard"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/wizard/draft"
	id "github.com/MindFlow-Startup/MindFlow/pkg/domain"
	"github.com/MindFlow-Startup/MindFlow/pkg/testutil"
)

// =============================================================================
// Handler Test Suite
// =============================================================================
// Routes run against the real service and the in-memory store so status
// codes and bodies are asserted end to end.

type HandlerSuite struct {
	suite.Suite
	router http.Handler
	store  *store.InMemoryStore
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := validation.New()
	s.store = store.NewInMemory()

	svc, err := service.New(s.store, validator, service.WithLogger(logger))
	s.Require().NoError(err)
	controller, err := wizard.NewController(validator, svc, wizard.WithLogger(logger))
	s.Require().NoError(err)

	r := chi.NewRouter()
	New(svc, validator, controller, draft.NewInMemory(time.Hour), logger).Register(r)
	s.router = r
}

func validBody() map[string]any {
	return map[string]any{
		"crp":         "06/12345",
		"email":       "Ana.Souza@Example.com",
		"fullName":    "Ana  Souza",
		"birthDate":   "1990-05-20",
		"specialties": []string{"Psicologia Clínica"},
	}
}

func (s *HandlerSuite) register(body map[string]any) PsychologistResponse {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/psychologists", body))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return *testutil.UnmarshalResponse[PsychologistResponse](s.T(), rr)
}

func (s *HandlerSuite) TestRegister() {
	s.Run("valid body creates a normalized record", func() {
		got := s.register(validBody())
		s.NotEmpty(got.ID)
		s.Equal("ana.souza@example.com", got.Email)
		s.Equal("Ana Souza", got.FullName)
		s.Equal("1990-05-20", got.BirthDate)
		s.Equal([]string{"Psicologia Clínica"}, got.Specialties)
	})

	s.Run("portuguese aliases are accepted on /register", func() {
		body := map[string]any{
			"crp":            "06/54321",
			"email":          "joao@example.com",
			"nomeCompleto":   "João Lima",
			"dataNascimento": "1985-01-02",
			"especialidades": []string{"Neuropsicologia"},
		}
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/register", body))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		got := testutil.UnmarshalResponse[PsychologistResponse](s.T(), rr)
		s.Equal("João Lima", got.FullName)
	})

	s.Run("invalid fields are reported per field", func() {
		body := validBody()
		body["email"] = "not-an-email"
		body["birthDate"] = "2020-01-01"
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/psychologists", body))
		resp := testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
		s.Contains(resp.Fields, "email")
		s.Contains(resp.Fields, "birthDate")
	})

	s.Run("duplicate email conflicts", func() {
		body := validBody()
		body["email"] = "dup@example.com"
		s.register(body)
		body["email"] = "DUP@example.com"
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/psychologists", body))
		resp := testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
		s.Contains(resp.Fields, "email")
	})

	s.Run("specialties must be a list", func() {
		body := validBody()
		body["email"] = "list@example.com"
		body["specialties"] = "Clínica"
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/psychologists", body))
		resp := testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
		s.Equal("specialties must be a list of strings", resp.Fields["specialties"])
	})

	s.Run("malformed json", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/psychologists", "{"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *HandlerSuite) TestListAndGet() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/psychologists"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.JSONEq(`[]`, string(testutil.ReadBody(s.T(), rr)))

	first := s.register(validBody())
	second := validBody()
	second["email"] = "second@example.com"
	s.register(second)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/psychologists"))
	list := *testutil.UnmarshalResponse[[]PsychologistResponse](s.T(), rr)
	s.Require().Len(list, 2)
	s.Equal(first.ID, list[0].ID)

	s.Run("by id", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/psychologists/"+first.ID))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Equal(first.Email, testutil.UnmarshalResponse[PsychologistResponse](s.T(), rr).Email)
	})

	s.Run("unknown id", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/psychologists/"+id.NewPsychologistID().String()))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("malformed id", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/psychologists/nope"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *HandlerSuite) TestUpdate() {
	created := s.register(validBody())

	s.Run("partial update changes only the given fields", func() {
		body := map[string]any{"id": created.ID, "fullName": "Ana Maria Souza"}
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPut, "/psychologists", body))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		got := testutil.UnmarshalResponse[PsychologistResponse](s.T(), rr)
		s.Equal("Ana Maria Souza", got.FullName)
		s.Equal(created.Email, got.Email)
		s.Equal(created.CreatedAt, got.CreatedAt)
	})

	s.Run("missing id", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPut, "/psychologists", map[string]any{"fullName": "X"}))
		resp := testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
		s.Equal("id is required", resp.Message)
	})

	s.Run("no fields", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPut, "/psychologists", map[string]any{"id": created.ID}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("invalid field", func() {
		body := map[string]any{"id": created.ID, "email": "broken"}
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPut, "/psychologists", body))
		resp := testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
		s.Contains(resp.Fields, "email")
	})

	s.Run("unknown record", func() {
		body := map[string]any{"id": id.NewPsychologistID().String(), "fullName": "X"}
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPut, "/psychologists", body))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

func (s *HandlerSuite) TestDelete() {
	created := s.register(validBody())

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodDelete, "/psychologists", map[string]any{"id": created.ID}))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Equal("psychologist deleted", testutil.UnmarshalResponse[MessageResponse](s.T(), rr).Message)

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodDelete, "/psychologists", map[string]any{"id": created.ID}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodDelete, "/psychologists", map[string]any{}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *HandlerSuite) TestReferenceData() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/specialties"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	specialties := testutil.UnmarshalResponse[SpecialtiesResponse](s.T(), rr)
	s.False(specialties.Restricted)
	s.NotNil(specialties.Specialties)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/crp/regions"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	regions := testutil.UnmarshalResponse[RegionsResponse](s.T(), rr)
	s.NotEmpty(regions.Regions)
}

func (s *HandlerSuite) wizardCall(method, path string, body any) WizardResponse {
	var req *http.Request
	if body != nil {
		req = testutil.NewJSONRequest(s.T(), method, path, body)
	} else {
		req = testutil.NewRequest(s.T(), method, path)
	}
	rr := testutil.DoRequest(s.router, req)
	s.Require().Less(rr.Code, 300, rr.Body.String())
	return *testutil.UnmarshalResponse[WizardResponse](s.T(), rr)
}

func (s *HandlerSuite) TestWizardHappyPath() {
	state := s.wizardCall(http.MethodPost, "/wizard", nil)
	s.Equal(wizard.StepPersonal, state.Step)
	s.Equal(1, state.StepNumber)
	s.Len(state.Steps, 3)
	base := "/wizard/" + state.DraftID

	s.wizardCall(http.MethodPatch, base, map[string]any{
		"fullName":  "Ana Souza",
		"email":     "wizard@example.com",
		"birthDate": "1990-05-20",
	})
	state = s.wizardCall(http.MethodPost, base+"/advance", nil)
	s.Equal(wizard.StepProfessional, state.Step)

	s.wizardCall(http.MethodPatch, base, map[string]any{
		"crp":         "06/12345",
		"specialties": []string{"Psicologia Clínica"},
	})
	state = s.wizardCall(http.MethodPost, base+"/advance", nil)
	s.Equal(wizard.StepReview, state.Step)

	state = s.wizardCall(http.MethodPost, base+"/submit", nil)
	s.Equal(wizard.StepSubmitted, state.Step)
	s.NotEmpty(state.RecordID)

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/psychologists/"+state.RecordID))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, base+"/advance"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invalid_state")
}

func (s *HandlerSuite) TestWizardRejections() {
	state := s.wizardCall(http.MethodPost, "/wizard", nil)
	base := "/wizard/" + state.DraftID

	s.Run("advance with missing fields stays put and reports failures", func() {
		got := s.wizardCall(http.MethodPost, base+"/advance", nil)
		s.Equal(wizard.StepPersonal, got.Step)
		s.Contains(got.Failures, "fullName")
		s.Contains(got.Failures, "email")
		s.NotContains(got.Failures, "crp")
	})

	s.Run("failures persist across reads", func() {
		got := s.wizardCall(http.MethodGet, base, nil)
		s.NotEmpty(got.Failures)
	})

	s.Run("submit outside review is rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, base+"/submit"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invalid_state")
	})

	s.Run("reset clears the submission and keeps the draft id", func() {
		s.wizardCall(http.MethodPatch, base, map[string]any{"fullName": "Ana"})
		got := s.wizardCall(http.MethodPost, base+"/reset", nil)
		s.Equal(state.DraftID, got.DraftID)
		s.Equal(wizard.StepPersonal, got.Step)
		s.Empty(got.Submission.FullName)
		s.Empty(got.Failures)
	})

	s.Run("discard then load is not found", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, base))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, base))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("malformed draft id", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/wizard/xyz"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

// failingStore fails every read and write.
type failingStore struct{}

var errBackend = errors.New("connection refused")

func (failingStore) Create(context.Context, *models.Psychologist) error { return errBackend }
func (failingStore) List(context.Context) ([]*models.Psychologist, error) {
	return nil, errBackend
}
func (failingStore) FindByID(context.Context, id.PsychologistID) (*models.Psychologist, error) {
	return nil, errBackend
}
func (failingStore) Update(context.Context, *models.Psychologist) error { return errBackend }
func (failingStore) Delete(context.Context, id.PsychologistID) error    { return errBackend }

func TestStoreFailuresAreOpaque(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := validation.New()
	svc, err := service.New(failingStore{}, validator, service.WithLogger(logger))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	r := chi.NewRouter()
	New(svc, validator, nil, nil, logger).Register(r)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/psychologists"))
	resp := testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
	if resp.Message != "" {
		t.Fatalf("internal error leaked message %q", resp.Message)
	}

	rr = testutil.DoRequest(r, testutil.NewRequest(t, http.MethodPost, "/wizard"))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

// gatedRegistrar holds the first Create call until released.
type gatedRegistrar struct {
	next    wizard.Registrar
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedRegistrar) Create(ctx context.Context, sub models.Submission) (*models.Psychologist, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.next.Create(ctx, sub)
}

func (s *HandlerSuite) TestWizardOverlappingSubmitsKeepSubmittedState() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := validation.New()
	records := store.NewInMemory()
	svc, err := service.New(records, validator, service.WithLogger(logger))
	s.Require().NoError(err)

	gate := &gatedRegistrar{next: svc, entered: make(chan struct{}), release: make(chan struct{})}
	controller, err := wizard.NewController(validator, gate, wizard.WithLogger(logger))
	s.Require().NoError(err)
	r := chi.NewRouter()
	New(svc, validator, controller, draft.NewInMemory(time.Hour), logger).Register(r)
	s.router = r

	state := s.wizardCall(http.MethodPost, "/wizard", nil)
	base := "/wizard/" + state.DraftID
	s.wizardCall(http.MethodPatch, base, validBody())
	s.wizardCall(http.MethodPost, base+"/advance", nil)
	s.Require().Equal(wizard.StepReview, s.wizardCall(http.MethodPost, base+"/advance", nil).Step)

	first := make(chan *httptest.ResponseRecorder, 1)
	firstReq := testutil.NewRequest(s.T(), http.MethodPost, base+"/submit")
	go func() {
		first <- testutil.DoRequest(r, firstReq)
	}()
	<-gate.entered

	s.Run("overlapping submit is refused without touching the draft", func() {
		rr := testutil.DoRequest(r, testutil.NewRequest(s.T(), http.MethodPost, base+"/submit"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	close(gate.release)
	rr := <-first
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	submitted := testutil.UnmarshalResponse[WizardResponse](s.T(), rr)
	s.Equal(wizard.StepSubmitted, submitted.Step)

	s.Run("late submit after completion is an invalid state", func() {
		rr := testutil.DoRequest(r, testutil.NewRequest(s.T(), http.MethodPost, base+"/submit"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invalid_state")
	})

	final := s.wizardCall(http.MethodGet, base, nil)
	s.Equal(wizard.StepSubmitted, final.Step)
	s.Equal(submitted.RecordID, final.RecordID)
	s.Empty(final.Failures)

	list, err := records.List(context.Background())
	s.Require().NoError(err)
	s.Len(list, 1)
}
