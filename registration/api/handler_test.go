package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Ftotnem/HACKATHON-SERVICES/registration/codegen"
	"github.com/Ftotnem/HACKATHON-SERVICES/registration/service"
	"github.com/Ftotnem/HACKATHON-SERVICES/registration/store"
	sharedapi "github.com/Ftotnem/HACKATHON-SERVICES/shared/api"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/logger"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/models"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

const testSecret = "handler-test-secret"

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	log := logger.NewNop()
	db := store.NewMemoryStore()
	stores := service.Stores{Registrations: db, Teams: db, Members: db}

	regs := service.NewRegistrationService(stores, service.NopPublisher{}, log)
	teams := service.NewTeamService(stores, codegen.NewGenerator(6, codegen.NewLocalReserver()),
		session.ContextProvider{}, service.NopPublisher{}, log, service.TeamOptions{})
	auth := session.NewAuthenticator(testSecret, nil, log)

	srv := sharedapi.NewBaseServer(":0", log)
	NewRegistrationAPIHandlers(regs, teams, auth.Middleware, log, time.Second).RegisterRoutes(srv.Router)
	return srv.Router
}

func signToken(t *testing.T, email string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

// do sends a request as email; an empty email sends no token.
func do(t *testing.T, router http.Handler, method, path, email string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if email != "" {
		req.Header.Set("Authorization", "Bearer "+signToken(t, email))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func validProfile(gender string) RegistrationRequest {
	return RegistrationRequest{
		FullName:    "Asha Nair",
		Gender:      gender,
		PhoneNumber: "9876543210",
		Department:  string(models.DepartmentECE),
		Batch:       string(models.BatchS3),
		YearOfStudy: string(models.YearSecond),
	}
}

func registerVia(t *testing.T, router http.Handler, email, gender string) {
	t.Helper()
	if rec := do(t, router, http.MethodPost, "/registrations", email, validProfile(gender)); rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	router := newTestRouter(t)
	for _, path := range []string{"/me/status", "/me/team"} {
		if rec := do(t, router, http.MethodGet, path, "", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token = %d, want 401", path, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/me/status", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /me/status with bad token = %d, want 401", rec.Code)
	}
}

func TestOptionsAndHealth(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/options", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /options = %d", rec.Code)
	}
	var opts OptionsResponse
	decode(t, rec, &opts)
	if len(opts.Departments) != 5 || len(opts.Batches) != 4 || opts.TeamMaxMembers != 6 {
		t.Errorf("unexpected options %+v", opts)
	}

	if rec := do(t, router, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d", rec.Code)
	}
}

func TestRegistrationFlow(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/me/status", "asha@college.edu", nil)
	var st service.Status
	decode(t, rec, &st)
	if st.Next != service.NextRegister {
		t.Fatalf("status before registering = %+v", st)
	}

	rec = do(t, router, http.MethodPost, "/registrations", "asha@college.edu", validProfile("female"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /registrations = %d %s", rec.Code, rec.Body.String())
	}
	var reg RegistrationResponse
	decode(t, rec, &reg)
	if reg.Outcome != service.OutcomeRegistered || reg.Next != service.NextTeamFormation {
		t.Errorf("unexpected response %+v", reg)
	}

	rec = do(t, router, http.MethodPost, "/registrations", "asha@college.edu", validProfile("female"))
	decode(t, rec, &reg)
	if rec.Code != http.StatusOK || reg.Outcome != service.OutcomeAlreadyRegistered {
		t.Errorf("second POST = %d %+v, want 200 already_registered", rec.Code, reg)
	}
}

func TestRegistrationErrors(t *testing.T) {
	router := newTestRouter(t)

	bad := validProfile("female")
	bad.PhoneNumber = "123"
	rec := do(t, router, http.MethodPost, "/registrations", "asha@college.edu", bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid phone = %d, want 400", rec.Code)
	}
	var errResp sharedapi.JSONErrorResponse
	decode(t, rec, &errResp)
	if errResp.Reason != "invalid phone" || len(errResp.Fields) != 1 || errResp.Fields[0] != "phone_number" {
		t.Errorf("unexpected error body %+v", errResp)
	}

	other := validProfile("female")
	other.Email = "someone@else.edu"
	if rec := do(t, router, http.MethodPost, "/registrations", "asha@college.edu", other); rec.Code != http.StatusForbidden {
		t.Errorf("mismatched email = %d, want 403", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/registrations", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+signToken(t, "asha@college.edu"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", rr.Code)
	}
}

func TestTeamFlow(t *testing.T) {
	router := newTestRouter(t)
	registerVia(t, router, "lead@x.io", "male")

	rec := do(t, router, http.MethodPost, "/teams", "lead@x.io", CreateTeamRequest{TeamName: "Null Pointers"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /teams = %d %s", rec.Code, rec.Body.String())
	}
	var team models.Team
	decode(t, rec, &team)
	if team.LeaderName != "Asha Nair" || len(team.TeamCode) != 6 {
		t.Errorf("unexpected team %+v", team)
	}

	registerVia(t, router, "mate@x.io", "female")
	rec = do(t, router, http.MethodPost, "/teams/join", "mate@x.io", JoinTeamRequest{TeamCode: team.TeamCode})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /teams/join = %d %s", rec.Code, rec.Body.String())
	}
	var joined JoinTeamResponse
	decode(t, rec, &joined)
	if joined.AlreadyMember || joined.Team.MemberCount != 2 {
		t.Errorf("unexpected join response %+v", joined)
	}

	rec = do(t, router, http.MethodGet, "/me/team", "mate@x.io", nil)
	var roster RosterResponse
	decode(t, rec, &roster)
	if !roster.HasTeam || len(roster.Members) != 2 || !roster.Members[0].IsLeader {
		t.Fatalf("unexpected roster %+v", roster)
	}
	if roster.Remaining != 4 || !roster.HasFemaleMember {
		t.Errorf("remaining = %d, has_female_member = %v", roster.Remaining, roster.HasFemaleMember)
	}
}

func TestTeamErrors(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/teams", "ghost@x.io", CreateTeamRequest{TeamName: "Ghosts"})
	var errResp sharedapi.JSONErrorResponse
	decode(t, rec, &errResp)
	if rec.Code != http.StatusForbidden || errResp.Next != service.NextRegister {
		t.Errorf("create unregistered = %d %+v, want 403 next=register", rec.Code, errResp)
	}

	registerVia(t, router, "lead@x.io", "male")
	if rec := do(t, router, http.MethodPost, "/teams", "lead@x.io", CreateTeamRequest{}); rec.Code != http.StatusBadRequest {
		t.Errorf("create without name = %d, want 400", rec.Code)
	}
	if rec := do(t, router, http.MethodPost, "/teams/join", "lead@x.io", JoinTeamRequest{TeamCode: "NOPE42"}); rec.Code != http.StatusNotFound {
		t.Errorf("join unknown code = %d, want 404", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/me/team", "lead@x.io", nil)
	var roster RosterResponse
	decode(t, rec, &roster)
	if rec.Code != http.StatusOK || roster.HasTeam {
		t.Errorf("roster without team = %d %+v", rec.Code, roster)
	}
}

func TestJoinFullTeam(t *testing.T) {
	router := newTestRouter(t)
	registerVia(t, router, "lead@x.io", "male")
	rec := do(t, router, http.MethodPost, "/teams", "lead@x.io", CreateTeamRequest{TeamName: "Six Pack"})
	var team models.Team
	decode(t, rec, &team)

	for _, email := range []string{"a@x.io", "b@x.io", "c@x.io", "d@x.io", "e@x.io"} {
		registerVia(t, router, email, "male")
		if rec := do(t, router, http.MethodPost, "/teams/join", email, JoinTeamRequest{TeamCode: team.TeamCode}); rec.Code != http.StatusOK {
			t.Fatalf("join %s = %d", email, rec.Code)
		}
	}

	registerVia(t, router, "late@x.io", "male")
	if rec := do(t, router, http.MethodPost, "/teams/join", "late@x.io", JoinTeamRequest{TeamCode: team.TeamCode}); rec.Code != http.StatusConflict {
		t.Errorf("join full team = %d, want 409", rec.Code)
	}
}

func TestPreflightSkipsAuth(t *testing.T) {
	router := newTestRouter(t)
	rec := do(t, router, http.MethodOptions, "/teams", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight = %d, headers %v", rec.Code, rec.Header())
	}
}
