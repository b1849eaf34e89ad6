package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mutqin/backend/core"
	"github.com/mutqin/backend/core/application"
	"github.com/mutqin/backend/core/offering"
	"github.com/mutqin/backend/core/session"
	appfs "github.com/mutqin/backend/fs"
	emailsvc "github.com/mutqin/backend/services/email"
	gatewaysvc "github.com/mutqin/backend/services/gateway"
	meetingsvc "github.com/mutqin/backend/services/meeting"
	inmemdb "github.com/mutqin/backend/storage/inmem"
	storedb "github.com/mutqin/backend/storage/store"
)

var testConf = &core.Config{
	TestMode:           true,
	AppName:            "Mutqin",
	SecretKey:          []byte("secret-for-tests"),
	JWTExpirationDelta: time.Hour,
	FrontendBaseURL:    "http://localhost:3000",
	MeetingBaseURL:     "https://meet.mutqin.app",
	DefaultFromEmail:   mail.Address{Name: "Mutqin", Address: "noreply@mutqin.app"},
}

func newTestServer(t *testing.T) Server {
	t.Helper()
	core.InitMailTemplates(appfs.FS, testConf)

	local := inmemdb.Open()
	store := core.NewStore(local, nil, nil)
	mailSvc := emailsvc.NewConsoleServiceMock(testConf)

	appSvc := application.NewService(storedb.NewApplicationRepository(store), mailSvc)
	offeringSvc := offering.NewService(storedb.NewOfferingRepository(store))
	sessionSvc := session.NewService(
		storedb.NewSessionRepository(store),
		storedb.NewPaymentRepository(store),
		storedb.NewOfferingRepository(store),
		gatewaysvc.NewSimulatedGateway(0, nil),
		meetingsvc.NewProvider(testConf),
		mailSvc,
	)

	return NewServer(&Options{
		DisableReqLogs: true,
		Conf:           testConf,
		Logger:         core.NopLogger{},
		AppSvc:         appSvc,
		ProfileSvc:     application.NewProfileService(storedb.NewProfileRepository(store)),
		OfferingSvc:    offeringSvc,
		SessionSvc:     sessionSvc,
		SyncStore:      local,
	})
}

func getToken(t *testing.T, uid, name string, learner, teacher, admin bool) string {
	t.Helper()
	claims := NewClaims(testConf, uid)
	claims.Name = name
	claims.Email = name + "@example.com"
	claims.IsLearner = learner
	claims.IsTeacher = teacher
	claims.IsAdmin = admin

	token, err := GenerateToken(testConf, claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func newAuthRequest(method, path, token string, data ...interface{}) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		_ = json.NewEncoder(&body).Encode(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode(): %v (body: %s)", err, rec.Body.String())
	}
}

var submitBody = map[string]interface{}{
	"teacher_name": "Ustadh Kareem",
	"email":        "kareem@example.com",
	"phone":        "+212600000000",
	"bio":          "Hafidh, 10 years of teaching.",
	"documents": map[string]string{
		"memorization_cert": "upload://cert.pdf",
		"personal_id":       "upload://id.pdf",
	},
}

// submits and approves an application for uid, returning the teacher's token
func approveTeacher(t *testing.T, app Server, uid string) string {
	t.Helper()
	teacherToken := getToken(t, uid, "kareem", false, true, false)
	adminToken := getToken(t, "admin", "amina", false, false, true)

	req, rec := newAuthRequest(http.MethodPost, "/v1/applications", teacherToken, submitBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("approveTeacher(): submit returned %d: %s", rec.Code, rec.Body.String())
	}
	var got application.Application
	decode(t, rec, &got)

	req, rec = newAuthRequest(http.MethodPost, "/v1/applications/"+got.ID+"/review", adminToken,
		map[string]interface{}{"action": "approve"})
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("approveTeacher(): review returned %d: %s", rec.Code, rec.Body.String())
	}
	return teacherToken
}

// proposes and approves an offering for the teacher, returning its id
func approveOffering(t *testing.T, app Server, teacherToken string, rate float64) string {
	t.Helper()
	adminToken := getToken(t, "admin", "amina", false, false, true)

	req, rec := newAuthRequest(http.MethodPost, "/v1/services", teacherToken,
		map[string]interface{}{"service_type": "tajweed_correction", "hourly_rate": rate})
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("approveOffering(): propose returned %d: %s", rec.Code, rec.Body.String())
	}
	var off offering.Offering
	decode(t, rec, &off)

	req, rec = newAuthRequest(http.MethodPost, "/v1/services/"+off.ID+"/review", adminToken,
		map[string]interface{}{"approve": true})
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("approveOffering(): review returned %d: %s", rec.Code, rec.Body.String())
	}
	return off.ID
}

func Test_home(t *testing.T) {
	app := newTestServer(t)

	req, rec := newAuthRequest(http.MethodGet, "/", "")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the Mutqin API!", rec.Body.String())
}

func Test_authRequired(t *testing.T) {
	app := newTestServer(t)

	for _, path := range []string{"/v1/applications", "/v1/services", "/v1/sessions", "/v1/payments"} {
		req, rec := newAuthRequest(http.MethodGet, path, "")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func Test_applicationApi(t *testing.T) {
	app := newTestServer(t)
	teacherToken := getToken(t, "t1", "kareem", false, true, false)
	adminToken := getToken(t, "admin", "amina", false, false, true)

	// the owner id comes from the token, not the body
	body := map[string]interface{}{}
	for k, v := range submitBody {
		body[k] = v
	}
	body["teacher_id"] = "someone-else"
	req, rec := newAuthRequest(http.MethodPost, "/v1/applications", teacherToken, body)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var got application.Application
	decode(t, rec, &got)
	assert.Equal(t, "t1", got.TeacherID)
	assert.Equal(t, application.StatusPending, got.Status)

	// learners cannot apply
	learnerToken := getToken(t, "l1", "aisha", true, false, false)
	req, rec = newAuthRequest(http.MethodPost, "/v1/applications", learnerToken, submitBody)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// teachers cannot review
	review := map[string]interface{}{"action": "approve"}
	req, rec = newAuthRequest(http.MethodPost, "/v1/applications/"+got.ID+"/review", teacherToken, review)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// admins can
	req, rec = newAuthRequest(http.MethodPost, "/v1/applications/"+got.ID+"/review", adminToken, review)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &got)
	assert.Equal(t, application.StatusApproved, got.Status)

	// a second decision conflicts
	req, rec = newAuthRequest(http.MethodPost, "/v1/applications/"+got.ID+"/review", adminToken, review)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// the teacher sees their own application only
	req, rec = newAuthRequest(http.MethodGet, "/v1/applications", teacherToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var apps []application.Application
	decode(t, rec, &apps)
	assert.Len(t, apps, 1)

	// another teacher cannot open it
	otherToken := getToken(t, "t2", "youssef", false, true, false)
	req, rec = newAuthRequest(http.MethodGet, "/v1/applications/"+got.ID, otherToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_applicationApi_validation(t *testing.T) {
	app := newTestServer(t)
	teacherToken := getToken(t, "t1", "kareem", false, true, false)

	// missing phone & email
	req, rec := newAuthRequest(http.MethodPost, "/v1/applications", teacherToken,
		map[string]interface{}{"teacher_name": "Ustadh Kareem"})
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_offeringApi(t *testing.T) {
	app := newTestServer(t)
	learnerToken := getToken(t, "l1", "aisha", true, false, false)

	// an unvetted teacher cannot list services
	pending := getToken(t, "t9", "newguy", false, true, false)
	req, rec := newAuthRequest(http.MethodPost, "/v1/services", pending,
		map[string]interface{}{"service_type": "tajweed_correction", "hourly_rate": 15})
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	teacherToken := approveTeacher(t, app, "t1")
	offID := approveOffering(t, app, teacherToken, 15)

	// learners browse the bookable catalog
	req, rec = newAuthRequest(http.MethodGet, "/v1/services", learnerToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var offs []offering.Offering
	decode(t, rec, &offs)
	if assert.Len(t, offs, 1) {
		assert.Equal(t, offID, offs[0].ID)
	}

	// a pending proposal is invisible to learners
	req, rec = newAuthRequest(http.MethodPost, "/v1/services", teacherToken,
		map[string]interface{}{"service_type": "memorization", "hourly_rate": 12})
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var pendingOff offering.Offering
	decode(t, rec, &pendingOff)

	req, rec = newAuthRequest(http.MethodGet, "/v1/services/"+pendingOff.ID, learnerToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// but the owner sees it
	req, rec = newAuthRequest(http.MethodGet, "/v1/services/"+pendingOff.ID, teacherToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_sessionApi(t *testing.T) {
	app := newTestServer(t)
	learnerToken := getToken(t, "l1", "aisha", true, false, false)
	teacherToken := approveTeacher(t, app, "t1")
	offID := approveOffering(t, app, teacherToken, 15)

	// teachers do not book
	bookBody := map[string]interface{}{
		"offering_id": offID,
		"date":        "2026-09-15",
		"time":        "18:30",
		"duration":    1.5,
	}
	req, rec := newAuthRequest(http.MethodPost, "/v1/sessions", teacherToken, bookBody)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, "/v1/sessions", learnerToken, bookBody)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var sess session.Session
	decode(t, rec, &sess)
	assert.Equal(t, "l1", sess.LearnerID)
	assert.Equal(t, 23.0, sess.TotalPrice)

	// a declined card reports 402 and keeps the session where it was
	checkoutPath := "/v1/sessions/" + sess.ID + "/checkout"
	declined := map[string]interface{}{
		"card_number": "4242 4242 4242 0000",
		"card_holder": "AISHA L",
		"expiry":      "09/28",
		"cvc":         "123",
	}
	req, rec = newAuthRequest(http.MethodPost, checkoutPath, learnerToken, declined)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	// a stranger cannot pay for it either
	otherLearner := getToken(t, "l2", "sara", true, false, false)
	good := map[string]interface{}{
		"card_number": "4242 4242 4242 4242",
		"card_holder": "AISHA L",
		"expiry":      "09/28",
		"cvc":         "123",
	}
	req, rec = newAuthRequest(http.MethodPost, checkoutPath, otherLearner, good)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, checkoutPath, learnerToken, good)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var checkout struct {
		Session session.Session `json:"session"`
		Payment session.Payment `json:"payment"`
	}
	decode(t, rec, &checkout)
	assert.Equal(t, session.StatusPaid, checkout.Session.Status)
	assert.NotEmpty(t, checkout.Session.MeetingLink)
	assert.Equal(t, session.PaymentCompleted, checkout.Payment.Status)

	// paying twice conflicts
	req, rec = newAuthRequest(http.MethodPost, checkoutPath, learnerToken, good)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// the teacher runs the session
	req, rec = newAuthRequest(http.MethodPost, "/v1/sessions/"+sess.ID+"/start", teacherToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	req, rec = newAuthRequest(http.MethodPost, "/v1/sessions/"+sess.ID+"/complete", teacherToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// completed is terminal
	req, rec = newAuthRequest(http.MethodPost, "/v1/sessions/"+sess.ID+"/cancel", learnerToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// both parties see the session; payments are scoped to the learner
	for _, token := range []string{learnerToken, teacherToken} {
		req, rec = newAuthRequest(http.MethodGet, "/v1/sessions", token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		var sessions []session.Session
		decode(t, rec, &sessions)
		assert.Len(t, sessions, 1)
	}
	req, rec = newAuthRequest(http.MethodGet, "/v1/payments", learnerToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var payments []session.Payment
	decode(t, rec, &payments)
	assert.Len(t, payments, 2) // the declined attempt stays on record
}

func Test_profileApi(t *testing.T) {
	app := newTestServer(t)
	teacherToken := getToken(t, "t1", "kareem", false, true, false)

	req, rec := newAuthRequest(http.MethodGet, "/v1/teachers/profile", teacherToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req, rec = newAuthRequest(http.MethodPut, "/v1/teachers/profile", teacherToken,
		map[string]interface{}{"display_name": "Ustadh Kareem", "languages": []string{"Arabic"}, "years_teaching": 10})
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/teachers/profile", teacherToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var profile application.ProfileSetup
	decode(t, rec, &profile)
	assert.Equal(t, "t1", profile.TeacherID)
	assert.Equal(t, "Ustadh Kareem", profile.DisplayName)
}

func Test_syncApi(t *testing.T) {
	app := newTestServer(t)
	adminToken := getToken(t, "admin", "amina", false, false, true)
	teacherToken := getToken(t, "t1", "kareem", false, true, false)

	// admin only
	req, rec := newAuthRequest(http.MethodGet, "/v1/sync/sessions", teacherToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// unknown collections don't exist
	req, rec = newAuthRequest(http.MethodGet, "/v1/sync/users", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// never-written collections don't either
	req, rec = newAuthRequest(http.MethodGet, "/v1/sync/sessions", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req, rec = newAuthRequest(http.MethodPut, "/v1/sync/sessions", adminToken,
		[]map[string]interface{}{{"id": "s1"}})
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/sync/sessions", adminToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"s1"`)
}
