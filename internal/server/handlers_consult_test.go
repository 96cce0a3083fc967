package server

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestHealthOK(t *testing.T) {
	app := newTestApp(t, newTestConfig(), &fakeModel{})
	rec := performRequest(t, app.router, http.MethodGet, "/health", "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	body := decodeJSONMap(t, rec)
	if body["status"] != "ok" {
		t.Fatalf("expected status=ok, got %v", body["status"])
	}
	if body["service"] != "medassist-api" {
		t.Fatalf("expected service=medassist-api, got %v", body["service"])
	}
	if body["sessions"] != float64(0) {
		t.Fatalf("expected no sessions, got %v", body["sessions"])
	}
}

func TestChatAsksFollowUpQuestion(t *testing.T) {
	model := &fakeModel{answers: []string{`{"question": "How long have you had a fever?", "diagnosis": null, "home_remedy": null}`}}
	app := newTestApp(t, newTestConfig(), model)

	rec := performMultipart(t, app.router, "/api/chat", map[string]string{"message": "I have a fever"}, nil, map[string]string{sessionHeader: "sess-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(sessionHeader); got != "sess-1" {
		t.Fatalf("expected session header echoed, got %q", got)
	}

	body := decodeJSONMap(t, rec)
	if body["question"] != "How long have you had a fever?" {
		t.Fatalf("unexpected question %v", body["question"])
	}
	for _, key := range []string{"diagnosis", "home_remedy", "diet_plan"} {
		value, ok := body[key]
		if !ok || value != nil {
			t.Fatalf("expected %s to be present and null, got %v (present=%v)", key, value, ok)
		}
	}
	if _, ok := app.service.Store().Lookup("sess-1"); !ok {
		t.Fatalf("expected session to stay open")
	}
}

func TestChatGeneratesSessionHeader(t *testing.T) {
	app := newTestApp(t, newTestConfig(), &fakeModel{})
	rec := performMultipart(t, app.router, "/api/chat", map[string]string{"message": "hello"}, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(sessionHeader); len(got) != 36 {
		t.Fatalf("expected generated session id, got %q", got)
	}
}

func TestChatDiagnosisClosesSession(t *testing.T) {
	raw := "```json\n{\"question\": null, \"diagnosis\": {\"condition\": \"Influenza\", \"probability\": 0.75, \"recommendations\": [\"**Rest**\"]}, \"home_remedy\": \"Kadha\nTurmeric milk\"}\n```"
	app := newTestApp(t, newTestConfig(), &fakeModel{answers: []string{raw}})
	app.service.Store().GetOrCreate("sess-2")

	rec := performMultipart(t, app.router, "/api/chat", map[string]string{"message": "body ache, chills"}, nil, map[string]string{sessionHeader: "sess-2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeJSONMap(t, rec)
	if body["question"] != nil {
		t.Fatalf("expected null question, got %v", body["question"])
	}
	if body["home_remedy"] != "Kadha\nTurmeric milk" {
		t.Fatalf("unexpected home remedy %q", body["home_remedy"])
	}
	diagnosis, _ := body["diagnosis"].(map[string]any)
	if diagnosis["condition"] != "Influenza" {
		t.Fatalf("unexpected diagnosis %v", body["diagnosis"])
	}
	recommendations, _ := diagnosis["recommendations"].([]any)
	if len(recommendations) != 1 || recommendations[0] != "Rest" {
		t.Fatalf("expected sanitized recommendations, got %v", diagnosis["recommendations"])
	}
	if _, ok := app.service.Store().Lookup("sess-2"); ok {
		t.Fatalf("expected session to be closed")
	}
}

func TestChatGarbageModelOutputReturnsFallback(t *testing.T) {
	app := newTestApp(t, newTestConfig(), &fakeModel{answers: []string{"Sorry I cannot help"}})

	rec := performMultipart(t, app.router, "/api/chat", map[string]string{"message": "stomach pain"}, nil, map[string]string{sessionHeader: "sess-3"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeJSONMap(t, rec)
	if body["question"] != "Sorry, something went wrong while processing your input." {
		t.Fatalf("expected retry question, got %v", body["question"])
	}
	if _, ok := app.service.Store().Lookup("sess-3"); !ok {
		t.Fatalf("expected session to remain open after fallback")
	}
}

func TestChatRejectsEmptyInput(t *testing.T) {
	model := &fakeModel{}
	app := newTestApp(t, newTestConfig(), model)

	rec := performMultipart(t, app.router, "/api/chat", map[string]string{"message": "   "}, nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
	if detail := responseDetail(t, rec); detail != "No input message or file provided." {
		t.Fatalf("unexpected detail %q", detail)
	}
	if len(model.prompts) != 0 {
		t.Fatalf("model must not be queried")
	}
}

func TestChatCombinesDocumentAndMessage(t *testing.T) {
	model := &fakeModel{}
	app := newTestApp(t, newTestConfig(), model)

	rec := performMultipart(
		t,
		app.router,
		"/api/chat",
		map[string]string{"message": "what does this mean?"},
		&formFile{Filename: "labs.txt", Content: []byte("Hemoglobin 9.2 g/dL")},
		map[string]string{sessionHeader: "sess-4"},
	)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := model.lastPrompt(t); got != "Hemoglobin 9.2 g/dL\nwhat does this mean?" {
		t.Fatalf("unexpected model input %q", got)
	}
}

func TestChatUnreadableDocumentIsClientError(t *testing.T) {
	app := newTestApp(t, newTestConfig(), &fakeModel{})

	rec := performMultipart(t, app.router, "/api/chat", nil, &formFile{Filename: "scan.pdf", Content: []byte("definitely not a pdf")}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
	if detail := responseDetail(t, rec); !strings.HasPrefix(detail, "Error reading document") {
		t.Fatalf("unexpected detail %q", detail)
	}
}

func TestChatRejectsOversizedUpload(t *testing.T) {
	app := newTestApp(t, newTestConfig(), &fakeModel{})

	rec := performMultipart(t, app.router, "/api/chat", nil, &formFile{Filename: "big.txt", Content: bytes.Repeat([]byte("a"), 4096)}, nil)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestChatAcceptsJSONBody(t *testing.T) {
	model := &fakeModel{}
	app := newTestApp(t, newTestConfig(), model)

	rec := performRequest(t, app.router, http.MethodPost, "/api/chat", "", map[string]string{"message": "I have a rash"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := model.lastPrompt(t); got != "I have a rash" {
		t.Fatalf("unexpected model input %q", got)
	}
}

func TestChatModelFailureIsInternalError(t *testing.T) {
	app := newTestApp(t, newTestConfig(), &fakeModel{err: errors.New("gemini error (503): overloaded")})

	rec := performMultipart(t, app.router, "/api/chat", map[string]string{"message": "cough"}, nil, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d body=%s", rec.Code, rec.Body.String())
	}
	if detail := responseDetail(t, rec); detail != "Internal server error" {
		t.Fatalf("expected generic detail, got %q", detail)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	app := newTestApp(t, newTestConfig(), &fakeModel{panics: true})

	rec := performMultipart(t, app.router, "/api/chat", map[string]string{"message": "cough"}, nil, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d body=%s", rec.Code, rec.Body.String())
	}
	if detail := responseDetail(t, rec); detail != "Internal server error" {
		t.Fatalf("expected generic detail, got %q", detail)
	}
}

func TestDietRequiresCondition(t *testing.T) {
	model := &fakeModel{}
	app := newTestApp(t, newTestConfig(), model)

	rec := performMultipart(t, app.router, "/api/diet", map[string]string{"condition": " ", "message": "veg"}, nil, map[string]string{sessionHeader: "sess-5"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
	if detail := responseDetail(t, rec); detail != "A diagnosed condition is required." {
		t.Fatalf("unexpected detail %q", detail)
	}
	if app.service.Store().Len() != 0 || len(model.prompts) != 0 {
		t.Fatalf("blank condition must not touch sessions or the model")
	}
}

func TestDietPlanFromURLEncodedForm(t *testing.T) {
	model := &fakeModel{answers: []string{`{"question": null, "diet_plan": "Day 1: poha\nDay 2: upma"}`}}
	app := newTestApp(t, newTestConfig(), model)

	form := url.Values{"condition": {"Anemia"}, "message": {"7 days, vegetarian"}}
	req := httptest.NewRequest(http.MethodPost, "/api/diet", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(sessionHeader, "sess-6")
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeJSONMap(t, rec)
	if body["diet_plan"] != "Day 1: poha\nDay 2: upma" || body["question"] != nil {
		t.Fatalf("unexpected diet response %v", body)
	}
	if got := model.lastPrompt(t); got != "Diagnosed condition: Anemia\n7 days, vegetarian" {
		t.Fatalf("unexpected diet input %q", got)
	}
	if _, ok := app.service.Store().Lookup("sess-6"); ok {
		t.Fatalf("expected diet session to close after the plan")
	}
}
