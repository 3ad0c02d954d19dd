package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/marshallshelly/patient-records/pkg/patient"
	"github.com/marshallshelly/patient-records/pkg/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listBody struct {
	Total    int              `json:"total"`
	Patients []map[string]any `json:"patients"`
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) listBody {
	t.Helper()
	var body listBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	rec := do(t, NewServer(patient.Initial()), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListPatients(t *testing.T) {
	rec := do(t, NewServer(patient.Initial()), http.MethodGet, "/patients", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeList(t, rec)
	assert.Equal(t, 4, body.Total)
	assert.Equal(t, "Arnab", body.Patients[1]["name"])
	assert.Equal(t, "Yes", body.Patients[1]["high_risk"])
	assert.Equal(t, 40.5, body.Patients[1]["bmi"])
}

func TestAddPatient(t *testing.T) {
	var saved []patient.Table
	s := NewServer(patient.Seed(), WithSaveHook(func(t patient.Table) { saved = append(saved, t) }))

	rec := do(t, s, http.MethodPost, "/patients", `{"name":" Zara ","age":40,"height_cm":"160","weight_kg":120,"condition":""}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeList(t, rec)
	require.Equal(t, 4, body.Total)
	zara := body.Patients[3]
	assert.Equal(t, float64(4), zara["patient_id"])
	assert.Equal(t, "Zara", zara["name"])
	assert.Equal(t, 46.9, zara["bmi"])
	assert.Equal(t, "Yes", zara["high_risk"])

	assert.Equal(t, 4, s.Table().Len())
	require.Len(t, saved, 1)
	assert.Equal(t, 4, saved[0].Len())
}

func TestAddPatient_Invalid(t *testing.T) {
	s := NewServer(patient.Seed())

	tests := []struct {
		name string
		body string
	}{
		{"blank name", `{"name":"   ","age":40}`},
		{"missing name", `{"age":40}`},
		{"height out of range", `{"name":"Tall","height_cm":400}`},
		{"malformed json", `{"name":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/patients", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Equal(t, 3, s.Table().Len())
}

func TestGetUpdateDeletePatient(t *testing.T) {
	s := NewServer(patient.Initial())

	rec := do(t, s, http.MethodGet, "/patients/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Lily"`)

	rec = do(t, s, http.MethodPut, "/patients/3", `{"name":"Lily","height_cm":168,"weight_kg":120}`)
	require.Equal(t, http.StatusOK, rec.Code)
	r, _ := s.Table().Row(3)
	assert.Equal(t, 42.5, r.BMI.Float)
	assert.True(t, r.HighRisk)

	rec = do(t, s, http.MethodDelete, "/patients/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 3, s.Table().Len())
	first, _ := s.Table().Row(1)
	assert.Equal(t, "Arnab", first.Name)

	for _, target := range []string{"/patients/99", "/patients/0", "/patients/x"} {
		rec = do(t, s, http.MethodDelete, target, "")
		assert.Contains(t, []int{http.StatusNotFound, http.StatusBadRequest}, rec.Code, target)
	}
	rec = do(t, s, http.MethodGet, "/patients/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePatient_KeepsStoredOutOfRangeAge(t *testing.T) {
	s := NewServer(patient.Initial())

	rec := do(t, s, http.MethodPut, "/patients/2", `{"name":"Arnab","age":156,"height_cm":149,"weight_kg":95,"condition":"High blood pressure"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPut, "/patients/2", `{"name":"Arnab","age":157,"height_cm":149,"weight_kg":95}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReplacePatients(t *testing.T) {
	s := NewServer(patient.Initial())

	rec := do(t, s, http.MethodPut, "/patients", `[
		{"name":"Lily","age":92,"height_cm":168,"weight_kg":68,"condition":"Lung infection"},
		{"name":"Arnab","age":156,"height_cm":"n/a","weight_kg":90,"condition":"High blood pressure"}
	]`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeList(t, rec)
	require.Equal(t, 2, body.Total)
	assert.Equal(t, float64(1), body.Patients[0]["patient_id"])
	assert.Equal(t, "Lily", body.Patients[0]["name"])
	assert.Nil(t, body.Patients[1]["bmi"])
	assert.Equal(t, "Yes", body.Patients[1]["high_risk"])
}

func TestSearchPatients(t *testing.T) {
	s := NewServer(patient.Initial())

	tests := []struct {
		mode  string
		q     string
		code  int
		total int
	}{
		{"Exact Name", "KAPIL", http.StatusOK, 2},
		{"Partial Name", "li", http.StatusOK, 1},
		{"Patient ID", "2", http.StatusOK, 1},
		{"Patient ID", "abc", http.StatusOK, 0},
		{"Exact Name", "", http.StatusOK, 0},
		{"partial", "a", http.StatusOK, 3},
		{"Regex", ".*", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.mode+"/"+tt.q, func(t *testing.T) {
			target := "/patients/search?" + url.Values{"mode": {tt.mode}, "q": {tt.q}}.Encode()
			rec := do(t, s, http.MethodGet, target, "")
			require.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				body := decodeList(t, rec)
				assert.Equal(t, tt.total, body.Total)
				assert.NotNil(t, body.Patients)
			}
		})
	}
}

func TestResetAndSummary(t *testing.T) {
	s := NewServer(patient.FromPatients(nil))

	rec := do(t, s, http.MethodGet, "/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_patients":0,"high_risk_patients":0,"average_bmi":null}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/patients/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, s.Table().Equal(patient.Initial()))

	rec = do(t, s, http.MethodGet, "/summary", "")
	assert.JSONEq(t, `{"total_patients":4,"high_risk_patients":1,"average_bmi":21}`, rec.Body.String())
}

func TestExports(t *testing.T) {
	s := NewServer(patient.Initial())

	rec := do(t, s, http.MethodGet, "/export/patients.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Patient_ID,Name,Age,Height_cm,Weight_kg,Condition,BMI,High_risk\n"))

	rec = do(t, s, http.MethodGet, "/export/patients.xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mimeXLSX, rec.Header().Get(echo.HeaderContentType))

	got, err := tabular.ReadXLSX(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.True(t, got.Equal(patient.Initial()))
}

func TestSaveHook_PersistsChangesInOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		saved []patient.Table
	)
	first := true
	s := NewServer(patient.Seed(), WithSaveHook(func(tbl patient.Table) {
		mu.Lock()
		slow := first
		first = false
		mu.Unlock()
		if slow {
			time.Sleep(100 * time.Millisecond)
		}
		mu.Lock()
		saved = append(saved, tbl)
		mu.Unlock()
	}))

	var wg sync.WaitGroup
	for _, name := range []string{"Zara", "Omar"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := do(t, s, http.MethodPost, "/patients", `{"name":"`+name+`"}`)
			assert.Equal(t, http.StatusCreated, rec.Code)
		}()
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	require.Len(t, saved, 2)
	assert.Equal(t, 4, saved[0].Len())
	assert.Equal(t, 5, saved[1].Len())
	assert.True(t, saved[1].Equal(s.Table()), "last saved table is the current one")
}

func TestUpdatePatient_ValidatesAgainstCurrentRow(t *testing.T) {
	s := NewServer(patient.Initial())

	rec := do(t, s, http.MethodDelete, "/patients/1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Arnab is now patient 1 and keeps his stored age.
	rec = do(t, s, http.MethodPut, "/patients/1", `{"name":"Arnab","age":156,"height_cm":149,"weight_kg":95}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Lily moved to 2; giving her age 156 is a change and out of range.
	rec = do(t, s, http.MethodPut, "/patients/2", `{"name":"Lily","age":156,"height_cm":168,"weight_kg":68}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	r, _ := s.Table().Row(2)
	assert.Equal(t, 92.0, r.Age.Float)
}

func TestAddPatient_FractionalAge(t *testing.T) {
	s := NewServer(patient.Seed())

	rec := do(t, s, http.MethodPost, "/patients", `{"name":"Zara","age":40.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 3, s.Table().Len())
}

func TestSearchPatients_DefaultMode(t *testing.T) {
	s := NewServer(patient.Initial())

	rec := do(t, s, http.MethodGet, "/patients/search?q=kapil", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeList(t, rec).Total)
}
