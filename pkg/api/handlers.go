package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/marshallshelly/patient-records/pkg/patient"
	"github.com/marshallshelly/patient-records/pkg/tabular"
	"go.uber.org/zap"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// listResponse wraps a row set.
type listResponse struct {
	Total    int              `json:"total"`
	Patients []patient.Record `json:"patients"`
}

func newList(rows []patient.Record) listResponse {
	if rows == nil {
		rows = []patient.Record{}
	}
	return listResponse{Total: len(rows), Patients: rows}
}

func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ListPatients(c echo.Context) error {
	return c.JSON(http.StatusOK, newList(s.Table().Rows()))
}

func (s *Server) GetPatient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	r, ok := s.Table().Row(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Server) AddPatient(c echo.Context) error {
	p, err := decodePatient(c)
	if err != nil {
		return err
	}
	if err := patient.Validate(p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	next, _ := s.mutate(func(t patient.Table) (patient.Table, bool) {
		return patient.AddPatient(t, p), true
	})
	s.log.Info("patient added", zap.String("name", p.Name), zap.Int("rows", next.Len()))
	return c.JSON(http.StatusCreated, newList(next.Rows()))
}

// ReplacePatients applies a bulk edit: the posted rows become the table.
func (s *Server) ReplacePatients(c echo.Context) error {
	var ps []patient.Patient
	if err := c.Bind(&ps); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	next, _ := s.mutate(func(patient.Table) (patient.Table, bool) {
		return patient.FromPatients(ps), true
	})
	s.log.Info("patients replaced", zap.Int("rows", next.Len()))
	return c.JSON(http.StatusOK, newList(next.Rows()))
}

// UpdatePatient validates the edit against the row currently at id, inside
// the same locked step that applies it.
func (s *Server) UpdatePatient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := decodePatient(c)
	if err != nil {
		return err
	}

	var invalid error
	next, ok := s.mutate(func(t patient.Table) (patient.Table, bool) {
		current, ok := t.Row(id)
		if !ok {
			return t, false
		}
		if err := patient.ValidateChange(current.Patient, p); err != nil {
			invalid = err
			return t, false
		}
		return patient.Update(t, id, p)
	})
	if invalid != nil {
		return echo.NewHTTPError(http.StatusBadRequest, invalid.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	r, _ := next.Row(id)
	return c.JSON(http.StatusOK, r)
}

func (s *Server) DeletePatient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if _, ok := s.mutate(func(t patient.Table) (patient.Table, bool) {
		return patient.Remove(t, id)
	}); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// SearchPatients answers ?mode=&q=. A missing mode means exact name. An
// unknown mode is rejected here so a client cannot confuse it with "no
// matches".
func (s *Server) SearchPatients(c echo.Context) error {
	mode, ok := patient.ExactName, true
	if raw := c.QueryParam("mode"); raw != "" {
		mode, ok = patient.ParseSearchMode(raw)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "mode must be one of: Exact Name, Partial Name, Patient ID")
	}
	return c.JSON(http.StatusOK, newList(patient.Search(s.Table(), mode, c.QueryParam("q"))))
}

func (s *Server) ResetPatients(c echo.Context) error {
	next, _ := s.mutate(func(patient.Table) (patient.Table, bool) {
		return patient.Reset(), true
	})
	s.log.Info("patients reset")
	return c.JSON(http.StatusOK, newList(next.Rows()))
}

func (s *Server) Summary(c echo.Context) error {
	return c.JSON(http.StatusOK, patient.Summarize(s.Table()))
}

func (s *Server) ExportCSV(c echo.Context) error {
	var buf bytes.Buffer
	if err := tabular.WriteCSV(&buf, s.Table()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="patients.csv"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

func (s *Server) ExportXLSX(c echo.Context) error {
	data, err := tabular.XLSX(s.Table())
	if err != nil {
		s.log.Warn("excel export failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="patients.xlsx"`)
	return c.Blob(http.StatusOK, mimeXLSX, data)
}

func pathID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// decodePatient reads a patient from the request body and trims its text.
func decodePatient(c echo.Context) (patient.Patient, error) {
	var p patient.Patient
	if err := c.Bind(&p); err != nil {
		return p, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return p.Trimmed(), nil
}
